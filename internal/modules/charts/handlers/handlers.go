// Package handlers provides HTTP handlers for the charts module.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/analysis"
	"github.com/aristath/folio/internal/modules/charts"
)

// Handler handles chart HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// RegisterRoutes registers chart routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/composition", h.HandleComposition)
		r.Get("/portfolio-value", h.HandlePortfolioValue)
		r.Get("/cumulative-returns", h.HandleCumulativeReturns)
		r.Get("/price/{ticker}", h.HandlePriceChart)
	})
}

// HandleComposition handles GET /api/v1/charts/composition
func (h *Handler) HandleComposition(w http.ResponseWriter, r *http.Request) {
	slices, err := h.service.GetComposition()
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, slices)
}

// HandlePortfolioValue handles GET /api/v1/charts/portfolio-value?range=5y
func (h *Handler) HandlePortfolioValue(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.GetPortfolioValue(r.URL.Query().Get("range"))
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, points)
}

// HandleCumulativeReturns handles GET /api/v1/charts/cumulative-returns?range=5y
func (h *Handler) HandleCumulativeReturns(w http.ResponseWriter, r *http.Request) {
	chart, err := h.service.GetCumulativeReturns(r.URL.Query().Get("range"))
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, chart)
}

// HandlePriceChart handles GET /api/v1/charts/price/{ticker}?range=1y&sma=50&ema=200
func (h *Handler) HandlePriceChart(w http.ResponseWriter, r *http.Request) {
	smaPeriod, err := parsePeriod(r, "sma")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	emaPeriod, err := parsePeriod(r, "ema")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chart, err := h.service.GetPriceChart(
		chi.URLParam(r, "ticker"),
		r.URL.Query().Get("range"),
		smaPeriod,
		emaPeriod,
	)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, chart)
}

// Helper methods

// parsePeriod reads an optional positive integer query parameter, zero
// when absent
func parsePeriod(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	period, err := strconv.Atoi(raw)
	if err != nil || period < 1 {
		return 0, fmt.Errorf("invalid %s period: %s", name, raw)
	}
	return period, nil
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeChartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, charts.ErrInvalidRange),
		errors.Is(err, charts.ErrInvalidTicker),
		errors.Is(err, analysis.ErrInvalidRange):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Chart request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
