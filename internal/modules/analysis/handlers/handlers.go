// Package handlers provides HTTP handlers for the analysis module.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/analysis"
)

// Handler handles analysis HTTP requests
type Handler struct {
	service *analysis.Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *analysis.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleRisk handles GET /api/v1/analysis/risk?range=5y
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunRisk(r.URL.Query().Get("range"))
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}
	h.writeRun(w, result, result.RunID)
}

// HandlePerformance handles GET /api/v1/analysis/performance?range=5y
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunPerformance(r.URL.Query().Get("range"))
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}
	h.writeRun(w, result, result.RunID)
}

// Helper methods

// writeRun wraps a run result in the standard envelope, echoing the run
// id in the metadata.
func (h *Handler) writeRun(w http.ResponseWriter, data interface{}, runID string) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"run_id":    runID,
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

// writeAnalysisError maps pipeline errors onto HTTP statuses. A weight
// and column count disagreement is a client-visible 422, everything
// else unexpected is a 500.
func (h *Handler) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidRange):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrDimensionMismatch):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Analysis request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
