// Package handlers provides HTTP handlers for holdings management and
// portfolio valuation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/portfolio"
)

// Handler handles holdings and portfolio HTTP requests
type Handler struct {
	repo    *portfolio.PositionRepository
	service *portfolio.PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *portfolio.PositionRepository, service *portfolio.PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// holdingRequest is the JSON body for create and update operations
type holdingRequest struct {
	Ticker    string  `json:"ticker"`
	Account   string  `json:"account"`
	Shares    float64 `json:"shares"`
	CostBasis float64 `json:"cost_basis"`
}

// HandleListHoldings returns all positions in insertion order
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repo.GetAll()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if positions == nil {
		positions = []portfolio.Position{}
	}
	h.writeData(w, http.StatusOK, positions)
}

// HandleCreateHolding adds a new position
func (h *Handler) HandleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	position, err := h.repo.Create(req.Ticker, req.Account, req.Shares, req.CostBasis)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusCreated, position)
}

// HandleUpdateHolding modifies a position. Shares <= 0 deletes it.
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	position, err := h.repo.Update(id, req.Account, req.Shares, req.CostBasis)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if position == nil {
		h.writeData(w, http.StatusOK, map[string]bool{"deleted": true})
		return
	}
	h.writeData(w, http.StatusOK, position)
}

// HandleDeleteHolding removes a position
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleGetAccounts returns the distinct account names
func (h *Handler) HandleGetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.Accounts()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if accounts == nil {
		accounts = []string{}
	}
	h.writeData(w, http.StatusOK, accounts)
}

// HandleGetValuation returns the full portfolio valuation at current
// prices
func (h *Handler) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.service.GetValuation()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, valuation)
}

// HandleGetSummary returns portfolio totals only
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, summary)
}

// Helper methods

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
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

// writeServiceError maps repository errors onto HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, portfolio.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
