package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers holdings and portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.HandleListHoldings)
		r.Post("/", h.HandleCreateHolding)
		r.Get("/accounts", h.HandleGetAccounts)
		r.Put("/{id}", h.HandleUpdateHolding)
		r.Delete("/{id}", h.HandleDeleteHolding)
	})

	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/valuation", h.HandleGetValuation)
		r.Get("/summary", h.HandleGetSummary)
	})
}
