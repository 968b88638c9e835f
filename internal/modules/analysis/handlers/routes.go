package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers analysis routes on the given router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Get("/risk", h.HandleRisk)
		r.Get("/performance", h.HandlePerformance)
	})
}
