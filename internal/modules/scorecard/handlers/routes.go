package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scorecard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stocks/{symbol}/scorecard", h.HandleGetScorecard)
	r.Delete("/research/cache/{symbol}", h.HandleInvalidateResearch)
}
