// Package handlers provides HTTP handlers for scorecard operations.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/modules/scorecard"
	"github.com/aristath/margin/internal/server/respond"
)

// Handler handles scorecard HTTP requests
type Handler struct {
	service *scorecard.Service
	log     zerolog.Logger
}

// NewHandler creates a new scorecard handler
func NewHandler(service *scorecard.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "scorecard").Logger(),
	}
}

// HandleGetScorecard handles GET /api/stocks/{symbol}/scorecard
// Returns the full 15-criterion Fisher scorecard. The research-backed
// criteria may take minutes on a cold cache.
func (h *Handler) HandleGetScorecard(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	card, err := h.service.GetScorecard(r.Context(), symbol)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, card)
}

// HandleInvalidateResearch handles DELETE /api/research/cache/{symbol}
// Drops cached research so the next scorecard request re-researches.
func (h *Handler) HandleInvalidateResearch(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	removed := h.service.InvalidateResearch(symbol)

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"symbol":          symbol,
		"entries_removed": removed,
	})
}
