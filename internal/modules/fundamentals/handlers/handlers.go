// Package handlers provides HTTP handlers for stock data lookups.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/modules/fundamentals"
	"github.com/aristath/margin/internal/server/respond"
)

// Handler handles stock data HTTP requests
type Handler struct {
	service *fundamentals.Service
	log     zerolog.Logger
}

// NewHandler creates a new stock data handler
func NewHandler(service *fundamentals.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "fundamentals").Logger(),
	}
}

// HandleGetStock handles GET /api/stocks/{symbol}
// Returns the normalized stock record for a symbol.
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	data, err := h.service.GetStockData(r.Context(), symbol)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, data)
}
