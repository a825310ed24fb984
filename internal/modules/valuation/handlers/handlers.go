// Package handlers provides HTTP handlers for valuation operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/modules/fundamentals"
	"github.com/aristath/margin/internal/modules/valuation"
	"github.com/aristath/margin/internal/server/respond"
)

// Handler handles valuation HTTP requests
type Handler struct {
	stocks *fundamentals.Service
	log    zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(stocks *fundamentals.Service, log zerolog.Logger) *Handler {
	return &Handler{
		stocks: stocks,
		log:    log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetMetrics handles GET /api/stocks/{symbol}/metrics
// Computes sticker price, MOS price and signal for a symbol. The growth
// query parameter (percent) overrides the growth assumption; without it
// the most conservative available growth rate is used.
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var customGrowth *float64
	if raw := r.URL.Query().Get("growth"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.log.Warn().Str("growth", raw).Msg("Invalid growth parameter")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "growth must be a number (annual growth in percent)",
			})
			return
		}
		customGrowth = &parsed
	}

	data, err := h.stocks.GetStockData(r.Context(), symbol)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	metrics, err := valuation.CalculateMetrics(data, customGrowth)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	h.log.Info().
		Str("symbol", data.Symbol).
		Float64("sticker_price", metrics.StickerPrice).
		Float64("mos_price", metrics.MOSPrice).
		Str("signal", string(metrics.Signal)).
		Msg("Valuation computed")

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"stock":   data,
		"metrics": metrics,
	})
}
