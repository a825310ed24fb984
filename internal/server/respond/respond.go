// Package respond writes API responses in the envelope format used by
// every module: {"data": ..., "metadata": {"timestamp": ...}} on
// success, {"error": ...} with a mapped status code on failure.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/domain"
)

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	json.NewEncoder(w).Encode(response)
}

// Error maps a domain error to its HTTP status and writes an error
// envelope. Unrecognized errors become 500 with a generic message so
// provider internals never leak to clients.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, message := classify(err)

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

func classify(err error) (int, string) {
	var missingField domain.MissingFieldError
	var rateLimit domain.RateLimitError
	var auth domain.AuthError
	var notFound domain.SymbolNotFoundError
	var transport domain.TransportError
	var unreachable domain.ResearchUnreachableError
	var noGrowth domain.NoGrowthDataError

	switch {
	case errors.As(err, &missingField):
		return http.StatusUnprocessableEntity, missingField.Error()
	case errors.As(err, &noGrowth):
		return http.StatusUnprocessableEntity, noGrowth.Error()
	case errors.As(err, &rateLimit):
		return http.StatusTooManyRequests, rateLimit.Error()
	case errors.As(err, &auth):
		return http.StatusBadGateway, auth.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &unreachable):
		return http.StatusServiceUnavailable, unreachable.Error()
	case errors.As(err, &transport):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, transport.Error()
		}
		return http.StatusBadGateway, transport.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
