package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth handles GET /health
// Reports overall status plus per-dependency checks. The server stays
// "ok" when only the research backend is down: valuation works without it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	if s.cfg.CacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.CacheDB.HealthCheck(ctx); err != nil {
			checks["cache_db"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["cache_db"] = "ok"
		}
	}

	if s.cfg.ResearchChecker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.cfg.ResearchChecker.HealthCheck(ctx); err != nil {
			checks["research_backend"] = "unreachable"
		} else {
			checks["research_backend"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
