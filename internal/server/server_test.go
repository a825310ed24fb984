package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/margin/internal/clients/fmp"
	"github.com/aristath/margin/internal/clients/research"
	"github.com/aristath/margin/internal/config"
	"github.com/aristath/margin/internal/database"
	"github.com/aristath/margin/internal/domain"
	"github.com/aristath/margin/internal/modules/fundamentals"
	fundamentalshandlers "github.com/aristath/margin/internal/modules/fundamentals/handlers"
	"github.com/aristath/margin/internal/modules/scorecard"
	scorecardhandlers "github.com/aristath/margin/internal/modules/scorecard/handlers"
	valuationhandlers "github.com/aristath/margin/internal/modules/valuation/handlers"
)

type stubQuoteProvider struct{}

func (stubQuoteProvider) FetchQuote(ctx context.Context, symbol string) (map[string]interface{}, error) {
	return map[string]interface{}{"symbol": "AAPL", "name": "Apple Inc.", "price": 178.25}, nil
}

type stubFundamentalsProvider struct{}

func (stubFundamentalsProvider) FetchFundamentals(ctx context.Context, symbol string) (*fmp.Payloads, error) {
	return &fmp.Payloads{
		Metrics: map[string]interface{}{"returnOnEquityTTM": 0.45},
		Ratios:  map[string]interface{}{"netIncomePerShareTTM": 6.42},
		Growth:  map[string]interface{}{"growthEPS": 0.18, "growthRevenue": 0.24},
	}, nil
}

type stubResearchProvider struct{}

func (stubResearchProvider) Research(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	ratings := make([]domain.CriterionRating, 0, len(req.CriteriaToResearch))
	for _, id := range req.CriteriaToResearch {
		ratings = append(ratings, domain.CriterionRating{CriterionID: id, Rating: 3, Confidence: "medium"})
	}
	return &domain.ResearchResponse{Symbol: req.Symbol, Ratings: ratings}, nil
}

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

func newTestServer(t *testing.T, checker ResearchHealthChecker, cacheDB *database.DB) *Server {
	t.Helper()

	stocks := fundamentals.NewService(stubQuoteProvider{}, nil, stubFundamentalsProvider{}, zerolog.Nop())
	cache := research.NewCache(time.Hour, nil, zerolog.Nop())
	cards := scorecard.NewService(stocks, stubResearchProvider{}, cache, zerolog.Nop())

	return New(Config{
		Log:             zerolog.Nop(),
		Config:          &config.Config{},
		CacheDB:         cacheDB,
		FundamentalsH:   fundamentalshandlers.NewHandler(stocks, zerolog.Nop()),
		ValuationH:      valuationhandlers.NewHandler(stocks, zerolog.Nop()),
		ScorecardH:      scorecardhandlers.NewHandler(cards, zerolog.Nop()),
		ResearchChecker: checker,
		Port:            0,
		DevMode:         true,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, stubHealthChecker{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["research_backend"])
}

func TestHealthEndpointResearchDown(t *testing.T) {
	srv := newTestServer(t, stubHealthChecker{err: errors.New("refused")}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Valuation works without the research backend.
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "unreachable", body.Checks["research_backend"])
}

func TestAPIRoutesWired(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, url := range []string{
		"/api/stocks/AAPL",
		"/api/stocks/AAPL/metrics",
		"/api/stocks/AAPL/scorecard",
	} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusOK, rec.Code, url)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/research/cache/AAPL", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemStatus(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Data, "uptime_hours")
	assert.Contains(t, body.Data, "cpu_percent")
	assert.Contains(t, body.Data, "go")
}

func TestHealthEndpointCacheDB(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    "file::memory:",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := newTestServer(t, stubHealthChecker{}, db)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["cache_db"])
}
