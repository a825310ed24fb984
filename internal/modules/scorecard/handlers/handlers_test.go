package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/margin/internal/clients/fmp"
	"github.com/aristath/margin/internal/clients/research"
	"github.com/aristath/margin/internal/domain"
	"github.com/aristath/margin/internal/modules/fundamentals"
	"github.com/aristath/margin/internal/modules/scorecard"
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

type stubResearchProvider struct {
	err   error
	calls int
}

func (s *stubResearchProvider) Research(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	ratings := make([]domain.CriterionRating, 0, len(req.CriteriaToResearch))
	for _, id := range req.CriteriaToResearch {
		ratings = append(ratings, domain.CriterionRating{
			CriterionID: id, Rating: 4, Justification: "researched", Confidence: "medium",
		})
	}
	return &domain.ResearchResponse{Symbol: req.Symbol, Ratings: ratings}, nil
}

func newTestRouter(provider scorecard.ResearchProvider) chi.Router {
	stocks := fundamentals.NewService(stubQuoteProvider{}, nil, stubFundamentalsProvider{}, zerolog.Nop())
	cache := research.NewCache(time.Hour, nil, zerolog.Nop())
	svc := scorecard.NewService(stocks, provider, cache, zerolog.Nop())
	h := NewHandler(svc, zerolog.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleGetScorecard(t *testing.T) {
	r := newTestRouter(&stubResearchProvider{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks/AAPL/scorecard", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data domain.Scorecard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Data.Symbol)
	require.Len(t, body.Data.Criteria, 15)
	assert.InDelta(t, 62.0/15.0, body.Data.OverallScore, 1e-9)
}

func TestHandleGetScorecardResearchUnreachable(t *testing.T) {
	provider := &stubResearchProvider{err: domain.ResearchUnreachableError{BaseURL: "http://localhost:8000"}}

	r := newTestRouter(provider)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks/AAPL/scorecard", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleInvalidateResearch(t *testing.T) {
	provider := &stubResearchProvider{}
	r := newTestRouter(provider)

	// Warm the cache, invalidate, then fetch again.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks/AAPL/scorecard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/research/cache/AAPL", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries_removed":1`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks/AAPL/scorecard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, provider.calls)
}
