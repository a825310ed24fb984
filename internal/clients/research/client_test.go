package research

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/margin/internal/clientdata"
	"github.com/aristath/margin/internal/domain"
)

func TestResearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fisher-research", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req domain.ResearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AAPL", req.Symbol)
		assert.Equal(t, []int{2, 3}, req.CriteriaToResearch)

		json.NewEncoder(w).Encode(domain.ResearchResponse{
			Symbol: "AAPL",
			Ratings: []domain.CriterionRating{
				{CriterionID: 2, Rating: 4, Justification: "Strong pipeline", Confidence: "high"},
				{CriterionID: 3, Rating: 5, Justification: "Heavy R&D spend", Confidence: "medium"},
			},
			ResearchDate: time.Now(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	resp, err := client.Research(context.Background(), domain.ResearchRequest{
		Symbol:             "AAPL",
		CompanyName:        "Apple Inc.",
		CriteriaToResearch: []int{2, 3},
	})
	require.NoError(t, err)
	require.Len(t, resp.Ratings, 2)
	assert.Equal(t, 4, resp.Ratings[0].Rating)
}

func TestResearchRejectsInvalidRatings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.ResearchResponse{
			Symbol: "AAPL",
			Ratings: []domain.CriterionRating{
				{CriterionID: 2, Rating: 9, Justification: "out of range", Confidence: "high"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.Research(context.Background(), domain.ResearchRequest{Symbol: "AAPL", CriteriaToResearch: []int{2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestResearchConnectionRefused(t *testing.T) {
	// Point at a closed port.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.Research(context.Background(), domain.ResearchRequest{Symbol: "AAPL", CriteriaToResearch: []int{2}})

	var unreachable domain.ResearchUnreachableError
	assert.True(t, errors.As(err, &unreachable))
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestCacheGetOrFetch(t *testing.T) {
	cache := NewCache(time.Hour, nil, zerolog.Nop())
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	_, err := cache.GetOrFetch(context.Background(), "AAPL", []int{3, 2}, fetch)
	require.NoError(t, err)

	// Same criteria in different order must be a hit.
	_, err = cache.GetOrFetch(context.Background(), "AAPL", []int{2, 3}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Different criterion set is a separate entry.
	_, err = cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	cache := NewCache(time.Hour, nil, zerolog.Nop())
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("backend exploded")
		}
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	_, err := cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.Error(t, err)

	_, err = cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(time.Millisecond, nil, zerolog.Nop())
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	_, err := cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewCache(time.Hour, nil, zerolog.Nop())
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{}, nil
	}

	_, _ = cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	_, _ = cache.GetOrFetch(context.Background(), "AAPL", []int{2, 3}, fetch)
	_, _ = cache.GetOrFetch(context.Background(), "MSFT", []int{2}, fetch)

	removed := cache.Invalidate("aapl")
	assert.Equal(t, 2, removed)

	// AAPL refetches, MSFT is still cached.
	_, _ = cache.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	_, _ = cache.GetOrFetch(context.Background(), "MSFT", []int{2}, fetch)
	assert.Equal(t, 4, calls)
}

func newCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := clientdata.NewRepository(db)
	require.NoError(t, repo.InitSchema())
	return repo
}

func TestCacheSurvivesRestart(t *testing.T) {
	repo := newCacheRepo(t)
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	warm := NewCache(time.Hour, repo, zerolog.Nop())
	_, err := warm.GetOrFetch(context.Background(), "AAPL", []int{3, 2}, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// A fresh cache over the same repository serves from the stored
	// row without another fetch.
	cold := NewCache(time.Hour, repo, zerolog.Nop())
	response, err := cold.GetOrFetch(context.Background(), "AAPL", []int{2, 3}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "AAPL", response.Symbol)
}

func TestCacheStoredCriteriaMismatch(t *testing.T) {
	repo := newCacheRepo(t)
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	warm := NewCache(time.Hour, repo, zerolog.Nop())
	_, err := warm.GetOrFetch(context.Background(), "AAPL", []int{2, 3}, fetch)
	require.NoError(t, err)

	// A stored row for a different criterion set is a miss, not a
	// partial answer.
	cold := NewCache(time.Hour, repo, zerolog.Nop())
	_, err = cold.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidateRemovesStoredRow(t *testing.T) {
	repo := newCacheRepo(t)
	calls := 0
	fetch := func(ctx context.Context) (*domain.ResearchResponse, error) {
		calls++
		return &domain.ResearchResponse{Symbol: "AAPL"}, nil
	}

	warm := NewCache(time.Hour, repo, zerolog.Nop())
	_, err := warm.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)

	// Cold-start invalidation still finds and reports the stored row.
	cold := NewCache(time.Hour, repo, zerolog.Nop())
	assert.Equal(t, 1, cold.Invalidate("aapl"))

	_, err = cold.GetOrFetch(context.Background(), "AAPL", []int{2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
