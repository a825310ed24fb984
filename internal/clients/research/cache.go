package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/clientdata"
	"github.com/aristath/margin/internal/domain"
)

// DefaultCacheTTL is how long research results stay valid. Qualitative
// findings move slowly, and each research run costs minutes plus API spend.
const DefaultCacheTTL = 24 * time.Hour

// researchTable is the clientdata table backing the cache across restarts.
const researchTable = "research_ratings"

// FetchFunc produces a fresh research response on cache miss.
type FetchFunc func(ctx context.Context) (*domain.ResearchResponse, error)

type cacheEntry struct {
	response  *domain.ResearchResponse
	expiresAt time.Time
}

// persistedResearch is the stored row shape. The criterion set is kept
// alongside the response so a row researched for a different set of
// criteria reads as a miss instead of a partial answer.
type persistedResearch struct {
	Criteria []int                    `json:"criteria"`
	Response *domain.ResearchResponse `json:"response"`
}

// Cache is a TTL cache for research responses, keyed by symbol plus the
// sorted criterion set. The in-memory map serves the hot path; rows are
// mirrored to the research_ratings table so results survive a restart.
// The only ways in or out are GetOrFetch and Invalidate, so callers
// cannot bypass the TTL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	repo    *clientdata.Repository
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCache creates a research cache with the given TTL. A zero ttl gets
// DefaultCacheTTL. repo may be nil, which disables persistence.
func NewCache(ttl time.Duration, repo *clientdata.Repository, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		repo:    repo,
		ttl:     ttl,
		log:     log.With().Str("component", "research_cache").Logger(),
	}
}

// GetOrFetch returns the cached response for symbol and criteria, or
// calls fetch and caches the result. Errors are never cached.
func (c *Cache) GetOrFetch(ctx context.Context, symbol string, criteria []int, fetch FetchFunc) (*domain.ResearchResponse, error) {
	key := cacheKey(symbol, criteria)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && time.Now().Before(entry.expiresAt) {
		c.log.Debug().Str("symbol", symbol).Msg("Research cache hit")
		return entry.response, nil
	}

	if stored := c.loadStored(symbol, criteria); stored != nil {
		c.log.Debug().Str("symbol", symbol).Msg("Research cache hit (stored)")
		return stored, nil
	}

	// Fetch outside the lock: research runs take minutes and must not
	// block cache access for other symbols.
	response, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{response: response, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	c.persist(symbol, criteria, response)

	c.log.Debug().Str("symbol", symbol).Int("ratings", len(response.Ratings)).Msg("Research cached")
	return response, nil
}

// Invalidate drops every cached entry for a symbol, in memory and on
// disk, regardless of which criterion set produced it.
func (c *Cache) Invalidate(symbol string) int {
	upper := strings.ToUpper(symbol)
	prefix := upper + ":"

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.repo != nil {
		// Count the stored row when memory had nothing for the symbol,
		// so a cold-start invalidation still reports what it removed.
		if removed == 0 {
			if raw, err := c.repo.GetIfFresh(researchTable, upper); err == nil && raw != nil {
				removed = 1
			}
		}
		if err := c.repo.Delete(researchTable, upper); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to delete stored research")
		}
	}

	if removed > 0 {
		c.log.Info().Str("symbol", symbol).Int("entries", removed).Msg("Research cache invalidated")
	}
	return removed
}

// loadStored reads the persisted row for a symbol. Returns nil on miss,
// expiry, or a criterion set that does not match the request.
func (c *Cache) loadStored(symbol string, criteria []int) *domain.ResearchResponse {
	if c.repo == nil {
		return nil
	}

	raw, err := c.repo.GetIfFresh(researchTable, strings.ToUpper(symbol))
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read stored research")
		return nil
	}
	if raw == nil {
		return nil
	}

	var stored persistedResearch
	if err := json.Unmarshal(raw, &stored); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Corrupt stored research row")
		return nil
	}
	if canonicalCriteria(stored.Criteria) != canonicalCriteria(criteria) {
		return nil
	}
	return stored.Response
}

func (c *Cache) persist(symbol string, criteria []int, response *domain.ResearchResponse) {
	if c.repo == nil {
		return
	}

	row := persistedResearch{Criteria: sortedCriteria(criteria), Response: response}
	if err := c.repo.Store(researchTable, strings.ToUpper(symbol), row, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist research")
	}
}

// cacheKey builds a canonical key: two requests for the same symbol and
// criterion set hit the same entry regardless of criterion order.
func cacheKey(symbol string, criteria []int) string {
	return strings.ToUpper(symbol) + ":" + canonicalCriteria(criteria)
}

func canonicalCriteria(criteria []int) string {
	sorted := sortedCriteria(criteria)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func sortedCriteria(criteria []int) []int {
	sorted := make([]int, len(criteria))
	copy(sorted, criteria)
	sort.Ints(sorted)
	return sorted
}
