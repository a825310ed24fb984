// Package fmp provides a client for the Financial Modeling Prep API
// (primary quote and fundamentals provider).
//
// The /stable/ endpoints authenticate via query parameter and return
// either a single JSON object or a one-element array; both shapes are
// accepted. Free tier is 250 calls/day, so responses are cached and
// calls are rate limited.
package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/margin/internal/clientdata"
	"github.com/aristath/margin/internal/domain"
)

const providerName = "FMP"

// Client for financialmodelingprep.com
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	limiter   *rate.Limiter
}

// NewClient creates a new FMP client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://financialmodelingprep.com/stable",
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 5 * time.Second},
		log:       log.With().Str("client", "fmp").Logger(),
		cacheRepo: cacheRepo,
		// Burst of 5 covers one full fundamentals fetch; sustained rate
		// stays polite against the 250 calls/day free tier.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// SetBaseURL overrides the API base URL (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Payloads holds the raw records fetched for one symbol. Each map may be
// nil when the corresponding endpoint failed or returned nothing; the
// fundamentals normalizer decides what is fatal.
type Payloads struct {
	Metrics map[string]interface{} `json:"metrics"`
	Ratios  map[string]interface{} `json:"ratios"`
	Growth  map[string]interface{} `json:"growth"`
	Profile map[string]interface{} `json:"profile"`
}

// FetchQuote fetches the real-time quote record for a symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (map[string]interface{}, error) {
	if c.apiKey == "" {
		return nil, domain.AuthError{Provider: providerName}
	}

	if c.cacheRepo != nil {
		if data, err := c.cacheRepo.GetIfFresh("fmp_quote", symbol); err == nil && data != nil {
			var cached map[string]interface{}
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
				return cached, nil
			}
		}
	}

	record, err := c.get(ctx, "/quote", symbol, nil)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.SymbolNotFoundError{Symbol: symbol, Provider: providerName}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("fmp_quote", symbol, record, clientdata.TTLQuote); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	return record, nil
}

// FetchFundamentals fetches the fundamentals payloads for a symbol.
//
// Strategy (mirrors how the endpoints actually behave on the free tier):
//  1. key-metrics-ttm - broadest single endpoint
//  2. ratios-ttm - always fetched, carries netIncomePerShareTTM (EPS)
//  3. income-statement-growth - growth rates; often paywalled (402)
//  4. income-statement - growth fallback, computed from two annual periods
//  5. profile - only when metrics came back empty
//
// Individual endpoint failures degrade to a nil map. An auth or
// rate-limit error is returned only when nothing at all was fetched,
// since in that case the caller cannot produce any fundamentals.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (*Payloads, error) {
	if c.apiKey == "" {
		return nil, domain.AuthError{Provider: providerName}
	}

	if c.cacheRepo != nil {
		if data, err := c.cacheRepo.GetIfFresh("fmp_fundamentals", symbol); err == nil && data != nil {
			var cached Payloads
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Msg("Fundamentals cache hit")
				return &cached, nil
			}
		}
	}

	p := &Payloads{}
	var hardErr error

	p.Metrics, hardErr = c.tryEndpoint(ctx, "/key-metrics-ttm", symbol, nil, hardErr)
	p.Ratios, hardErr = c.tryEndpoint(ctx, "/ratios-ttm", symbol, nil, hardErr)
	p.Growth, hardErr = c.fetchGrowth(ctx, symbol, hardErr)

	if needsGrowthCalculation(p.Growth) {
		c.log.Debug().Str("symbol", symbol).Msg("Growth endpoint unavailable, calculating from income statements")
		c.calculateGrowthFromStatements(ctx, symbol, p)
	}

	if p.Metrics == nil {
		p.Profile, hardErr = c.tryEndpoint(ctx, "/profile", symbol, nil, hardErr)
	}

	if p.Metrics == nil && p.Ratios == nil && p.Growth == nil && p.Profile == nil {
		if hardErr != nil {
			return nil, hardErr
		}
		return nil, domain.SymbolNotFoundError{Symbol: symbol, Provider: providerName}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("fmp_fundamentals", symbol, p, clientdata.TTLFundamentals); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache fundamentals")
		}
	}

	return p, nil
}

// tryEndpoint fetches one endpoint, logging failures instead of
// propagating them. Auth and rate-limit errors are remembered in hardErr
// so FetchFundamentals can surface them when every endpoint failed.
func (c *Client) tryEndpoint(ctx context.Context, path, symbol string, extra url.Values, hardErr error) (map[string]interface{}, error) {
	record, err := c.get(ctx, path, symbol, extra)
	if err != nil {
		var authErr domain.AuthError
		var rateErr domain.RateLimitError
		if errors.As(err, &authErr) || errors.As(err, &rateErr) {
			if hardErr == nil {
				hardErr = err
			}
			c.log.Error().Err(err).Str("endpoint", path).Str("symbol", symbol).Msg("Endpoint rejected request")
		} else {
			c.log.Warn().Err(err).Str("endpoint", path).Str("symbol", symbol).Msg("Endpoint failed")
		}
		return nil, hardErr
	}
	return record, hardErr
}

// fetchGrowth fetches income-statement-growth and picks the most recent
// annual period from the list; quarterly growth figures would distort
// the ten-year projection.
func (c *Client) fetchGrowth(ctx context.Context, symbol string, hardErr error) (map[string]interface{}, error) {
	list, err := c.getList(ctx, "/income-statement-growth", symbol, url.Values{"limit": {"10"}})
	if err != nil {
		var authErr domain.AuthError
		var rateErr domain.RateLimitError
		if errors.As(err, &authErr) || errors.As(err, &rateErr) {
			if hardErr == nil {
				hardErr = err
			}
			c.log.Error().Err(err).Str("symbol", symbol).Msg("Growth endpoint rejected request")
		} else {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Growth endpoint failed")
		}
		return nil, hardErr
	}
	if len(list) == 0 {
		return nil, hardErr
	}

	for _, period := range list {
		date, _ := period["date"].(string)
		p, _ := period["period"].(string)
		if p == "FY" || strings.Contains(date, "12-31") || strings.Contains(date, "01-31") {
			return period, hardErr
		}
	}
	return list[0], hardErr
}

// needsGrowthCalculation reports whether the growth payload is missing
// the fields the normalizer needs.
func needsGrowthCalculation(growth map[string]interface{}) bool {
	if growth == nil {
		return true
	}
	if growth["growthEPS"] == nil || growth["growthRevenue"] == nil {
		return true
	}
	return false
}

// calculateGrowthFromStatements derives growthEPS and growthRevenue from
// the two most recent annual income statements when the growth endpoint
// is paywalled. Values are stored as percentages; the normalizer's
// magnitude check leaves them unscaled.
func (c *Client) calculateGrowthFromStatements(ctx context.Context, symbol string, p *Payloads) {
	statements, err := c.getList(ctx, "/income-statement", symbol, url.Values{"limit": {"5"}})
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch income statements for growth calculation")
		return
	}
	if len(statements) < 2 {
		c.log.Warn().Str("symbol", symbol).Int("count", len(statements)).Msg("Not enough income statements to calculate growth")
		return
	}

	annual := filterAnnualStatements(statements)
	if len(annual) < 2 {
		annual = statements[:2]
	}
	current, previous := annual[0], annual[1]

	if p.Growth == nil {
		p.Growth = make(map[string]interface{})
	}

	curEPS, curOK := statementEPS(current)
	prevEPS, prevOK := statementEPS(previous)
	if curOK && prevOK && prevEPS != 0 {
		epsGrowth := (curEPS - prevEPS) / abs(prevEPS) * 100
		p.Growth["growthEPS"] = epsGrowth
		c.log.Debug().Str("symbol", symbol).Float64("eps_growth", epsGrowth).Msg("Calculated EPS growth from income statements")
	}

	curRev, curOK := statementRevenue(current)
	prevRev, prevOK := statementRevenue(previous)
	if curOK && prevOK && prevRev != 0 {
		revGrowth := (curRev - prevRev) / abs(prevRev) * 100
		p.Growth["growthRevenue"] = revGrowth
		c.log.Debug().Str("symbol", symbol).Float64("revenue_growth", revGrowth).Msg("Calculated revenue growth from income statements")
	}
}

// filterAnnualStatements keeps statements that look like full-year
// periods (period FY, or fiscal year ends in December/January).
func filterAnnualStatements(statements []map[string]interface{}) []map[string]interface{} {
	var annual []map[string]interface{}
	for _, s := range statements {
		date, _ := s["date"].(string)
		period, _ := s["period"].(string)
		if period == "FY" ||
			strings.Contains(date, "12-31") || strings.Contains(date, "01-31") ||
			strings.Contains(date, "-12-") || strings.Contains(date, "-01-") {
			annual = append(annual, s)
		}
	}
	return annual
}

// statementEPS extracts EPS from an income statement, trying the fields
// observed across API versions, then net income / share count.
func statementEPS(s map[string]interface{}) (float64, bool) {
	for _, field := range []string{"eps", "earningsPerShare", "netIncomePerShare"} {
		if v, ok := asFloat(s[field]); ok && v != 0 {
			return v, true
		}
	}
	netIncome, niOK := asFloat(s["netIncome"])
	shares, shOK := asFloat(s["weightedAverageShsOut"])
	if niOK && shOK && shares != 0 {
		return netIncome / shares, true
	}
	return 0, false
}

// statementRevenue extracts revenue from an income statement.
func statementRevenue(s map[string]interface{}) (float64, bool) {
	for _, field := range []string{"revenue", "totalRevenue", "revenues"} {
		if v, ok := asFloat(s[field]); ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// get fetches one endpoint and extracts the first record.
// Returns nil, nil when the payload is an empty array.
func (c *Client) get(ctx context.Context, path, symbol string, extra url.Values) (map[string]interface{}, error) {
	raw, err := c.getRaw(ctx, path, symbol, extra)
	if err != nil {
		return nil, err
	}

	record, ok := extractRecord(raw)
	if !ok {
		return nil, nil
	}
	return record, nil
}

// getList fetches one endpoint and decodes the payload as a list of
// records (single objects become a one-element list).
func (c *Client) getList(ctx context.Context, path, symbol string, extra url.Values) ([]map[string]interface{}, error) {
	raw, err := c.getRaw(ctx, path, symbol, extra)
	if err != nil {
		return nil, err
	}

	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single map[string]interface{}
	if err := json.Unmarshal(raw, &single); err == nil {
		return []map[string]interface{}{single}, nil
	}

	return nil, fmt.Errorf("unexpected payload shape from %s", path)
}

func (c *Client) getRaw(ctx context.Context, path, symbol string, extra url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.TransportError{Provider: providerName, Err: err}
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.TransportError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.TransportError{Provider: providerName, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatusError(resp.StatusCode, body, symbol)
	}

	return json.RawMessage(body), nil
}

// mapStatusError converts an HTTP error status into a domain error.
// 402 means the endpoint requires a paid tier and is treated like a
// missing payload by callers, so it maps to a plain error.
func mapStatusError(status int, body []byte, symbol string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.AuthError{Provider: providerName}
	case http.StatusNotFound:
		return domain.SymbolNotFoundError{Symbol: symbol, Provider: providerName}
	case http.StatusTooManyRequests:
		return domain.RateLimitError{Provider: providerName, Detail: "free tier allows 250 calls/day"}
	case http.StatusPaymentRequired:
		return fmt.Errorf("endpoint requires paid tier (402)")
	default:
		detail := extractErrorDetail(body)
		if detail != "" {
			return fmt.Errorf("API returned status %d: %s", status, detail)
		}
		return fmt.Errorf("API returned status %d", status)
	}
}

// extractErrorDetail pulls a human-readable message out of an FMP error
// payload, which uses either "Error" or "message".
func extractErrorDetail(body []byte) string {
	var payload struct {
		Error   string `json:"Error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

// extractRecord applies the record shape adapters in order: a non-empty
// array yields its first element, a bare object yields itself. Provider
// responses have flipped between the two shapes across API versions.
func extractRecord(raw json.RawMessage) (map[string]interface{}, bool) {
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, false
		}
		return list[0], true
	}

	var single map[string]interface{}
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		return single, true
	}

	return nil, false
}
