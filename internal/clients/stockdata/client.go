// Package stockdata provides a client for the stockdata.org API
// (secondary quote provider, used when the primary is unavailable).
//
// The API's route and parameter naming has shifted across versions, so
// the client probes a short ordered list of endpoint candidates and
// uses the first one that answers without a provider error.
package stockdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/clientdata"
	"github.com/aristath/margin/internal/domain"
)

const providerName = "StockData.org"

// endpointCandidate is one probe target: a path plus the parameter names
// a given API version expects.
type endpointCandidate struct {
	path       string
	symbolKey  string
	tokenKey   string
}

var endpointCandidates = []endpointCandidate{
	{path: "/data/quote", symbolKey: "symbols", tokenKey: "api_token"},
	{path: "/quote", symbolKey: "symbol", tokenKey: "api_token"},
	{path: "/data/realtime", symbolKey: "symbols", tokenKey: "api_token"},
	{path: "/data/quote", symbolKey: "symbol", tokenKey: "api_key"},
}

// Client for api.stockdata.org
type Client struct {
	baseURL   string
	apiToken  string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new StockData.org client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(apiToken string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://api.stockdata.org/v1",
		apiToken:  apiToken,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "stockdata").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL overrides the API base URL (used by tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// FetchQuote fetches the quote record for a symbol, probing the endpoint
// candidates in order until one answers without a provider error.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (map[string]interface{}, error) {
	if c.apiToken == "" {
		return nil, domain.AuthError{Provider: providerName}
	}

	if c.cacheRepo != nil {
		if data, err := c.cacheRepo.GetIfFresh("stockdata_quote", symbol); err == nil && data != nil {
			var cached map[string]interface{}
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
				return cached, nil
			}
		}
	}

	var lastErr error
	for _, candidate := range endpointCandidates {
		payload, err := c.probe(ctx, candidate, symbol)
		if err != nil {
			c.log.Debug().Err(err).Str("endpoint", candidate.path).Msg("Endpoint candidate failed, trying next")
			lastErr = err
			continue
		}

		record, ok := extractRecord(payload)
		if !ok {
			lastErr = domain.SymbolNotFoundError{Symbol: symbol, Provider: providerName}
			continue
		}

		c.log.Debug().Str("endpoint", candidate.path).Str("symbol", symbol).Msg("Quote fetched")

		if c.cacheRepo != nil {
			if err := c.cacheRepo.Store("stockdata_quote", symbol, record, clientdata.TTLQuote); err != nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
			}
		}
		return record, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.SymbolNotFoundError{Symbol: symbol, Provider: providerName}
}

// probe issues one candidate request and checks the payload for
// provider-level error markers, which the API reports with HTTP 200.
func (c *Client) probe(ctx context.Context, candidate endpointCandidate, symbol string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set(candidate.symbolKey, symbol)
	params.Set(candidate.tokenKey, c.apiToken)

	reqURL := c.baseURL + candidate.path + "?" + params.Encode()

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

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, domain.AuthError{Provider: providerName}
	case http.StatusTooManyRequests:
		return nil, domain.RateLimitError{Provider: providerName, Detail: "daily request limit reached"}
	default:
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some versions answer with a bare array.
		var list []map[string]interface{}
		if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
			return map[string]interface{}{"data": list[0]}, nil
		}
		return nil, fmt.Errorf("unexpected payload shape from %s", candidate.path)
	}

	if providerErr := providerError(payload); providerErr != "" {
		if strings.Contains(strings.ToLower(providerErr), "limit") {
			return nil, domain.RateLimitError{Provider: providerName, Detail: providerErr}
		}
		return nil, fmt.Errorf("API error: %s", providerErr)
	}

	return payload, nil
}

// providerError returns the error message embedded in a 200 payload,
// or "" when the payload carries no error markers.
func providerError(payload map[string]interface{}) string {
	status, _ := payload["status"].(string)
	errVal := payload["error"]
	if errVal == nil && status != "error" {
		return ""
	}

	if msg, ok := payload["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := errVal.(string); ok && msg != "" {
		return msg
	}
	if errMap, ok := errVal.(map[string]interface{}); ok {
		if msg, ok := errMap["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "unknown API error"
}

// extractRecord applies the record shape adapters in order: data as a
// non-empty array, data as an object, then the payload itself when it
// already looks like a quote.
func extractRecord(payload map[string]interface{}) (map[string]interface{}, bool) {
	if data, ok := payload["data"].([]interface{}); ok {
		if len(data) == 0 {
			return nil, false
		}
		if record, ok := data[0].(map[string]interface{}); ok {
			return record, true
		}
		return nil, false
	}

	if record, ok := payload["data"].(map[string]interface{}); ok {
		return record, true
	}

	if payload["price"] != nil || payload["symbol"] != nil || payload["ticker"] != nil {
		return payload, true
	}

	return nil, false
}
