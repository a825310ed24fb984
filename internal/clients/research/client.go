// Package research provides the client for the qualitative research
// backend, which rates Fisher scorecard criteria from web research.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/domain"
)

// Research runs take minutes: the backend searches the web and rates up
// to 13 criteria per request.
const requestTimeout = 3 * time.Minute

// Client for the research backend service.
type Client struct {
	baseURL  string
	client   *http.Client
	log      zerolog.Logger
	validate *validator.Validate
}

// NewClient creates a new research backend client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: requestTimeout},
		log:      log.With().Str("client", "research").Logger(),
		validate: validator.New(),
	}
}

// Research asks the backend to rate the requested criteria for a symbol.
// A refused connection maps to ResearchUnreachableError so handlers can
// tell "backend down" apart from "backend failed".
func (c *Client) Research(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal research request: %w", err)
	}

	requestID := uuid.New().String()
	c.log.Info().
		Str("request_id", requestID).
		Str("symbol", req.Symbol).
		Ints("criteria", req.CriteriaToResearch).
		Msg("Requesting qualitative research")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fisher-research", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isConnectionRefused(err) {
			return nil, domain.ResearchUnreachableError{BaseURL: c.baseURL, Err: err}
		}
		return nil, domain.TransportError{Provider: "research backend", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.TransportError{Provider: "research backend", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research backend returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result domain.ResearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode research response: %w", err)
	}

	if err := c.validate.Struct(&result); err != nil {
		return nil, fmt.Errorf("research response failed validation: %w", err)
	}

	c.log.Info().
		Str("request_id", requestID).
		Str("symbol", req.Symbol).
		Int("ratings", len(result.Ratings)).
		Dur("elapsed", time.Since(start)).
		Msg("Research complete")

	return &result, nil
}

// HealthCheck probes the backend's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	// Health probes should answer fast even while research is running.
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return domain.ResearchUnreachableError{BaseURL: c.baseURL, Err: err}
		}
		return domain.TransportError{Provider: "research backend", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("research backend health check returned status %d", resp.StatusCode)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
