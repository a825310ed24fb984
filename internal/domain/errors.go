package domain

import "fmt"

// MissingFieldError reports that a field required for valuation could not
// be extracted from any upstream payload. Required fields never fall back
// to defaults: a guessed number would silently corrupt the valuation.
type MissingFieldError struct {
	Field string // e.g. "eps", "epsGrowth", "salesGrowth", "currentPrice"
	Cause string // likely upstream reason, shown to the user
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("unable to retrieve %s: %s", e.Field, e.Cause)
}

// RateLimitError reports upstream rate limiting (429 or provider-specific
// markers). Never retried automatically; the user re-submits the search.
type RateLimitError struct {
	Provider string
	Detail   string
}

func (e RateLimitError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s rate limit reached: %s", e.Provider, e.Detail)
	}
	return fmt.Sprintf("%s rate limit reached", e.Provider)
}

// AuthError reports an upstream 401/403, which almost always means a
// missing or invalid API key.
type AuthError struct {
	Provider string
}

func (e AuthError) Error() string {
	return fmt.Sprintf("%s rejected the API key (check configuration)", e.Provider)
}

// SymbolNotFoundError reports a 404 or empty payload for a ticker.
type SymbolNotFoundError struct {
	Symbol   string
	Provider string
}

func (e SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found in %s (check the symbol)", e.Symbol, e.Provider)
}

// TransportError reports a network failure or timeout talking to an
// upstream provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("network error talking to %s: %v", e.Provider, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ResearchUnreachableError reports that the research backend could not be
// reached at all (connection refused, DNS failure).
type ResearchUnreachableError struct {
	BaseURL string
	Err     error
}

func (e ResearchUnreachableError) Error() string {
	return fmt.Sprintf("research service unreachable at %s: %v", e.BaseURL, e.Err)
}

func (e ResearchUnreachableError) Unwrap() error { return e.Err }

// NoGrowthDataError reports that no positive growth rate was available to
// derive the default growth assumption.
type NoGrowthDataError struct{}

func (e NoGrowthDataError) Error() string {
	return "no valid growth rate data available (growth rates are required for calculations)"
}
