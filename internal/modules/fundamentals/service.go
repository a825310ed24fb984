package fundamentals

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/margin/internal/clients/fmp"
	"github.com/aristath/margin/internal/domain"
)

// QuoteProvider fetches a raw quote record for a symbol.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (map[string]interface{}, error)
}

// FundamentalsProvider fetches the fundamentals payloads for a symbol.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (*fmp.Payloads, error)
}

// Service assembles the canonical StockData for a symbol: quote and
// fundamentals from the primary provider, with a secondary quote
// provider standing in when the primary cannot deliver a price.
type Service struct {
	primary   QuoteProvider
	secondary QuoteProvider
	fund      FundamentalsProvider
	log       zerolog.Logger
}

// NewService creates a fundamentals service.
// secondary may be nil when no fallback provider is configured.
func NewService(primary QuoteProvider, secondary QuoteProvider, fund FundamentalsProvider, log zerolog.Logger) *Service {
	return &Service{
		primary:   primary,
		secondary: secondary,
		fund:      fund,
		log:       log.With().Str("service", "fundamentals").Logger(),
	}
}

// GetStockData fetches, merges and normalizes all data for one symbol.
// Quote and fundamentals are fetched concurrently; cancelling ctx
// cancels both.
func (s *Service) GetStockData(ctx context.Context, symbol string) (*domain.StockData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.MissingFieldError{Field: "symbol", Cause: "no symbol provided"}
	}

	type quoteResult struct {
		record map[string]interface{}
		err    error
	}
	type fundResult struct {
		payloads *fmp.Payloads
		err      error
	}

	quoteCh := make(chan quoteResult, 1)
	fundCh := make(chan fundResult, 1)

	go func() {
		record, err := s.primary.FetchQuote(ctx, symbol)
		quoteCh <- quoteResult{record, err}
	}()
	go func() {
		payloads, err := s.fund.FetchFundamentals(ctx, symbol)
		fundCh <- fundResult{payloads, err}
	}()

	quote := <-quoteCh
	fund := <-fundCh

	if quote.err != nil && s.secondary != nil {
		s.log.Warn().Err(quote.err).Str("symbol", symbol).Msg("Primary quote failed, trying secondary provider")
		record, err := s.secondary.FetchQuote(ctx, symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Secondary quote provider also failed")
			// The primary's error is the more useful one to surface.
			return nil, quote.err
		}
		quote = quoteResult{record: record}
	}
	if quote.err != nil {
		return nil, quote.err
	}

	if fund.err != nil {
		// Without fundamentals the required fields cannot be met, so
		// auth and rate-limit failures surface as-is. Anything else
		// degrades and lets normalization report what is missing.
		var authErr domain.AuthError
		var rateErr domain.RateLimitError
		if errors.As(fund.err, &authErr) || errors.As(fund.err, &rateErr) {
			return nil, fund.err
		}
		s.log.Warn().Err(fund.err).Str("symbol", symbol).Msg("Fundamentals unavailable, continuing with quote only")
		fund.payloads = nil
	}

	data, err := Normalize(symbol, quote.record, fund.payloads)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("symbol", data.Symbol).
		Float64("price", data.CurrentPrice).
		Float64("eps", data.EPS).
		Msg("Stock data assembled")

	return data, nil
}
