// Package fundamentals turns raw provider payloads into the canonical
// StockData record. Providers disagree on field names, payload shapes,
// and whether rates arrive as decimals or percentages; everything is
// reconciled here so the rest of the system sees one unit convention
// (rates in percent).
package fundamentals

import (
	"math"
	"strconv"
	"time"

	"github.com/aristath/margin/internal/clients/fmp"
	"github.com/aristath/margin/internal/domain"
)

// record identifies which payload an alias reads from.
type record int

const (
	recQuote record = iota
	recMetrics
	recRatios
	recGrowth
	recProfile
)

// alias is one (payload, field) candidate. Alias lists are ordered by
// reliability: current /stable/ field names first, legacy names after.
type alias struct {
	rec   record
	field string
}

var (
	priceAliases = []alias{
		{recQuote, "price"},
		{recQuote, "close"},
		{recQuote, "last_price"},
		{recQuote, "latest_price"},
		{recQuote, "market_price"},
	}

	epsAliases = []alias{
		{recRatios, "netIncomePerShareTTM"},
		{recRatios, "netIncomePerShare"},
		{recMetrics, "eps"},
		{recMetrics, "earningsPerShare"},
		{recMetrics, "earningsPerShareTTM"},
		{recMetrics, "trailingEps"},
		{recRatios, "earningsPerShare"},
		{recRatios, "eps"},
		{recQuote, "eps"},
		{recQuote, "earnings_per_share"},
		{recQuote, "diluted_eps"},
	}

	peAliases = []alias{
		{recRatios, "priceToEarningsRatioTTM"},
		{recRatios, "priceToEarningsRatio"},
		{recMetrics, "peRatio"},
		{recMetrics, "priceToEarningsRatio"},
		{recMetrics, "priceEarningsRatio"},
		{recMetrics, "pe"},
		{recRatios, "peRatio"},
		{recRatios, "priceEarningsRatio"},
		{recQuote, "pe"},
		{recQuote, "pe_ratio"},
		{recQuote, "price_to_earnings"},
	}

	roeAliases = []alias{
		{recMetrics, "returnOnEquityTTM"},
		{recRatios, "returnOnEquityTTM"},
		{recMetrics, "roe"},
		{recMetrics, "returnOnEquity"},
		{recRatios, "roe"},
		{recRatios, "returnOnEquity"},
	}

	debtToEquityAliases = []alias{
		{recRatios, "debtToEquityRatioTTM"},
		{recRatios, "debtToEquityRatio"},
		{recMetrics, "debtEquityRatio"},
		{recMetrics, "debtToEquity"},
		{recMetrics, "debtToEquityRatio"},
		{recRatios, "debtEquityRatio"},
		{recRatios, "debtToEquity"},
	}

	currentRatioAliases = []alias{
		{recRatios, "currentRatioTTM"},
		{recMetrics, "currentRatioTTM"},
		{recRatios, "currentRatio"},
		{recMetrics, "currentRatio"},
	}

	epsGrowthAliases = []alias{
		{recGrowth, "growthEPS"},
		{recGrowth, "growthEPSDiluted"},
		{recGrowth, "growthEps"},
		{recGrowth, "growthEarningsPerShare"},
		{recGrowth, "epsGrowth"},
		{recGrowth, "earningsPerShareGrowth"},
	}

	salesGrowthAliases = []alias{
		{recGrowth, "growthRevenue"},
		{recGrowth, "growthSales"},
		{recGrowth, "revenueGrowth"},
		{recGrowth, "salesGrowth"},
		{recGrowth, "revenueGrowthPercentage"},
		{recGrowth, "revenueGrowthPercent"},
	}

	bookValueGrowthAliases = []alias{
		{recGrowth, "growthBookValue"},
		{recGrowth, "growthBVPS"},
		{recGrowth, "bookValueGrowth"},
		{recGrowth, "bookValuePerShareGrowth"},
	}

	companyNameAliases = []alias{
		{recProfile, "companyName"},
		{recProfile, "name"},
		{recProfile, "symbol"},
		{recMetrics, "companyName"},
		{recMetrics, "name"},
		{recQuote, "name"},
		{recQuote, "company_name"},
	}

	symbolAliases = []alias{
		{recQuote, "ticker"},
		{recQuote, "symbol"},
	}
)

// payloads bundles the raw records for one symbol. Any map may be nil.
type payloads struct {
	quote   map[string]interface{}
	metrics map[string]interface{}
	ratios  map[string]interface{}
	growth  map[string]interface{}
	profile map[string]interface{}
}

func (p payloads) lookup(a alias) (interface{}, bool) {
	var m map[string]interface{}
	switch a.rec {
	case recQuote:
		m = p.quote
	case recMetrics:
		m = p.metrics
	case recRatios:
		m = p.ratios
	case recGrowth:
		m = p.growth
	case recProfile:
		m = p.profile
	}
	if m == nil {
		return nil, false
	}
	v, ok := m[a.field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// firstNumber returns the first alias that resolves to a parseable number.
func (p payloads) firstNumber(aliases []alias) (float64, bool) {
	for _, a := range aliases {
		v, ok := p.lookup(a)
		if !ok {
			continue
		}
		if num, ok := toNumber(v); ok {
			return num, true
		}
	}
	return 0, false
}

// firstString returns the first alias that resolves to a non-empty string.
func (p payloads) firstString(aliases []alias) (string, bool) {
	for _, a := range aliases {
		v, ok := p.lookup(a)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// toNumber accepts JSON numbers and numeric strings. Some providers quote
// their numbers.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Normalize merges a quote record and fundamentals payloads into the
// canonical StockData. CurrentPrice, EPS, EPSGrowth and SalesGrowth are
// required; a missing one is a MissingFieldError, never a default.
func Normalize(symbol string, quote map[string]interface{}, fm *fmp.Payloads) (*domain.StockData, error) {
	p := payloads{quote: quote}
	if fm != nil {
		p.metrics = fm.Metrics
		p.ratios = fm.Ratios
		p.growth = fm.Growth
		p.profile = fm.Profile
	}

	price, ok := p.firstNumber(priceAliases)
	if !ok || price == 0 {
		return nil, domain.MissingFieldError{
			Field: "currentPrice",
			Cause: "no price in any provider payload (check the symbol)",
		}
	}

	epsRaw, ok := p.firstNumber(epsAliases)
	if !ok {
		return nil, domain.MissingFieldError{
			Field: "eps",
			Cause: "earnings per share not available from any provider (required for calculations)",
		}
	}
	eps := normalizeEPS(epsRaw)
	if eps == nil {
		return nil, domain.MissingFieldError{
			Field: "eps",
			Cause: "earnings per share value is out of range",
		}
	}

	epsGrowthRaw, ok := p.firstNumber(epsGrowthAliases)
	if !ok {
		return nil, domain.MissingFieldError{
			Field: "epsGrowth",
			Cause: "EPS growth rate not available (required for calculations)",
		}
	}

	salesGrowthRaw, ok := p.firstNumber(salesGrowthAliases)
	if !ok {
		return nil, domain.MissingFieldError{
			Field: "salesGrowth",
			Cause: "sales growth rate not available (required for calculations)",
		}
	}

	data := &domain.StockData{
		Symbol:       symbol,
		CurrentPrice: price,
		EPS:          *eps,
		EPSGrowth:    normalizeGrowth(epsGrowthRaw),
		SalesGrowth:  normalizeGrowth(salesGrowthRaw),
		LastUpdated:  time.Now().Format(time.RFC3339),
	}

	if s, ok := p.firstString(symbolAliases); ok {
		data.Symbol = s
	}
	if name, ok := p.firstString(companyNameAliases); ok {
		data.CompanyName = name
	} else {
		data.CompanyName = symbol
	}

	if v, ok := p.firstNumber(peAliases); ok {
		data.PERatio = normalizeRatio(v)
	}
	if v, ok := p.firstNumber(roeAliases); ok {
		data.ROE = normalizeRate(v)
	}
	if v, ok := p.firstNumber(debtToEquityAliases); ok {
		data.DebtToEquity = normalizeRatio(v)
	}
	if v, ok := p.firstNumber(currentRatioAliases); ok {
		data.CurrentRatio = normalizeRatio(v)
	}
	if v, ok := p.firstNumber(bookValueGrowthAliases); ok {
		data.BookValueGrowth = normalizeRate(v)
	}

	return data, nil
}

// normalizeRate converts a rate to percent. Providers return ROE and
// book-value growth either as a decimal (0.45) or already as a
// percentage (45); magnitude decides which.
func normalizeRate(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if math.Abs(v) > 1 {
		return &v
	}
	scaled := v * 100
	return &scaled
}

// defaultGrowthPercent stands in when a growth value is present but not
// a finite number. 8% is a deliberately unexciting assumption.
const defaultGrowthPercent = 8.0

// normalizeGrowth converts a growth rate to percent. Growth can be
// negative, so both tails pass through unscaled.
func normalizeGrowth(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return defaultGrowthPercent
	}
	if v > 1 || v < -1 {
		return v
	}
	return v * 100
}

// normalizeEPS validates EPS. Negative (losses) and zero (break-even)
// are legitimate; values beyond +-1000 are treated as corrupt.
func normalizeEPS(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if math.Abs(v) > 1000 {
		return nil
	}
	return &v
}

// normalizeRatio validates a plain ratio without rescaling.
func normalizeRatio(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
