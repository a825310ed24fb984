// Package domain contains the core types shared across modules.
// The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// Signal is the trade signal derived from current price vs valuation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalWait Signal = "WAIT"
	// SignalSell is declared but never produced by the current signal rule.
	// Kept in the type so API consumers can handle it if a sell threshold
	// is ever introduced.
	SignalSell Signal = "SELL"
)

// StockData is the canonical fundamentals record produced by the
// fundamentals normalizer. Required fields (CurrentPrice, EPS, EPSGrowth,
// SalesGrowth) are plain values because their absence is a hard error at
// normalization time, never a default. Optional fields are pointers and
// serialize as null when the upstream data could not be extracted.
type StockData struct {
	Symbol          string   `json:"symbol"`
	CompanyName     string   `json:"companyName"`
	CurrentPrice    float64  `json:"currentPrice"`
	EPS             float64  `json:"eps"`
	EPSGrowth       float64  `json:"epsGrowth"`       // percent
	SalesGrowth     float64  `json:"salesGrowth"`     // percent
	BookValueGrowth *float64 `json:"bookValueGrowth"` // percent
	ROE             *float64 `json:"roe"`             // percent
	DebtToEquity    *float64 `json:"debtToEquity"`
	CurrentRatio    *float64 `json:"currentRatio"`
	PERatio         *float64 `json:"peRatio"`
	LastUpdated     string   `json:"lastUpdated"`
}

// CalculatedMetrics is the valuation output for a stock.
type CalculatedMetrics struct {
	StickerPrice     float64 `json:"stickerPrice"`
	MOSPrice         float64 `json:"mosPrice"`
	Signal           Signal  `json:"signal"`
	CustomGrowthRate float64 `json:"customGrowthRate"` // percent actually used
}

// CriterionCategory distinguishes formula-derived from researched criteria.
type CriterionCategory string

const (
	CategoryQuantitative CriterionCategory = "quantitative"
	CategoryQualitative  CriterionCategory = "qualitative"
)

// DataSource identifies where a criterion rating came from.
type DataSource string

const (
	SourceStockData DataSource = "stockdata"
	SourceResearch  DataSource = "research"
	SourceManual    DataSource = "manual"
)

// Confidence expresses how well-supported a rating is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Criterion is one entry of the 15-point Fisher checklist.
// Rating is nil when the criterion has not been rated.
type Criterion struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      CriterionCategory `json:"category"`
	Rating        *int              `json:"rating"` // 1-5
	Justification string            `json:"justification"`
	DataSource    DataSource        `json:"dataSource"`
	Confidence    Confidence        `json:"confidence,omitempty"`
	Sources       []string          `json:"sources"`
	LastUpdated   time.Time         `json:"lastUpdated"`
}

// Scorecard is a completed 15-criterion Fisher checklist for one symbol.
// Criteria are ordered by id 1..15 with exactly one entry per id.
type Scorecard struct {
	Symbol       string      `json:"symbol"`
	CompanyName  string      `json:"companyName"`
	OverallScore float64     `json:"overallScore"` // mean of present ratings, 0 if none
	Criteria     []Criterion `json:"criteria"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastUpdated  time.Time   `json:"lastUpdated"`
}

// ResearchRequest is the payload sent to the qualitative research provider.
type ResearchRequest struct {
	Symbol             string `json:"symbol"`
	CompanyName        string `json:"companyName"`
	CriteriaToResearch []int  `json:"criteriaToResearch"`
}

// CriterionRating is one researched rating as returned by a provider.
type CriterionRating struct {
	CriterionID   int      `json:"criterionId" validate:"required,min=1,max=15"`
	Rating        int      `json:"rating" validate:"required,min=1,max=5"`
	Justification string   `json:"justification"`
	KeyFindings   []string `json:"keyFindings"`
	Sources       []string `json:"sources"`
	Confidence    string   `json:"confidence" validate:"required,oneof=high medium low"`
}

// ResearchResponse is the full provider answer for one symbol.
type ResearchResponse struct {
	Symbol       string            `json:"symbol"`
	Ratings      []CriterionRating `json:"ratings" validate:"dive"`
	ResearchDate time.Time         `json:"researchDate"`
	ModelUsed    string            `json:"modelUsed"`
}
