// Package scorecard builds the 15-point Fisher checklist for a symbol:
// two criteria rated from fundamentals, the other thirteen rated by a
// qualitative research provider, merged into one scorecard.
package scorecard

import (
	"fmt"
	"time"

	"github.com/aristath/margin/internal/domain"
)

// QuantitativeCriteria rates the formula-derived criteria (1 and 5)
// from the stock's fundamentals.
func QuantitativeCriteria(data *domain.StockData, now time.Time) []domain.Criterion {
	marketRating, marketJustification := rateMarketPotential(data)
	marginRating, marginJustification := rateProfitMargin(data)

	spec1, _ := domain.FisherCriterionByID(1)
	spec5, _ := domain.FisherCriterionByID(5)

	return []domain.Criterion{
		{
			ID:            spec1.ID,
			Title:         spec1.Title,
			Description:   spec1.Description,
			Category:      domain.CategoryQuantitative,
			Rating:        &marketRating,
			Justification: marketJustification,
			DataSource:    domain.SourceStockData,
			Confidence:    domain.ConfidenceHigh,
			Sources:       []string{"Fundamentals API - Revenue Growth"},
			LastUpdated:   now,
		},
		{
			ID:            spec5.ID,
			Title:         spec5.Title,
			Description:   spec5.Description,
			Category:      domain.CategoryQuantitative,
			Rating:        &marginRating,
			Justification: marginJustification,
			DataSource:    domain.SourceStockData,
			Confidence:    domain.ConfidenceHigh,
			Sources:       []string{"Fundamentals API - ROE, Financial Ratios"},
			LastUpdated:   now,
		},
	}
}

// rateMarketPotential bands the average of EPS and sales growth.
func rateMarketPotential(data *domain.StockData) (int, string) {
	avgGrowth := (data.EPSGrowth + data.SalesGrowth) / 2
	figures := fmt.Sprintf("Revenue growth: %.1f%%, EPS growth: %.1f%%", data.SalesGrowth, data.EPSGrowth)

	switch {
	case avgGrowth >= 20:
		return 5, fmt.Sprintf("Exceptional growth potential with %.1f%% average growth rate. %s. This indicates strong market demand and expansion capability.", avgGrowth, figures)
	case avgGrowth >= 15:
		return 4, fmt.Sprintf("Strong growth potential with %.1f%% average growth rate. %s. Above-average market expansion.", avgGrowth, figures)
	case avgGrowth >= 10:
		return 3, fmt.Sprintf("Moderate growth potential with %.1f%% average growth rate. %s. Steady but not exceptional.", avgGrowth, figures)
	case avgGrowth >= 5:
		return 2, fmt.Sprintf("Below-average growth potential with %.1f%% average growth rate. %s. Limited expansion potential.", avgGrowth, figures)
	default:
		return 1, fmt.Sprintf("Poor growth potential with %.1f%% average growth rate. %s. Minimal market expansion capability.", avgGrowth, figures)
	}
}

// rateProfitMargin bands ROE. A missing ROE rates as zero rather than
// skipping the criterion, which keeps the scorecard complete.
func rateProfitMargin(data *domain.StockData) (int, string) {
	roe := 0.0
	if data.ROE != nil {
		roe = *data.ROE
	}

	switch {
	case roe >= 20:
		return 5, fmt.Sprintf("Excellent profit margins with %.1f%% ROE. This demonstrates superior capital efficiency and strong pricing power, placing the company well above industry averages.", roe)
	case roe >= 15:
		return 4, fmt.Sprintf("Good profit margins with %.1f%% ROE. Above-average returns on equity indicate effective management and competitive advantages.", roe)
	case roe >= 10:
		return 3, fmt.Sprintf("Average profit margins with %.1f%% ROE. Acceptable returns but room for improvement in operational efficiency.", roe)
	case roe >= 5:
		return 2, fmt.Sprintf("Below-average profit margins with %.1f%% ROE. Returns are subpar, indicating challenges in operational efficiency or competitive positioning.", roe)
	default:
		return 1, fmt.Sprintf("Poor profit margins with %.1f%% ROE. Very low returns on equity suggest significant operational or competitive challenges.", roe)
	}
}
