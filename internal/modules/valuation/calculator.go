// Package valuation implements the Rule #1 valuation: project earnings
// ten years out, cap the multiple, discount back at the minimum
// acceptable rate of return, then demand a 50% margin of safety.
package valuation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/margin/internal/domain"
)

const (
	// ProjectionYears is the Rule #1 horizon.
	ProjectionYears = 10
	// MARR is the minimum acceptable rate of return used for discounting.
	MARR = 0.15
	// MOSDiscount is the margin-of-safety haircut on the sticker price.
	MOSDiscount = 0.5

	futurePEMin = 8.0
	futurePEMax = 25.0
)

// StickerPrice computes the fair value of a stock from its EPS and an
// assumed annual growth rate (in percent).
//
// futureEPS = eps * (1 + g)^10
// futurePE  = clamp(2 * g%, 8, 25)
// sticker   = futureEPS * futurePE / 1.15^10
//
// The future PE multiplies the growth PERCENTAGE by two, so 10% growth
// gives a PE of 20. Negative results clamp to zero: a negative price
// target is meaningless.
func StickerPrice(eps, growthPercent float64) float64 {
	growthDecimal := growthPercent / 100

	futureEPS := eps * math.Pow(1+growthDecimal, ProjectionYears)
	futurePE := math.Min(math.Max(2*growthPercent, futurePEMin), futurePEMax)

	sticker := futureEPS * futurePE / math.Pow(1+MARR, ProjectionYears)
	return math.Max(sticker, 0)
}

// MOSPrice is the buy-below price: half the sticker price.
func MOSPrice(stickerPrice float64) float64 {
	return stickerPrice * MOSDiscount
}

// DetermineSignal maps price against the valuation. At or below the MOS
// price is a BUY; everything above is a WAIT, including prices above the
// sticker price. SELL is reserved for a future sell threshold.
func DetermineSignal(currentPrice, stickerPrice, mosPrice float64) domain.Signal {
	if currentPrice <= mosPrice {
		return domain.SignalBuy
	}
	return domain.SignalWait
}

// CalculateMetrics computes the full valuation for a stock.
// customGrowth, when non-nil, overrides the growth assumption (percent);
// otherwise DefaultGrowthRate picks the conservative minimum, and its
// error is returned when no positive rate exists.
func CalculateMetrics(data *domain.StockData, customGrowth *float64) (domain.CalculatedMetrics, error) {
	var growth float64
	if customGrowth != nil {
		growth = *customGrowth
	} else {
		rate, err := DefaultGrowthRate(data)
		if err != nil {
			return domain.CalculatedMetrics{}, err
		}
		growth = rate
	}

	sticker := StickerPrice(data.EPS, growth)
	mos := MOSPrice(sticker)

	return domain.CalculatedMetrics{
		StickerPrice:     sticker,
		MOSPrice:         mos,
		Signal:           DetermineSignal(data.CurrentPrice, sticker, mos),
		CustomGrowthRate: growth,
	}, nil
}

// DefaultGrowthRate picks the most conservative growth assumption: the
// minimum of the positive growth rates on record. With no positive rate
// there is nothing defensible to project from, so it errors instead of
// guessing.
func DefaultGrowthRate(data *domain.StockData) (float64, error) {
	rates := []float64{data.EPSGrowth, data.SalesGrowth}
	if data.BookValueGrowth != nil {
		rates = append(rates, *data.BookValueGrowth)
	}

	positive := rates[:0]
	for _, r := range rates {
		if r > 0 {
			positive = append(positive, r)
		}
	}
	if len(positive) == 0 {
		return 0, domain.NoGrowthDataError{}
	}

	return floats.Min(positive), nil
}
