package valuation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/margin/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestStickerPrice(t *testing.T) {
	// eps=6, growth=10%: futureEPS = 6*1.1^10 = 15.56, PE = 20,
	// discounted at 15% over 10 years.
	sticker := StickerPrice(6, 10)
	assert.InDelta(t, 76.94, sticker, 0.01)
}

func TestStickerPriceFuturePEClamps(t *testing.T) {
	// 2*4 = 8 sits exactly at the floor.
	low := StickerPrice(1, 4)
	lowExpected := 1.0 * pow(1.04, 10) * 8 / pow(1.15, 10)
	assert.InDelta(t, lowExpected, low, 1e-9)

	// Below the floor the PE stays 8.
	floor := StickerPrice(1, 2)
	floorExpected := 1.0 * pow(1.02, 10) * 8 / pow(1.15, 10)
	assert.InDelta(t, floorExpected, floor, 1e-9)

	// 2*12.5 = 25 sits exactly at the cap; higher growth keeps PE 25.
	cap25 := StickerPrice(1, 12.5)
	capExpected := 1.0 * pow(1.125, 10) * 25 / pow(1.15, 10)
	assert.InDelta(t, capExpected, cap25, 1e-9)

	high := StickerPrice(1, 40)
	highExpected := 1.0 * pow(1.40, 10) * 25 / pow(1.15, 10)
	assert.InDelta(t, highExpected, high, 1e-9)
}

func TestStickerPriceNegativeEPSClampsToZero(t *testing.T) {
	assert.Equal(t, 0.0, StickerPrice(-3.5, 10))
}

func TestStickerPriceZeroEPS(t *testing.T) {
	assert.Equal(t, 0.0, StickerPrice(0, 10))
}

func TestMOSPrice(t *testing.T) {
	assert.Equal(t, 50.0, MOSPrice(100))
	assert.Equal(t, 0.0, MOSPrice(0))
}

func TestDetermineSignal(t *testing.T) {
	// At or below MOS price: BUY.
	assert.Equal(t, domain.SignalBuy, DetermineSignal(38, 76.94, 38.47))
	assert.Equal(t, domain.SignalBuy, DetermineSignal(38.47, 76.94, 38.47))

	// Between MOS and sticker: WAIT.
	assert.Equal(t, domain.SignalWait, DetermineSignal(60, 76.94, 38.47))

	// Above sticker: still WAIT, never SELL.
	assert.Equal(t, domain.SignalWait, DetermineSignal(120, 76.94, 38.47))
}

func TestCalculateMetrics(t *testing.T) {
	data := &domain.StockData{
		CurrentPrice: 100,
		EPS:          6,
		EPSGrowth:    10,
		SalesGrowth:  8,
	}

	// Nil override resolves the conservative default: min positive
	// growth on record, here sales at 8%, not EPS at 10%.
	metrics, err := CalculateMetrics(data, nil)
	require.NoError(t, err)
	assert.Equal(t, 8.0, metrics.CustomGrowthRate)
	assert.InDelta(t, StickerPrice(6, 8), metrics.StickerPrice, 1e-9)
	assert.InDelta(t, metrics.StickerPrice/2, metrics.MOSPrice, 1e-9)
	assert.Equal(t, domain.SignalWait, metrics.Signal)
}

func TestCalculateMetricsCustomGrowth(t *testing.T) {
	data := &domain.StockData{CurrentPrice: 10, EPS: 6, EPSGrowth: 10}

	metrics, err := CalculateMetrics(data, ptr(5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, metrics.CustomGrowthRate)
	assert.InDelta(t, StickerPrice(6, 5), metrics.StickerPrice, 1e-9)
	assert.Equal(t, domain.SignalBuy, metrics.Signal)
}

func TestCalculateMetricsNoPositiveGrowth(t *testing.T) {
	data := &domain.StockData{CurrentPrice: 10, EPS: 6, EPSGrowth: -3, SalesGrowth: -1}

	_, err := CalculateMetrics(data, nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &domain.NoGrowthDataError{})

	// An explicit override still works with no positive history.
	metrics, err := CalculateMetrics(data, ptr(5))
	require.NoError(t, err)
	assert.Equal(t, 5.0, metrics.CustomGrowthRate)
}

func TestDefaultGrowthRate(t *testing.T) {
	data := &domain.StockData{
		EPSGrowth:       12,
		SalesGrowth:     9,
		BookValueGrowth: ptr(15.0),
	}

	rate, err := DefaultGrowthRate(data)
	require.NoError(t, err)
	assert.Equal(t, 9.0, rate)
}

func TestDefaultGrowthRateIgnoresNonPositive(t *testing.T) {
	data := &domain.StockData{
		EPSGrowth:       -5,
		SalesGrowth:     7,
		BookValueGrowth: ptr(-2.0),
	}

	rate, err := DefaultGrowthRate(data)
	require.NoError(t, err)
	assert.Equal(t, 7.0, rate)
}

func TestDefaultGrowthRateNoPositiveRates(t *testing.T) {
	data := &domain.StockData{EPSGrowth: -5, SalesGrowth: 0}

	_, err := DefaultGrowthRate(data)
	var noGrowth domain.NoGrowthDataError
	assert.True(t, errors.As(err, &noGrowth))
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
