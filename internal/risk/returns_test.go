package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vekfolio/riskengine/internal/domain"
)

func TestBuildReturnSeries(t *testing.T) {
	series := datedSeries("AAA", []float64{100, 101, 99.99, 102})

	rs, err := BuildReturnSeries(series, 0)
	require.NoError(t, err)

	require.Len(t, rs.Returns, 3)
	assert.InDelta(t, 0.01, rs.Returns[0], 1e-9)
	assert.Equal(t, "2024-01-02", rs.Dates[0])
	assert.Equal(t, "2024-01-04", rs.Dates[2])
}

func TestBuildReturnSeriesInsufficient(t *testing.T) {
	_, err := BuildReturnSeries(datedSeries("AAA", []float64{100}), 0)

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "AAA", insufficient.Ticker)
	assert.Equal(t, 1, insufficient.Points)
}

func TestBuildReturnSeriesLookbackTrim(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rs, err := BuildReturnSeries(datedSeries("AAA", closes), 252)
	require.NoError(t, err)

	// lookback+1 points yield exactly lookback returns
	assert.Len(t, rs.Returns, 252)
}

func TestAlignReturnSeriesIntersection(t *testing.T) {
	// BBB is missing 2024-01-03; the common index drops that date for both.
	aaa := datedSeries("AAA", []float64{100, 102, 101, 103, 104})
	bbb := domain.PriceSeries{Ticker: "BBB", Points: []domain.PricePoint{
		{Date: "2024-01-01", Close: 50},
		{Date: "2024-01-02", Close: 51},
		{Date: "2024-01-04", Close: 52},
		{Date: "2024-01-05", Close: 53},
	}}
	histories := map[string]domain.PriceSeries{"AAA": aaa, "BBB": bbb}

	aligned, excluded := AlignReturnSeries(histories, []string{"AAA", "BBB"}, 0)
	require.Empty(t, excluded)
	require.Len(t, aligned, 2)

	// Common dates: 01, 02, 04, 05 -> 3 returns each, same date index
	assert.Len(t, aligned["AAA"].Returns, 3)
	assert.Len(t, aligned["BBB"].Returns, 3)
	assert.Equal(t, aligned["AAA"].Dates, aligned["BBB"].Dates)

	// The 02->04 AAA return spans the gap: (103-102)/102
	assert.InDelta(t, (103.0-102.0)/102.0, aligned["AAA"].Returns[1], 1e-9)
}

func TestAlignReturnSeriesDropsSparsest(t *testing.T) {
	aaa := datedSeries("AAA", []float64{100, 101, 102, 103, 104})
	// CCC shares no dates with AAA
	ccc := domain.PriceSeries{Ticker: "CCC", Points: []domain.PricePoint{
		{Date: "2023-06-01", Close: 10},
		{Date: "2023-06-02", Close: 11},
	}}
	histories := map[string]domain.PriceSeries{"AAA": aaa, "CCC": ccc}

	aligned, excluded := AlignReturnSeries(histories, []string{"AAA", "CCC"}, 0)

	require.Len(t, aligned, 1)
	assert.Contains(t, aligned, "AAA")
	assert.Equal(t, []string{"CCC"}, excluded)
	assert.Len(t, aligned["AAA"].Returns, 4)
}

func TestAlignReturnSeriesMissingTicker(t *testing.T) {
	histories := map[string]domain.PriceSeries{
		"AAA": datedSeries("AAA", []float64{100, 101, 102}),
	}

	aligned, excluded := AlignReturnSeries(histories, []string{"AAA", "ZZZ"}, 0)

	assert.Contains(t, aligned, "AAA")
	assert.Equal(t, []string{"ZZZ"}, excluded)
}

func TestPortfolioReturnsWeightedSum(t *testing.T) {
	aligned := map[string]ReturnSeries{
		"AAA": {Ticker: "AAA", Returns: []float64{0.01, 0.02}},
		"BBB": {Ticker: "BBB", Returns: []float64{-0.01, 0.04}},
	}
	weights := map[string]float64{"AAA": 0.5, "BBB": 0.25, "CASH": 0.25}

	returns := PortfolioReturns(aligned, weights)
	require.Len(t, returns, 2)

	// Cash holds 25% at zero return and drags the total down
	assert.InDelta(t, 0.5*0.01+0.25*-0.01, returns[0], 1e-12)
	assert.InDelta(t, 0.5*0.02+0.25*0.04, returns[1], 1e-12)
}

func TestWeightedReturnsRenormalizes(t *testing.T) {
	aligned := map[string]ReturnSeries{
		"AAA": {Ticker: "AAA", Returns: []float64{0.01, 0.02}},
		"BBB": {Ticker: "BBB", Returns: []float64{0.03, -0.01}},
	}
	// Definitional weights sum to 0.5 over the present tickers
	weights := map[string]float64{"AAA": 0.3, "BBB": 0.2, "MISSING": 0.5}

	returns := WeightedReturns(aligned, weights)
	require.Len(t, returns, 2)

	// Renormalized: AAA 0.6, BBB 0.4
	assert.InDelta(t, 0.6*0.01+0.4*0.03, returns[0], 1e-12)
	assert.InDelta(t, 0.6*0.02+0.4*-0.01, returns[1], 1e-12)
}

func TestComputeAnnualizedStatsZeroVol(t *testing.T) {
	stats := computeAnnualizedStats([]float64{0, 0, 0, 0}, 0.02)
	assert.Equal(t, 0.0, stats.Volatility)
	assert.Nil(t, stats.Sharpe)
}
