package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	data := []float64{0.01, -0.02, 0.015, -0.01, 0.005}

	assert.InDelta(t, 0.0, Mean(data), 1e-9)

	// Sample standard deviation with n-1 divisor:
	// variance = (0.0001 + 0.0004 + 0.000225 + 0.0001 + 0.000025) / 4
	expectedVar := (0.0001 + 0.0004 + 0.000225 + 0.0001 + 0.000025) / 4
	assert.InDelta(t, expectedVar, Variance(data), 1e-12)
	assert.InDelta(t, math.Sqrt(expectedVar), StdDev(data), 1e-12)
}

func TestMeanEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{0.01}))
}

func TestCovarianceMatchesVarianceOnSelf(t *testing.T) {
	data := []float64{0.02, -0.01, 0.005, 0.03, -0.015}
	assert.InDelta(t, Variance(data), Covariance(data, data), 1e-12)
}

func TestCorrelationPerfect(t *testing.T) {
	x := []float64{0.01, -0.02, 0.015, -0.01, 0.005}
	y := []float64{0.02, -0.04, 0.03, -0.02, 0.01} // 2x, perfectly correlated

	assert.InDelta(t, 1.0, Correlation(x, x), 1e-9)
	assert.InDelta(t, 1.0, Correlation(x, y), 1e-9)

	inverse := []float64{-0.01, 0.02, -0.015, 0.01, -0.005}
	assert.InDelta(t, -1.0, Correlation(x, inverse), 1e-9)
}

func TestCorrelationZeroVariance(t *testing.T) {
	constant := []float64{0, 0, 0, 0, 0}
	varying := []float64{0.01, -0.02, 0.015, -0.01, 0.005}

	// Constant prices have zero variance; correlation is defined as 0
	// instead of dividing by zero.
	assert.Equal(t, 0.0, Correlation(constant, varying))
	assert.Equal(t, 0.0, Correlation(constant, constant))
}

func TestQuantileLinearInterpolation(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Quantile(data, 0), 1e-12)
	assert.InDelta(t, 5.0, Quantile(data, 1), 1e-12)
	assert.InDelta(t, 3.0, Quantile(data, 0.5), 1e-12)
	// h = 4 * 0.05 = 0.2 -> interpolate between the 1st and 2nd order statistics
	assert.InDelta(t, 1.2, Quantile(data, 0.05), 1e-12)
	// Unsorted input must give the same answer
	assert.InDelta(t, 1.2, Quantile([]float64{5, 3, 1, 4, 2}, 0.05), 1e-12)
}

func TestQuantileSmallSamples(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.95))
}

func TestAnnualizedVolatility(t *testing.T) {
	data := []float64{0.01, -0.02, 0.015, -0.01, 0.005}
	assert.InDelta(t, StdDev(data)*math.Sqrt(252), AnnualizedVolatility(data), 1e-12)
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}

func TestAnnualizedReturn(t *testing.T) {
	// Constant 0.1% daily return compounds to (1.001)^252 - 1
	data := make([]float64, 10)
	for i := range data {
		data[i] = 0.001
	}
	assert.InDelta(t, math.Pow(1.001, 252)-1, AnnualizedReturn(data), 1e-9)
	assert.Equal(t, 0.0, AnnualizedReturn(nil))
}

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 101, 99.99, 102}
	returns := CalculateReturns(prices)

	assert.Len(t, returns, 3)
	assert.InDelta(t, 0.01, returns[0], 1e-9)
	assert.InDelta(t, (99.99-101)/101, returns[1], 1e-9)
	assert.InDelta(t, (102-99.99)/99.99, returns[2], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}
