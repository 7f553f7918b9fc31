package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vekfolio/riskengine/pkg/formulas"
)

func TestHistoricalVaR(t *testing.T) {
	// Sorted: -0.02, -0.01, 0.005, 0.01, 0.015
	returns := []float64{0.01, -0.02, 0.015, -0.01, 0.005}

	// 5th percentile: h = 4*0.05 = 0.2 between -0.02 and -0.01 -> -0.018
	assert.InDelta(t, 0.018, HistoricalVaR(returns, Confidence95), 1e-12)
	// 1st percentile: h = 4*0.01 = 0.04 -> -0.0196
	assert.InDelta(t, 0.0196, HistoricalVaR(returns, Confidence99), 1e-12)

	assert.Equal(t, 0.0, HistoricalVaR(nil, Confidence95))
}

func TestHistoricalCVaR(t *testing.T) {
	cvar95, err := HistoricalCVaR(thirtyReturns, Confidence95)
	require.NoError(t, err)

	var95 := HistoricalVaR(thirtyReturns, Confidence95)
	assert.GreaterOrEqual(t, cvar95, var95)

	// CVaR is the mean of returns at or below the 5th percentile, negated
	threshold := formulas.Quantile(thirtyReturns, 0.05)
	sum, count := 0.0, 0
	for _, r := range thirtyReturns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	require.Positive(t, count)
	assert.InDelta(t, -(sum / float64(count)), cvar95, 1e-12)
}

func TestHistoricalCVaRDegenerate(t *testing.T) {
	small := []float64{0.01, -0.02, 0.015, -0.01, 0.005}
	require.Less(t, len(small), MinTailObservations)

	_, err := HistoricalCVaR(small, Confidence95)
	var degenerate *DegenerateDistributionError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, len(small), degenerate.Observations)
	assert.Equal(t, Confidence95, degenerate.Confidence)
	assert.Contains(t, err.Error(), "95% confidence")

	_, err = HistoricalCVaR(small, Confidence99)
	require.ErrorAs(t, err, &degenerate)
	assert.Contains(t, err.Error(), "99% confidence")
}

func TestParametricVaR(t *testing.T) {
	mean := formulas.Mean(thirtyReturns)
	sd := formulas.StdDev(thirtyReturns)

	assert.InDelta(t, 1.645*sd-mean, ParametricVaR(thirtyReturns, Confidence95), 1e-12)
	assert.InDelta(t, 2.326*sd-mean, ParametricVaR(thirtyReturns, Confidence99), 1e-12)
	assert.InDelta(t, 1.282*sd-mean, ParametricVaR(thirtyReturns, 0.90), 1e-12)
	assert.Equal(t, 0.0, ParametricVaR([]float64{0.01}, Confidence95))
}

func TestHHIAndDiversification(t *testing.T) {
	equal := map[string]float64{"AAA": 0.25, "BBB": 0.25, "CCC": 0.25, "DDD": 0.25}
	assert.InDelta(t, 0.25, HHI(equal), 1e-12)
	assert.InDelta(t, 0.75, DiversificationScore(HHI(equal)), 1e-12)
	assert.InDelta(t, 4.0, EffectivePositions(HHI(equal)), 1e-12)

	single := map[string]float64{"AAA": 1.0}
	assert.InDelta(t, 1.0, HHI(single), 1e-12)
	assert.Equal(t, 0.0, DiversificationScore(HHI(single)))
	assert.InDelta(t, 1.0, EffectivePositions(HHI(single)), 1e-12)

	assert.Equal(t, 0.0, DiversificationScore(0))
	assert.Equal(t, 0.0, EffectivePositions(0))
}

func TestAssessRiskLevel(t *testing.T) {
	// Low vol, well diversified, small tail loss
	assert.Equal(t, "Low", assessRiskLevel(0.05, 0.80, 0.005))
	// Mid everything
	assert.Equal(t, "Medium", assessRiskLevel(0.15, 0.50, 0.02))
	// High vol, concentrated, deep tail
	assert.Equal(t, "High", assessRiskLevel(0.35, 0.10, 0.05))
}
