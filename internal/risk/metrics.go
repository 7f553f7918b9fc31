package risk

import (
	"math"

	"github.com/vekfolio/riskengine/pkg/formulas"
)

// MinTailObservations is the declared minimum sample size for a stable CVaR
// estimate. Below it the metric is withheld and a data-quality notice is
// recorded instead of failing the report.
const MinTailObservations = 20

// Confidence levels always computed for VaR and CVaR.
const (
	Confidence95 = 0.95
	Confidence99 = 0.99
)

// HistoricalVaR computes the historical (empirical-quantile) Value at Risk at
// the given confidence level, expressed as a positive loss fraction of
// portfolio value: VaR(a) = -quantile(returns, 1-a).
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return -formulas.Quantile(returns, 1-confidence)
}

// HistoricalCVaR computes the expected shortfall: the average of all returns
// at or below the VaR quantile threshold, negated to a positive loss.
// Fails with DegenerateDistributionError below MinTailObservations.
func HistoricalCVaR(returns []float64, confidence float64) (float64, error) {
	if len(returns) < MinTailObservations {
		return 0, &DegenerateDistributionError{Confidence: confidence, Observations: len(returns)}
	}

	threshold := formulas.Quantile(returns, 1-confidence)
	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		// The threshold is the interpolated quantile of the sample itself,
		// so at least the minimum observation always qualifies.
		return 0, &DegenerateDistributionError{Confidence: confidence, Observations: len(returns)}
	}
	return -(sum / float64(count)), nil
}

// ParametricVaR computes the variance-covariance (normal approximation) VaR
// at the given confidence level as a positive daily loss fraction. This is an
// additional named method; the report's default VaR is always historical.
func ParametricVaR(returns []float64, confidence float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	z := zScore(confidence)
	return z*formulas.StdDev(returns) - formulas.Mean(returns)
}

func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.326
	case confidence >= 0.95:
		return 1.645
	default:
		return 1.282
	}
}

// HHI computes the Herfindahl-Hirschman concentration index: the sum of
// squared weights. Ranges over (0, 1]; 1.0 means a single position.
func HHI(weights map[string]float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w * w
	}
	return sum
}

// DiversificationScore is the normalized complement of HHI: 0 for a single
// position, approaching 1 as holdings spread evenly.
func DiversificationScore(hhi float64) float64 {
	if hhi <= 0 {
		return 0
	}
	return 1 - math.Min(hhi, 1)
}

// EffectivePositions is the equivalent number of equally-weighted positions
// implied by the concentration: 1/HHI.
func EffectivePositions(hhi float64) float64 {
	if hhi <= 0 {
		return 0
	}
	return 1 / hhi
}
