package risk

import (
	"math"

	"github.com/vekfolio/riskengine/pkg/formulas"
)

// CorrelationMatrix is a symmetric pairwise Pearson correlation matrix over
// the tickers with sufficient aligned history, in position supply order.
// The diagonal is 1.0.
type CorrelationMatrix struct {
	Tickers            []string    `json:"tickers"`
	Matrix             [][]float64 `json:"matrix"`
	AverageCorrelation float64     `json:"average_correlation"`
}

// CovarianceMatrix is the matching pairwise sample covariance matrix.
// The diagonal holds each ticker's variance.
type CovarianceMatrix struct {
	Tickers []string    `json:"tickers"`
	Matrix  [][]float64 `json:"matrix"`
}

// BuildMatrices computes the correlation and covariance matrices over the
// aligned return series. Tickers keeps the caller's supply order; tickers
// missing from the aligned set are skipped.
func BuildMatrices(aligned map[string]ReturnSeries, tickers []string) (*CorrelationMatrix, *CovarianceMatrix) {
	included := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := aligned[t]; ok {
			included = append(included, t)
		}
	}
	if len(included) < 2 {
		return nil, nil
	}

	n := len(included)
	corr := make([][]float64, n)
	cov := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
		cov[i] = make([]float64, n)
	}

	offDiagSum := 0.0
	offDiagCount := 0
	for i := 0; i < n; i++ {
		ri := aligned[included[i]].Returns
		corr[i][i] = 1.0
		cov[i][i] = formulas.Variance(ri)
		for j := i + 1; j < n; j++ {
			rj := aligned[included[j]].Returns
			c := formulas.Correlation(ri, rj)
			v := formulas.Covariance(ri, rj)
			corr[i][j], corr[j][i] = c, c
			cov[i][j], cov[j][i] = v, v
			offDiagSum += c
			offDiagCount++
		}
	}

	avg := 0.0
	if offDiagCount > 0 {
		avg = offDiagSum / float64(offDiagCount)
	}

	return &CorrelationMatrix{Tickers: included, Matrix: corr, AverageCorrelation: avg},
		&CovarianceMatrix{Tickers: included, Matrix: cov}
}

// portfolioVolatilityFromCovariance computes annualized portfolio volatility
// as sqrt(w' * Cov * w) * sqrt(252) using the given per-ticker weights.
func portfolioVolatilityFromCovariance(cov *CovarianceMatrix, weights map[string]float64) float64 {
	if cov == nil {
		return 0
	}
	n := len(cov.Tickers)
	w := make([]float64, n)
	for i, t := range cov.Tickers {
		w[i] = weights[t]
	}

	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * cov.Matrix[i][j]
		}
	}
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance) * math.Sqrt(formulas.TradingDaysPerYear)
}
