package risk

import (
	"math"

	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/pkg/formulas"
)

// StressKind identifies a deterministic shock scenario.
type StressKind string

const (
	// StressMarketCrash applies a uniform price drop to every holding.
	StressMarketCrash StressKind = "market_crash"
	// StressVolatilitySpike scales return dispersion around the mean.
	StressVolatilitySpike StressKind = "volatility_spike"
	// StressCorrelationBreakdown forces all pairwise correlations to a high value.
	StressCorrelationBreakdown StressKind = "correlation_breakdown"
)

// StressScenario parameterizes one shock. Only the field matching Kind is read.
type StressScenario struct {
	Kind StressKind `json:"kind"`
	Name string     `json:"name"`

	CrashPct      float64 `json:"crash_pct,omitempty"`      // market_crash: fractional price drop, e.g. 0.30
	VolMultiplier float64 `json:"vol_multiplier,omitempty"`  // volatility_spike: stddev multiplier, e.g. 2.0
	Correlation   float64 `json:"correlation,omitempty"`     // correlation_breakdown: forced pairwise rho, e.g. 0.9
}

// DefaultStressScenarios returns the standard shock set.
func DefaultStressScenarios() []StressScenario {
	return []StressScenario{
		{Kind: StressMarketCrash, Name: "30% market crash", CrashPct: 0.30},
		{Kind: StressVolatilitySpike, Name: "2x volatility spike", VolMultiplier: 2.0},
		{Kind: StressCorrelationBreakdown, Name: "correlation breakdown (0.9)", Correlation: 0.9},
	}
}

// StressResult reports the hypothetical impact of one scenario. Fields not
// produced by the scenario kind are left nil/zero.
type StressResult struct {
	Scenario StressKind `json:"scenario"`
	Name     string     `json:"name"`

	// market_crash
	PreShockValue  float64 `json:"pre_shock_value,omitempty"`
	PostShockValue float64 `json:"post_shock_value,omitempty"`
	Loss           float64 `json:"loss,omitempty"`
	LossPct        float64 `json:"loss_pct,omitempty"`

	// volatility_spike
	StressedVaR95  *float64 `json:"stressed_var_95,omitempty"`
	StressedVaR99  *float64 `json:"stressed_var_99,omitempty"`
	StressedCVaR95 *float64 `json:"stressed_cvar_95,omitempty"`
	StressedCVaR99 *float64 `json:"stressed_cvar_99,omitempty"`

	// correlation_breakdown
	BaselineVolatility *float64 `json:"baseline_volatility,omitempty"`
	StressedVolatility *float64 `json:"stressed_volatility,omitempty"`
}

// runStressScenarios evaluates each scenario independently against copies of
// the current inputs. Scenarios never mutate the supplied data and their
// order does not affect the results.
func (e *Engine) runStressScenarios(
	scenarios []StressScenario,
	positions []domain.PositionSnapshot,
	aligned map[string]ReturnSeries,
	cov *CovarianceMatrix,
	weights map[string]float64,
	portfolioReturns []float64,
) []StressResult {
	results := make([]StressResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		switch scenario.Kind {
		case StressMarketCrash:
			results = append(results, marketCrash(scenario, positions))
		case StressVolatilitySpike:
			results = append(results, volatilitySpike(scenario, portfolioReturns))
		case StressCorrelationBreakdown:
			results = append(results, correlationBreakdown(scenario, cov, weights))
		default:
			e.log.Warn().Str("kind", string(scenario.Kind)).Msg("Unknown stress scenario kind, skipping")
		}
	}
	return results
}

// marketCrash drops every non-cash holding's price uniformly by CrashPct and
// reports the hypothetical post-shock value and loss.
func marketCrash(scenario StressScenario, positions []domain.PositionSnapshot) StressResult {
	preValue := 0.0
	postValue := 0.0
	for _, pos := range positions {
		preValue += pos.MarketValue
		if pos.IsCash() {
			postValue += pos.MarketValue
			continue
		}
		postValue += pos.MarketValue * (1 - scenario.CrashPct)
	}

	result := StressResult{
		Scenario:       StressMarketCrash,
		Name:           scenario.Name,
		PreShockValue:  preValue,
		PostShockValue: postValue,
		Loss:           preValue - postValue,
	}
	if preValue > 0 {
		result.LossPct = result.Loss / preValue
	}
	return result
}

// volatilitySpike rescales each historical return around the sample mean
// (r' = mean + (r - mean) * multiplier, mean preserved) and recomputes the
// tail metrics under the widened distribution.
func volatilitySpike(scenario StressScenario, portfolioReturns []float64) StressResult {
	result := StressResult{Scenario: StressVolatilitySpike, Name: scenario.Name}
	if len(portfolioReturns) == 0 {
		return result
	}

	mean := formulas.Mean(portfolioReturns)
	scaled := make([]float64, len(portfolioReturns))
	for i, r := range portfolioReturns {
		scaled[i] = mean + (r-mean)*scenario.VolMultiplier
	}

	var95 := HistoricalVaR(scaled, Confidence95)
	var99 := HistoricalVaR(scaled, Confidence99)
	result.StressedVaR95 = &var95
	result.StressedVaR99 = &var99

	if cvar95, err := HistoricalCVaR(scaled, Confidence95); err == nil {
		result.StressedCVaR95 = &cvar95
	}
	if cvar99, err := HistoricalCVaR(scaled, Confidence99); err == nil {
		result.StressedCVaR99 = &cvar99
	}
	return result
}

// correlationBreakdown rebuilds the covariance matrix with every off-diagonal
// forced to Cov'_ij = rho * sigma_i * sigma_j (original variances kept) and
// reports the portfolio volatility implied by the stressed matrix.
func correlationBreakdown(scenario StressScenario, cov *CovarianceMatrix, weights map[string]float64) StressResult {
	result := StressResult{Scenario: StressCorrelationBreakdown, Name: scenario.Name}
	if cov == nil {
		return result
	}

	n := len(cov.Tickers)
	stressed := &CovarianceMatrix{
		Tickers: append([]string(nil), cov.Tickers...),
		Matrix:  make([][]float64, n),
	}
	sigmas := make([]float64, n)
	for i := 0; i < n; i++ {
		sigmas[i] = math.Sqrt(math.Max(cov.Matrix[i][i], 0))
	}
	for i := 0; i < n; i++ {
		stressed.Matrix[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				stressed.Matrix[i][j] = cov.Matrix[i][j]
			} else {
				stressed.Matrix[i][j] = scenario.Correlation * sigmas[i] * sigmas[j]
			}
		}
	}

	baseline := portfolioVolatilityFromCovariance(cov, weights)
	shocked := portfolioVolatilityFromCovariance(stressed, weights)
	result.BaselineVolatility = &baseline
	result.StressedVolatility = &shocked
	return result
}
