package risk

import (
	"fmt"
	"sort"

	"github.com/vekfolio/riskengine/internal/domain"
)

// DefaultBenchmarks returns the built-in fixed-weight reference portfolios.
func DefaultBenchmarks() []domain.BenchmarkDefinition {
	return []domain.BenchmarkDefinition{
		{
			Name: "Defensive (ETF Mix)",
			Weights: map[string]float64{
				"VTI": 0.30,
				"VEA": 0.25,
				"BND": 0.25,
				"GLD": 0.20,
			},
		},
		{
			Name: "Balanced (Global Index)",
			Weights: map[string]float64{
				"VTI": 0.40,
				"VEA": 0.30,
				"VWO": 0.20,
				"BND": 0.10,
			},
		},
		{
			Name: "Aggressive (Tech & Growth)",
			Weights: map[string]float64{
				"QQQ": 0.35,
				"VUG": 0.25,
				"ARKK": 0.20,
				"VTI": 0.20,
			},
		},
	}
}

// compareBenchmarks evaluates each benchmark definition against the actual
// portfolio. A benchmark with invalid weights or missing constituent history
// is flagged unavailable with a notice; it never fails the report.
// Results are sorted by Sharpe ratio descending, unavailable entries last.
func (e *Engine) compareBenchmarks(
	opts ReportOptions,
	histories map[string]domain.PriceSeries,
	portfolio annualizedStats,
	lookback int,
	report *RiskReport,
) []BenchmarkComparison {
	comparisons := make([]BenchmarkComparison, 0, len(opts.Benchmarks))

	for _, benchmark := range opts.Benchmarks {
		comparison, notice := e.compareBenchmark(benchmark, opts, histories, portfolio, lookback)
		if notice != nil {
			report.Notices = append(report.Notices, *notice)
		}
		comparisons = append(comparisons, comparison)
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		si, sj := comparisons[i].SharpeRatio, comparisons[j].SharpeRatio
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return *si > *sj
	})

	return comparisons
}

func (e *Engine) compareBenchmark(
	benchmark domain.BenchmarkDefinition,
	opts ReportOptions,
	histories map[string]domain.PriceSeries,
	portfolio annualizedStats,
	lookback int,
) (BenchmarkComparison, *Notice) {
	if err := validateWeights(benchmark.Name, benchmark.Weights); err != nil {
		return BenchmarkComparison{Name: benchmark.Name, Unavailable: true}, &Notice{
			Code:    NoticeInvalidWeights,
			Subject: benchmark.Name,
			Message: err.Error(),
		}
	}

	// Constituent series come from the benchmark-specific map first, the
	// portfolio history map second.
	constituents := make(map[string]domain.PriceSeries, len(benchmark.Weights))
	tickers := make([]string, 0, len(benchmark.Weights))
	missing := make([]string, 0)
	for ticker := range benchmark.Weights {
		tickers = append(tickers, ticker)
		if series, ok := opts.BenchmarkHistories[ticker]; ok {
			constituents[ticker] = series
			continue
		}
		if series, ok := histories[ticker]; ok {
			constituents[ticker] = series
			continue
		}
		missing = append(missing, ticker)
	}
	sort.Strings(tickers)
	sort.Strings(missing)

	if len(missing) > 0 {
		err := &BenchmarkDataUnavailableError{Benchmark: benchmark.Name, Missing: missing}
		e.log.Warn().Str("benchmark", benchmark.Name).Strs("missing", missing).Msg("Skipping benchmark")
		return BenchmarkComparison{Name: benchmark.Name, Unavailable: true}, &Notice{
			Code:    NoticeBenchmarkUnavailable,
			Subject: benchmark.Name,
			Message: err.Error(),
		}
	}

	aligned, excluded := AlignReturnSeries(constituents, tickers, lookback)
	if len(excluded) > 0 || len(aligned) == 0 {
		err := &BenchmarkDataUnavailableError{Benchmark: benchmark.Name, Missing: excluded}
		return BenchmarkComparison{Name: benchmark.Name, Unavailable: true}, &Notice{
			Code:    NoticeBenchmarkUnavailable,
			Subject: benchmark.Name,
			Message: err.Error(),
		}
	}

	returns := WeightedReturns(aligned, benchmark.Weights)
	if len(returns) == 0 {
		return BenchmarkComparison{Name: benchmark.Name, Unavailable: true}, &Notice{
			Code:    NoticeBenchmarkUnavailable,
			Subject: benchmark.Name,
			Message: fmt.Sprintf("benchmark %s produced no aligned returns", benchmark.Name),
		}
	}

	stats := computeAnnualizedStats(returns, opts.RiskFreeRate)
	comparison := BenchmarkComparison{
		Name:                 benchmark.Name,
		AnnualizedReturn:     stats.Return,
		AnnualizedVolatility: stats.Volatility,
		SharpeRatio:          stats.Sharpe,
		ReturnDelta:          portfolio.Return - stats.Return,
		VolatilityDelta:      portfolio.Volatility - stats.Volatility,
	}
	if portfolio.Sharpe != nil && stats.Sharpe != nil {
		delta := *portfolio.Sharpe - *stats.Sharpe
		comparison.SharpeDelta = &delta
	}
	return comparison, nil
}
