// Package risk implements the portfolio risk analysis engine: return series
// construction, VaR/CVaR, volatility, Sharpe, concentration, correlation
// matrices, benchmark comparison and stress testing. The engine is a pure
// function of its inputs; it owns no state and performs no I/O.
package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/pkg/formulas"
)

const (
	// DefaultLookbackDays is one trading year of daily observations.
	DefaultLookbackDays = 252

	// WeightSumTolerance is the allowed deviation of a weight set from 1.0.
	WeightSumTolerance = 1e-6

	// TopPositionCount limits the top-holdings list in the report.
	TopPositionCount = 5
)

// ReportOptions carries the optional inputs of a report computation.
type ReportOptions struct {
	// Benchmarks to compare against; each constituent's price history must be
	// present in BenchmarkHistories or the main history map.
	Benchmarks         []domain.BenchmarkDefinition
	BenchmarkHistories map[string]domain.PriceSeries

	// RiskFreeRate is the annual risk-free rate used in Sharpe ratios.
	RiskFreeRate float64

	// StressScenarios to simulate; nil skips stress testing.
	StressScenarios []StressScenario

	// LookbackDays bounds the historical window; 0 means DefaultLookbackDays.
	LookbackDays int
}

// Engine computes risk reports. It is stateless and safe for concurrent use.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new risk engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "risk_engine").Logger()}
}

// ComputeRiskReport turns the position list and price histories into a full
// risk report. Per-ticker and per-benchmark data problems degrade to report
// notices; only an empty or wholly unusable input set is a hard failure.
func (e *Engine) ComputeRiskReport(
	positions []domain.PositionSnapshot,
	histories map[string]domain.PriceSeries,
	opts ReportOptions,
) (*RiskReport, error) {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}

	totalValue := 0.0
	cashAmount := 0.0
	for _, pos := range positions {
		totalValue += pos.MarketValue
		if pos.IsCash() {
			cashAmount += pos.MarketValue
		}
	}
	if len(positions) == 0 || totalValue <= 0 {
		return nil, ErrNoPositions
	}

	weights := make(map[string]float64, len(positions))
	order := make([]string, 0, len(positions))
	for _, pos := range positions {
		if _, seen := weights[pos.Ticker]; !seen {
			order = append(order, pos.Ticker)
		}
		weights[pos.Ticker] += pos.MarketValue / totalValue
	}
	if err := validateWeights("positions", weights); err != nil {
		return nil, err
	}

	notices := make([]Notice, 0)

	// Per-position volatilities come from each ticker's own series, so a
	// ticker excluded from alignment still reports its individual risk.
	positionVols := make(map[string]float64)
	usable := make([]string, 0, len(order))
	for _, ticker := range order {
		if ticker == domain.CashTicker {
			continue
		}
		series, ok := histories[ticker]
		if !ok {
			notices = append(notices, Notice{
				Code:    NoticeInsufficientData,
				Subject: ticker,
				Message: fmt.Sprintf("no price history for %s", ticker),
			})
			continue
		}
		rs, err := BuildReturnSeries(series, lookback)
		if err != nil {
			var insufficient *InsufficientDataError
			if errors.As(err, &insufficient) {
				notices = append(notices, Notice{
					Code:    NoticeInsufficientData,
					Subject: ticker,
					Message: insufficient.Error(),
				})
				continue
			}
			return nil, err
		}
		positionVols[ticker] = formulas.AnnualizedVolatility(rs.Returns)
		usable = append(usable, ticker)
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableHistory
	}

	aligned, excluded := AlignReturnSeries(histories, usable, lookback)
	for _, ticker := range excluded {
		notices = append(notices, Notice{
			Code:    NoticeInsufficientData,
			Subject: ticker,
			Message: fmt.Sprintf("%s has fewer than 2 price points on the common date index", ticker),
		})
	}

	portfolioReturns := PortfolioReturns(aligned, weights)
	if len(portfolioReturns) == 0 {
		return nil, ErrNoUsableHistory
	}

	stats := computeAnnualizedStats(portfolioReturns, opts.RiskFreeRate)

	var95, notice95 := e.tailMetrics(portfolioReturns, Confidence95)
	var99, notice99 := e.tailMetrics(portfolioReturns, Confidence99)
	if notice95 != nil {
		notices = append(notices, *notice95)
	}
	if notice99 != nil {
		notices = append(notices, *notice99)
	}

	corr, cov := BuildMatrices(aligned, order)

	hhi := HHI(weights)
	sectorWeights := sectorBreakdown(positions, totalValue)

	report := &RiskReport{
		PortfolioValue:       totalValue,
		PositionValue:        totalValue - cashAmount,
		CashAmount:           cashAmount,
		CashWeight:           cashAmount / totalValue,
		NumPositions:         len(order),
		Weights:              weights,
		VaR95:                var95,
		VaR99:                var99,
		AnnualizedReturn:     stats.Return,
		AnnualizedVolatility: stats.Volatility,
		SharpeRatio:          stats.Sharpe,
		PositionVolatilities: positionVols,
		Correlation:          corr,
		Covariance:           cov,
		HHI:                  hhi,
		DiversificationScore: DiversificationScore(hhi),
		EffectivePositions:   EffectivePositions(hhi),
		SectorWeights:        sectorWeights,
		SectorHHI:            HHI(sectorWeights),
		TopPositions:         topPositions(positions, totalValue),
		Notices:              notices,
	}
	report.RiskLevel = assessRiskLevel(stats.Volatility, report.DiversificationScore, var95.VaR)

	if len(opts.Benchmarks) > 0 {
		report.Benchmarks = e.compareBenchmarks(opts, histories, stats, lookback, report)
	}
	if len(opts.StressScenarios) > 0 {
		report.StressResults = e.runStressScenarios(opts.StressScenarios, positions, aligned, cov, weights, portfolioReturns)
	}

	e.log.Debug().
		Int("num_positions", report.NumPositions).
		Int("observations", len(portfolioReturns)).
		Float64("volatility", report.AnnualizedVolatility).
		Float64("var_95", report.VaR95.VaR).
		Int("notices", len(report.Notices)).
		Msg("Computed risk report")

	return report, nil
}

// tailMetrics computes VaR and CVaR at one confidence level. A degenerate
// sample withholds CVaR and returns a notice instead.
func (e *Engine) tailMetrics(returns []float64, confidence float64) (VaRMetrics, *Notice) {
	metrics := VaRMetrics{
		Confidence: confidence,
		VaR:        HistoricalVaR(returns, confidence),
	}

	cvar, err := HistoricalCVaR(returns, confidence)
	if err != nil {
		return metrics, &Notice{
			Code:    NoticeDegenerateDistribution,
			Subject: "portfolio",
			Message: err.Error(),
		}
	}
	metrics.CVaR = &cvar
	return metrics, nil
}

func validateWeights(name string, weights map[string]float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return &InvalidWeightsError{Name: name, Sum: sum}
	}
	return nil
}

func sectorBreakdown(positions []domain.PositionSnapshot, totalValue float64) map[string]float64 {
	sectors := make(map[string]float64)
	for _, pos := range positions {
		if pos.IsCash() {
			continue
		}
		sector := pos.Sector
		if sector == "" {
			sector = "Unknown"
		}
		sectors[sector] += pos.MarketValue / totalValue
	}
	return sectors
}

func topPositions(positions []domain.PositionSnapshot, totalValue float64) []TopPosition {
	top := make([]TopPosition, 0, len(positions))
	for _, pos := range positions {
		if pos.IsCash() {
			continue
		}
		top = append(top, TopPosition{
			Ticker: pos.Ticker,
			Name:   pos.Name,
			Sector: pos.Sector,
			Value:  pos.MarketValue,
			Weight: pos.MarketValue / totalValue,
		})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Value > top[j].Value })
	if len(top) > TopPositionCount {
		top = top[:TopPositionCount]
	}
	return top
}

// assessRiskLevel buckets the portfolio into Low/Medium/High from volatility,
// diversification and the daily VaR(95) loss fraction.
func assessRiskLevel(volatility, diversification, var95 float64) string {
	score := 0

	switch {
	case volatility < 0.10:
		score++
	case volatility < 0.20:
		score += 2
	default:
		score += 3
	}

	switch {
	case diversification < 0.40:
		score += 3
	case diversification < 0.70:
		score += 2
	default:
		score++
	}

	switch {
	case var95 > 0.03:
		score += 3
	case var95 > 0.015:
		score += 2
	default:
		score++
	}

	switch {
	case score <= 3:
		return "Low"
	case score <= 6:
		return "Medium"
	default:
		return "High"
	}
}
