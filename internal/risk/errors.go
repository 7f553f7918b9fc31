package risk

import (
	"errors"
	"fmt"
)

// Hard failures. These are returned from ComputeRiskReport when the input set
// as a whole is unusable; per-ticker and per-benchmark problems degrade to
// report notices instead.
var (
	// ErrNoPositions is returned when the position list is empty or has zero total value.
	ErrNoPositions = errors.New("no positions with positive value")

	// ErrNoUsableHistory is returned when no position has enough price history
	// to derive a single return observation.
	ErrNoUsableHistory = errors.New("no position has sufficient price history")
)

// InsufficientDataError indicates a ticker has fewer than 2 price points in
// the lookback window, so no return can be computed for it.
type InsufficientDataError struct {
	Ticker string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient price data for %s: %d points (need at least 2)", e.Ticker, e.Points)
}

// DegenerateDistributionError indicates too few return observations for a
// stable tail estimate at one confidence level. CVaR requires
// MinTailObservations.
type DegenerateDistributionError struct {
	Confidence   float64
	Observations int
}

func (e *DegenerateDistributionError) Error() string {
	return fmt.Sprintf("degenerate return distribution at %.0f%% confidence: %d observations (need at least %d)",
		e.Confidence*100, e.Observations, MinTailObservations)
}

// InvalidWeightsError indicates a weight set that does not sum to 1.0 within tolerance.
type InvalidWeightsError struct {
	Name string
	Sum  float64
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("weights for %s sum to %.6f, expected 1.0", e.Name, e.Sum)
}

// BenchmarkDataUnavailableError indicates a benchmark constituent's price
// history is missing, so the benchmark comparison is skipped.
type BenchmarkDataUnavailableError struct {
	Benchmark string
	Missing   []string
}

func (e *BenchmarkDataUnavailableError) Error() string {
	return fmt.Sprintf("benchmark %s unavailable: missing history for %v", e.Benchmark, e.Missing)
}

// NoticeCode classifies data-quality notices recorded on a report.
type NoticeCode string

const (
	NoticeInsufficientData       NoticeCode = "insufficient_data"
	NoticeDegenerateDistribution NoticeCode = "degenerate_distribution"
	NoticeBenchmarkUnavailable   NoticeCode = "benchmark_unavailable"
	NoticeInvalidWeights         NoticeCode = "invalid_weights"
)

// Notice records a per-item data problem that degraded part of the report
// without aborting the whole computation.
type Notice struct {
	Code    NoticeCode `json:"code"`
	Subject string     `json:"subject"` // ticker or benchmark name
	Message string     `json:"message"`
}
