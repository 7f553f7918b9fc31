package risk

// VaRMetrics bundles the loss-fraction metrics at one confidence level.
// CVaR is nil when the sample is too small for a stable tail estimate
// (see MinTailObservations); the withholding is recorded as a notice.
type VaRMetrics struct {
	Confidence float64  `json:"confidence"`
	VaR        float64  `json:"var"`
	CVaR       *float64 `json:"cvar"`
}

// TopPosition is one of the largest holdings by market value.
type TopPosition struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// BenchmarkComparison holds one benchmark's realized metrics and the deltas
// between the actual portfolio and the benchmark (portfolio minus benchmark).
// When Unavailable is set the metric fields are zero and a notice records why.
type BenchmarkComparison struct {
	Name                 string   `json:"name"`
	Unavailable          bool     `json:"unavailable"`
	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          *float64 `json:"sharpe_ratio"`
	ReturnDelta          float64  `json:"return_delta"`
	VolatilityDelta      float64  `json:"volatility_delta"`
	SharpeDelta          *float64 `json:"sharpe_delta"`
}

// RiskReport is the output aggregate of one engine invocation. It is built
// fresh per request from the supplied inputs and never cached or persisted.
type RiskReport struct {
	PortfolioValue float64 `json:"portfolio_value"`
	PositionValue  float64 `json:"position_value"`
	CashAmount     float64 `json:"cash_amount"`
	CashWeight     float64 `json:"cash_weight"`
	NumPositions   int     `json:"num_positions"`

	Weights map[string]float64 `json:"weights"`

	VaR95 VaRMetrics `json:"var_95"`
	VaR99 VaRMetrics `json:"var_99"`

	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          *float64 `json:"sharpe_ratio"`

	PositionVolatilities map[string]float64 `json:"position_volatilities"`

	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
	Covariance  *CovarianceMatrix  `json:"covariance,omitempty"`

	HHI                  float64            `json:"hhi"`
	DiversificationScore float64            `json:"diversification_score"`
	EffectivePositions   float64            `json:"effective_positions"`
	SectorWeights        map[string]float64 `json:"sector_weights"`
	SectorHHI            float64            `json:"sector_hhi"`

	TopPositions []TopPosition `json:"top_positions"`
	RiskLevel    string        `json:"risk_level"`

	Benchmarks    []BenchmarkComparison `json:"benchmarks,omitempty"`
	StressResults []StressResult        `json:"stress_results,omitempty"`

	Notices []Notice `json:"notices,omitempty"`
}
