package server

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/config"
	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/internal/events"
	"github.com/vekfolio/riskengine/internal/marketdata"
	"github.com/vekfolio/riskengine/internal/portfolio"
	"github.com/vekfolio/riskengine/internal/risk"
)

// ReportEnvelope wraps a computed report with identity and timing metadata.
// Reports are computed fresh per request and never persisted.
type ReportEnvelope struct {
	ReportID    string           `json:"report_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Report      *risk.RiskReport `json:"report"`
}

// RiskHandlers handles risk analysis endpoints
type RiskHandlers struct {
	engine    *risk.Engine
	positions *portfolio.Repository
	prices    *marketdata.Repository
	bus       *events.Bus
	cfg       *config.Config
	log       zerolog.Logger
}

// NewRiskHandlers creates new risk handlers
func NewRiskHandlers(
	engine *risk.Engine,
	positions *portfolio.Repository,
	prices *marketdata.Repository,
	bus *events.Bus,
	cfg *config.Config,
	log zerolog.Logger,
) *RiskHandlers {
	return &RiskHandlers{
		engine:    engine,
		positions: positions,
		prices:    prices,
		bus:       bus,
		cfg:       cfg,
		log:       log.With().Str("handlers", "risk").Logger(),
	}
}

// RegisterRoutes registers risk routes
func (h *RiskHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/report", h.HandleReport)
		r.Get("/stress", h.HandleStress)
		r.Get("/benchmarks", h.HandleBenchmarks)
	})
}

// HandleReport returns the full risk report.
func (h *RiskHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.computeReport()
	if err != nil {
		h.writeReportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

// HandleStress returns only the stress test section of the report.
func (h *RiskHandlers) HandleStress(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.computeReport()
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report_id":       envelope.ReportID,
		"generated_at":    envelope.GeneratedAt,
		"portfolio_value": envelope.Report.PortfolioValue,
		"stress_results":  envelope.Report.StressResults,
	})
}

// HandleBenchmarks returns only the benchmark comparison section of the report.
func (h *RiskHandlers) HandleBenchmarks(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.computeReport()
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report_id":    envelope.ReportID,
		"generated_at": envelope.GeneratedAt,
		"portfolio": map[string]interface{}{
			"annualized_return":     envelope.Report.AnnualizedReturn,
			"annualized_volatility": envelope.Report.AnnualizedVolatility,
			"sharpe_ratio":          envelope.Report.SharpeRatio,
		},
		"benchmarks": envelope.Report.Benchmarks,
		"notices":    envelope.Report.Notices,
	})
}

// computeReport loads positions and histories, runs the engine and wraps the
// result in an envelope.
func (h *RiskHandlers) computeReport() (*ReportEnvelope, error) {
	positions, err := h.positions.GetAll()
	if err != nil {
		return nil, err
	}

	benchmarks := risk.DefaultBenchmarks()
	histories, err := h.prices.GetSeriesMap(collectTickers(positions, benchmarks))
	if err != nil {
		return nil, err
	}

	report, err := h.engine.ComputeRiskReport(positions, histories, risk.ReportOptions{
		Benchmarks:      benchmarks,
		RiskFreeRate:    h.cfg.RiskFreeRate,
		StressScenarios: risk.DefaultStressScenarios(),
		LookbackDays:    h.cfg.LookbackDays,
	})
	if err != nil {
		return nil, err
	}

	envelope := &ReportEnvelope{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Report:      report,
	}

	if h.bus != nil {
		h.bus.Publish(events.Event{
			Type: events.EventReportComputed,
			Payload: events.ReportComputedPayload{
				ReportID:     envelope.ReportID,
				NumPositions: report.NumPositions,
				RiskLevel:    report.RiskLevel,
				Volatility:   report.AnnualizedVolatility,
			},
		})
	}

	return envelope, nil
}

// writeReportError maps engine failures to HTTP status codes. Unusable inputs
// are client-visible conditions, not server faults.
func (h *RiskHandlers) writeReportError(w http.ResponseWriter, err error) {
	var invalidWeights *risk.InvalidWeightsError
	switch {
	case errors.Is(err, risk.ErrNoPositions),
		errors.Is(err, risk.ErrNoUsableHistory),
		errors.As(err, &invalidWeights):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Report computation failed")
		writeError(w, http.StatusInternalServerError, "failed to compute risk report")
	}
}

// collectTickers returns the sorted union of held tickers (cash excluded) and
// all benchmark constituents.
func collectTickers(positions []domain.PositionSnapshot, benchmarks []domain.BenchmarkDefinition) []string {
	set := make(map[string]struct{})
	for _, pos := range positions {
		if pos.IsCash() {
			continue
		}
		set[pos.Ticker] = struct{}{}
	}
	for _, benchmark := range benchmarks {
		for ticker := range benchmark.Weights {
			set[ticker] = struct{}{}
		}
	}

	tickers := make([]string, 0, len(set))
	for ticker := range set {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
