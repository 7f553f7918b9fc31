package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/internal/events"
	"github.com/vekfolio/riskengine/internal/risk"
)

// PriceProvider fetches a ticker's full daily close series.
type PriceProvider interface {
	GetDailyPrices(ctx context.Context, ticker string) ([]domain.PricePoint, error)
}

// PositionSource lists the current holdings whose prices must stay current.
type PositionSource interface {
	GetAll() ([]domain.PositionSnapshot, error)
}

// SyncJob refreshes daily prices for every held ticker and every default
// benchmark constituent. One failing ticker does not stop the others.
type SyncJob struct {
	positions PositionSource
	repo      *Repository
	provider  PriceProvider
	bus       *events.Bus
	log       zerolog.Logger
}

// NewSyncJob creates a new price sync job.
func NewSyncJob(
	positions PositionSource,
	repo *Repository,
	provider PriceProvider,
	bus *events.Bus,
	log zerolog.Logger,
) *SyncJob {
	return &SyncJob{
		positions: positions,
		repo:      repo,
		provider:  provider,
		bus:       bus,
		log:       log.With().Str("job", "price_sync").Logger(),
	}
}

// Name returns the job name for scheduling and logging.
func (j *SyncJob) Name() string {
	return "price_sync"
}

// Run syncs every relevant ticker.
func (j *SyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return j.Sync(ctx)
}

// Sync fetches and stores prices for the union of held and benchmark tickers.
func (j *SyncJob) Sync(ctx context.Context) error {
	tickers, err := j.collectTickers()
	if err != nil {
		return err
	}

	synced := 0
	failed := 0
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return err
		}
		points, err := j.provider.GetDailyPrices(ctx, ticker)
		if err != nil {
			j.log.Warn().Err(err).Str("ticker", ticker).Msg("Price fetch failed")
			failed++
			continue
		}
		if err := j.repo.UpsertPoints(ticker, points); err != nil {
			j.log.Error().Err(err).Str("ticker", ticker).Msg("Price store failed")
			failed++
			continue
		}
		synced++
	}

	j.log.Info().
		Int("synced", synced).
		Int("failed", failed).
		Msg("Price sync completed")

	if j.bus != nil && synced > 0 {
		j.bus.Publish(events.Event{
			Type: events.EventPricesSynced,
			Payload: events.PricesSyncedPayload{
				Synced: synced,
				Failed: failed,
			},
		})
	}

	if synced == 0 && failed > 0 {
		return fmt.Errorf("price sync failed for all %d tickers", failed)
	}
	return nil
}

// collectTickers returns the sorted union of held tickers (cash excluded)
// and the default benchmark constituents.
func (j *SyncJob) collectTickers() ([]string, error) {
	positions, err := j.positions.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	set := make(map[string]struct{})
	for _, pos := range positions {
		if pos.IsCash() {
			continue
		}
		set[pos.Ticker] = struct{}{}
	}
	for _, benchmark := range risk.DefaultBenchmarks() {
		for ticker := range benchmark.Weights {
			set[ticker] = struct{}{}
		}
	}

	tickers := make([]string, 0, len(set))
	for ticker := range set {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers, nil
}
