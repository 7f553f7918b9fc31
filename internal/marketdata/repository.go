// Package marketdata stores daily closing prices and keeps them current by
// syncing from the upstream price provider.
package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/database"
	"github.com/vekfolio/riskengine/internal/domain"
)

// Repository handles daily price database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market data repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "daily_prices").Logger(),
	}
}

// GetSeries returns the full price series for one ticker in date order.
func (r *Repository) GetSeries(ticker string) (domain.PriceSeries, error) {
	rows, err := r.db.Query(
		`SELECT date, close FROM daily_prices WHERE ticker = ? ORDER BY date`, ticker)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	series := domain.PriceSeries{Ticker: ticker}
	for rows.Next() {
		var point domain.PricePoint
		if err := rows.Scan(&point.Date, &point.Close); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("failed to scan price point: %w", err)
		}
		series.Points = append(series.Points, point)
	}

	if err := rows.Err(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("error iterating prices for %s: %w", ticker, err)
	}

	return series, nil
}

// GetSeriesMap returns the price series of every requested ticker. Tickers
// with no stored history are omitted from the map, not errors; the risk
// engine handles missing series with notices.
func (r *Repository) GetSeriesMap(tickers []string) (map[string]domain.PriceSeries, error) {
	histories := make(map[string]domain.PriceSeries, len(tickers))
	for _, ticker := range tickers {
		series, err := r.GetSeries(ticker)
		if err != nil {
			return nil, err
		}
		if len(series.Points) > 0 {
			histories[ticker] = series
		}
	}
	return histories, nil
}

// LatestDate returns the most recent stored date for a ticker, or "" when the
// ticker has no history.
func (r *Repository) LatestDate(ticker string) (string, error) {
	var date sql.NullString
	err := r.db.QueryRow(
		`SELECT MAX(date) FROM daily_prices WHERE ticker = ?`, ticker).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest date for %s: %w", ticker, err)
	}
	return date.String, nil
}

// UpsertPoints stores a batch of price points for one ticker in a single
// transaction. Re-syncing the same day overwrites the stored close.
func (r *Repository) UpsertPoints(ticker string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT OR REPLACE INTO daily_prices (ticker, date, close) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, point := range points {
			if point.Date == "" || point.Close <= 0 {
				r.log.Warn().
					Str("ticker", ticker).
					Str("date", point.Date).
					Float64("close", point.Close).
					Msg("Skipping invalid price point")
				continue
			}
			if _, err := stmt.Exec(ticker, point.Date, point.Close); err != nil {
				return fmt.Errorf("failed to upsert price %s %s: %w", ticker, point.Date, err)
			}
		}
		return nil
	})
}

// DeleteBefore removes price points older than the cutoff date across all
// tickers. Returns the number of rows deleted.
func (r *Repository) DeleteBefore(cutoffDate string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM daily_prices WHERE date < ?`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Tickers returns the distinct tickers with stored history.
func (r *Repository) Tickers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT ticker FROM daily_prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}
