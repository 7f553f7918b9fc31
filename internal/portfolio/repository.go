// Package portfolio manages the current holdings of the portfolio under
// analysis. Positions are keyed by ticker; the special CASH ticker holds the
// uninvested balance.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/domain"
)

// Repository handles position database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// GetAll returns all positions
func (r *Repository) GetAll() ([]domain.PositionSnapshot, error) {
	rows, err := r.db.Query(
		`SELECT ticker, name, sector, currency, quantity, market_value FROM positions ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.PositionSnapshot
	for rows.Next() {
		var pos domain.PositionSnapshot
		var currency string
		if err := rows.Scan(&pos.Ticker, &pos.Name, &pos.Sector, &currency, &pos.Quantity, &pos.MarketValue); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos.Currency = domain.Currency(currency)
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Get returns a single position by ticker, or nil when absent.
func (r *Repository) Get(ticker string) (*domain.PositionSnapshot, error) {
	var pos domain.PositionSnapshot
	var currency string
	err := r.db.QueryRow(
		`SELECT ticker, name, sector, currency, quantity, market_value FROM positions WHERE ticker = ?`,
		ticker,
	).Scan(&pos.Ticker, &pos.Name, &pos.Sector, &currency, &pos.Quantity, &pos.MarketValue)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position %s: %w", ticker, err)
	}
	pos.Currency = domain.Currency(currency)
	return &pos, nil
}

// Upsert inserts or replaces a position.
func (r *Repository) Upsert(pos domain.PositionSnapshot) error {
	if pos.Ticker == "" {
		return fmt.Errorf("position ticker is required")
	}

	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO positions (ticker, name, sector, currency, quantity, market_value, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pos.Ticker, pos.Name, pos.Sector, string(pos.Currency), pos.Quantity, pos.MarketValue,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", pos.Ticker, err)
	}

	return nil
}

// Delete removes a position by ticker. Returns true if a row was removed.
func (r *Repository) Delete(ticker string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM positions WHERE ticker = ?`, ticker)
	if err != nil {
		return false, fmt.Errorf("failed to delete position %s: %w", ticker, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// TotalValue returns the summed market value of all positions including cash.
func (r *Repository) TotalValue() (float64, error) {
	var total sql.NullFloat64
	if err := r.db.QueryRow(`SELECT SUM(market_value) FROM positions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum position values: %w", err)
	}
	return total.Float64, nil
}
