// Package domain provides core domain models and types.
package domain

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// CashTicker is the reserved ticker for cash positions. Cash carries weight
// but no volatility, so it is excluded from return-based calculations.
const CashTicker = "CASH"

// PricePoint is a single daily closing price. Dates use the "2006-01-02" format.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// PriceSeries is an ordered sequence of daily closing prices for one ticker.
// Dates are ascending with no duplicates; at least 2 points are required to
// derive a return series.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Closes returns the closing prices in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// PositionSnapshot is a point-in-time view of one held position.
// MarketValue is quantity x current price in the portfolio currency.
type PositionSnapshot struct {
	Ticker      string   `json:"ticker"`
	Name        string   `json:"name"`
	Sector      string   `json:"sector"`
	Currency    Currency `json:"currency"`
	Quantity    float64  `json:"quantity"`
	MarketValue float64  `json:"market_value"`
}

// IsCash reports whether this position represents uninvested cash.
func (p PositionSnapshot) IsCash() bool {
	return p.Ticker == CashTicker
}

// BenchmarkDefinition is a fixed-weight reference portfolio.
// Weights must sum to 1.0 within tolerance.
type BenchmarkDefinition struct {
	Name    string             `json:"name"`
	Weights map[string]float64 `json:"weights"`
}
