package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/domain"
)

// datedSeries builds a price series with consecutive dates starting 2024-01-01.
func datedSeries(ticker string, closes []float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(closes))
	for i, close := range closes {
		points[i] = domain.PricePoint{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: close,
		}
	}
	return domain.PriceSeries{Ticker: ticker, Points: points}
}

// seriesFromReturns chains daily returns onto a 100.0 starting price.
func seriesFromReturns(ticker string, returns []float64) domain.PriceSeries {
	closes := make([]float64, len(returns)+1)
	closes[0] = 100.0
	for i, r := range returns {
		closes[i+1] = closes[i] * (1 + r)
	}
	return datedSeries(ticker, closes)
}

func testEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

// thirtyReturns is a fixed mixed sample long enough for CVaR estimation.
var thirtyReturns = []float64{
	0.012, -0.008, 0.004, -0.021, 0.017, 0.002, -0.013, 0.009, -0.005, 0.020,
	-0.031, 0.006, 0.011, -0.002, 0.015, -0.017, 0.003, 0.008, -0.024, 0.010,
	0.001, -0.009, 0.014, -0.006, 0.018, -0.012, 0.005, 0.007, -0.019, 0.013,
}
