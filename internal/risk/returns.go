package risk

import (
	"sort"

	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/pkg/formulas"
)

// ReturnSeries holds daily simple returns for one ticker.
// Dates[i] is the date of Returns[i] (the later day of each price pair).
type ReturnSeries struct {
	Ticker  string
	Dates   []string
	Returns []float64
}

// trimLookback keeps the most recent lookbackDays+1 price points so the
// derived return series covers at most lookbackDays observations.
func trimLookback(points []domain.PricePoint, lookbackDays int) []domain.PricePoint {
	if lookbackDays <= 0 {
		return points
	}
	keep := lookbackDays + 1
	if len(points) <= keep {
		return points
	}
	return points[len(points)-keep:]
}

// BuildReturnSeries converts a price series into daily simple returns over
// the lookback window. Fails with InsufficientDataError when fewer than 2
// price points are available.
func BuildReturnSeries(series domain.PriceSeries, lookbackDays int) (ReturnSeries, error) {
	points := trimLookback(series.Points, lookbackDays)
	if len(points) < 2 {
		return ReturnSeries{}, &InsufficientDataError{Ticker: series.Ticker, Points: len(points)}
	}

	dates := make([]string, 0, len(points)-1)
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		if points[i-1].Close == 0 {
			continue
		}
		dates = append(dates, points[i].Date)
		returns = append(returns, (points[i].Close-points[i-1].Close)/points[i-1].Close)
	}

	if len(returns) == 0 {
		return ReturnSeries{}, &InsufficientDataError{Ticker: series.Ticker, Points: len(points)}
	}

	return ReturnSeries{Ticker: series.Ticker, Dates: dates, Returns: returns}, nil
}

// AlignReturnSeries builds date-aligned return series for the given tickers
// by intersecting the available dates across all of them (missing dates are
// dropped, never zero-filled). Tickers that would leave the intersection with
// fewer than 2 common price points are excluded, sparsest first, and reported
// in the second return value.
func AlignReturnSeries(
	histories map[string]domain.PriceSeries,
	tickers []string,
	lookbackDays int,
) (map[string]ReturnSeries, []string) {
	type candidate struct {
		ticker string
		prices map[string]float64 // date -> close
	}

	candidates := make([]candidate, 0, len(tickers))
	excluded := make([]string, 0)

	for _, ticker := range tickers {
		series, ok := histories[ticker]
		if !ok {
			excluded = append(excluded, ticker)
			continue
		}
		points := trimLookback(series.Points, lookbackDays)
		if len(points) < 2 {
			excluded = append(excluded, ticker)
			continue
		}
		prices := make(map[string]float64, len(points))
		for _, p := range points {
			prices[p.Date] = p.Close
		}
		candidates = append(candidates, candidate{ticker: ticker, prices: prices})
	}

	// Drop the sparsest ticker until the remaining intersection spans at
	// least 2 dates. A single thin series must not empty the whole matrix.
	for len(candidates) > 0 {
		priceMaps := make([]map[string]float64, len(candidates))
		for i, c := range candidates {
			priceMaps[i] = c.prices
		}
		common := intersectDates(priceMaps)
		if len(common) >= 2 {
			aligned := make(map[string]ReturnSeries, len(candidates))
			for _, c := range candidates {
				dates := make([]string, 0, len(common)-1)
				returns := make([]float64, 0, len(common)-1)
				for i := 1; i < len(common); i++ {
					prev := c.prices[common[i-1]]
					if prev == 0 {
						continue
					}
					dates = append(dates, common[i])
					returns = append(returns, (c.prices[common[i]]-prev)/prev)
				}
				aligned[c.ticker] = ReturnSeries{Ticker: c.ticker, Dates: dates, Returns: returns}
			}
			return aligned, excluded
		}

		sparsest := 0
		for i := 1; i < len(candidates); i++ {
			if len(candidates[i].prices) < len(candidates[sparsest].prices) {
				sparsest = i
			}
		}
		excluded = append(excluded, candidates[sparsest].ticker)
		candidates = append(candidates[:sparsest], candidates[sparsest+1:]...)
	}

	return map[string]ReturnSeries{}, excluded
}

func intersectDates(priceMaps []map[string]float64) []string {
	if len(priceMaps) == 0 {
		return nil
	}
	common := make([]string, 0, len(priceMaps[0]))
	for date := range priceMaps[0] {
		shared := true
		for _, prices := range priceMaps[1:] {
			if _, ok := prices[date]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, date)
		}
	}
	sort.Strings(common)
	return common
}

// PortfolioReturns computes the weighted sum of aligned position returns
// using current portfolio weights. Tickers absent from the aligned set (cash,
// excluded positions) contribute zero return at their weight, which is the
// zero-volatility treatment cash requires.
func PortfolioReturns(aligned map[string]ReturnSeries, weights map[string]float64) []float64 {
	n := 0
	for _, series := range aligned {
		n = len(series.Returns)
		break
	}
	if n == 0 {
		return nil
	}

	portfolio := make([]float64, n)
	for ticker, series := range aligned {
		weight := weights[ticker]
		if weight <= 0 || len(series.Returns) != n {
			continue
		}
		for i, r := range series.Returns {
			portfolio[i] += weight * r
		}
	}
	return portfolio
}

// WeightedReturns computes a synthetic return series from fixed weights,
// renormalized over the tickers present in the aligned set. Used for
// benchmark portfolios where the weights are definitional, not value-derived.
func WeightedReturns(aligned map[string]ReturnSeries, weights map[string]float64) []float64 {
	n := 0
	totalWeight := 0.0
	for ticker, series := range aligned {
		n = len(series.Returns)
		totalWeight += weights[ticker]
	}
	if n == 0 || totalWeight <= 0 {
		return nil
	}

	combined := make([]float64, n)
	for ticker, series := range aligned {
		weight := weights[ticker] / totalWeight
		if weight <= 0 || len(series.Returns) != n {
			continue
		}
		for i, r := range series.Returns {
			combined[i] += weight * r
		}
	}
	return combined
}

// annualizedStats bundles the three headline figures derived from a daily
// return series. Sharpe is nil when volatility is exactly zero.
type annualizedStats struct {
	Return     float64
	Volatility float64
	Sharpe     *float64
}

func computeAnnualizedStats(dailyReturns []float64, riskFreeRate float64) annualizedStats {
	stats := annualizedStats{
		Return:     formulas.AnnualizedReturn(dailyReturns),
		Volatility: formulas.AnnualizedVolatility(dailyReturns),
	}
	if stats.Volatility > 0 {
		sharpe := (stats.Return - riskFreeRate) / stats.Volatility
		stats.Sharpe = &sharpe
	}
	return stats
}
