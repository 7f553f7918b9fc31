// Package stooq fetches daily closing prices from the Stooq CSV endpoint.
// Responses are cached cache-first with a stale fallback so a provider outage
// degrades to yesterday's data instead of failing the sync.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/clientdata"
	"github.com/vekfolio/riskengine/internal/domain"
)

// Client is a Stooq daily price client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *clientdata.Repository
	log        zerolog.Logger
}

// New creates a new Stooq client. The cache may be nil, in which case every
// call goes to the network.
func New(baseURL string, cache *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		log:        log.With().Str("client", "stooq").Logger(),
	}
}

func cacheKey(ticker string) string {
	return "stooq:daily:" + strings.ToLower(ticker)
}

// GetDailyPrices returns the daily close series for a ticker, most recent
// last. Fresh cache hits skip the network; on fetch failure a stale cached
// series is returned when one exists.
func (c *Client) GetDailyPrices(ctx context.Context, ticker string) ([]domain.PricePoint, error) {
	key := cacheKey(ticker)

	if c.cache != nil {
		var cached []domain.PricePoint
		found, err := c.cache.GetIfFresh(key, &cached)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Cache read failed")
		} else if found {
			return cached, nil
		}
	}

	points, err := c.fetch(ctx, ticker)
	if err != nil {
		// Stale fallback: old prices beat no prices
		if c.cache != nil {
			var stale []domain.PricePoint
			found, cacheErr := c.cache.Get(key, &stale)
			if cacheErr == nil && found {
				c.log.Warn().Err(err).Str("ticker", ticker).Msg("Fetch failed, serving stale prices")
				return stale, nil
			}
		}
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Store(key, points, clientdata.TTLDailyPrices); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Cache write failed")
		}
	}

	return points, nil
}

func (c *Client) fetch(ctx context.Context, ticker string) ([]domain.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", c.baseURL, url.QueryEscape(strings.ToLower(ticker)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", ticker, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq returned status %d for %s", resp.StatusCode, ticker)
	}

	points, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prices for %s: %w", ticker, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("stooq returned no data for %s", ticker)
	}

	return points, nil
}

// parseCSV reads the Stooq daily CSV format: Date,Open,High,Low,Close,Volume.
// Rows with an unparsable date or close are skipped.
func parseCSV(r io.Reader) ([]domain.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	dateIdx, closeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("unexpected CSV header: %v", header)
	}

	points := make([]domain.PricePoint, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) <= dateIdx || len(record) <= closeIdx {
			continue
		}
		date := strings.TrimSpace(record[dateIdx])
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil || close <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{Date: date, Close: close})
	}

	return points, nil
}
