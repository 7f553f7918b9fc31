package stooq

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vekfolio/riskengine/internal/clientdata"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-02,100.0,101.5,99.5,101.0,1000000
2024-01-03,101.0,102.0,100.0,100.5,900000
2024-01-04,100.5,103.0,100.5,102.75,1100000
`

func newTestCache(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE cache_entries (key TEXT PRIMARY KEY, value BLOB NOT NULL, expires_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	return clientdata.NewRepository(db)
}

func TestGetDailyPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "vti.us", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := New(server.URL, nil, zerolog.Nop())
	points, err := client.GetDailyPrices(context.Background(), "VTI.US")
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-02", points[0].Date)
	assert.Equal(t, 101.0, points[0].Close)
	assert.Equal(t, 102.75, points[2].Close)
}

func TestGetDailyPricesCacheFirst(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	client := New(server.URL, newTestCache(t), zerolog.Nop())

	_, err := client.GetDailyPrices(context.Background(), "VTI.US")
	require.NoError(t, err)
	_, err = client.GetDailyPrices(context.Background(), "VTI.US")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second call must be served from cache")
}

func TestGetDailyPricesStaleFallback(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	cache := newTestCache(t)
	client := New(server.URL, cache, zerolog.Nop())

	points, err := client.GetDailyPrices(context.Background(), "VTI.US")
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Expire the cached entry and break the upstream
	require.NoError(t, cache.Delete(cacheKey("VTI.US")))
	require.NoError(t, cache.Store(cacheKey("VTI.US"), points, -time.Minute))
	fail.Store(true)

	stale, err := client.GetDailyPrices(context.Background(), "VTI.US")
	require.NoError(t, err)
	assert.Equal(t, points, stale)
}

func TestGetDailyPricesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, nil, zerolog.Nop())
	_, err := client.GetDailyPrices(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	csv := `Date,Open,High,Low,Close,Volume
2024-01-02,100,101,99,101.0,1000
not-a-date,1,1,1,1,1
2024-01-03,101,102,100,abc,900
2024-01-04,100,103,100,102.75,1100
`
	points, err := parseCSV(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-02", points[0].Date)
	assert.Equal(t, "2024-01-04", points[1].Date)
}
