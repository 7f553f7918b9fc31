package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobRun(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store("stale", cachedQuote{Ticker: "A"}, -time.Minute))
	require.NoError(t, repo.Store("fresh", cachedQuote{Ticker: "B"}, time.Hour))

	require.NoError(t, job.Run())

	var out cachedQuote
	found, err := repo.Get("stale", &out)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get("fresh", &out)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(nil, zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}
