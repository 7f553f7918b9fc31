package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.JobNames())
}

func TestAddJobAcceptsCronSpecs(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 30 18 * * MON-FRI", &countingJob{name: "weekday"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "hourly"}))
	require.NoError(t, s.AddJob("@every 30s", &countingJob{name: "interval"}))

	assert.Equal(t, []string{"hourly", "interval", "weekday"}, s.JobNames())
}

func TestAddJobRejectsDuplicateName(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "sync"}))
	err := s.AddJob("@daily", &countingJob{name: "sync"})
	assert.Error(t, err)
}

func TestRunByName(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{name: "immediate"}
	require.NoError(t, s.AddJob("@daily", job))

	require.NoError(t, s.RunByName("immediate"))
	assert.Equal(t, int32(1), job.runs.Load())

	assert.Error(t, s.RunByName("missing"))
}

func TestRunByNamePropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob("@daily", failing))

	assert.Error(t, s.RunByName("failing"))
	assert.Equal(t, int32(1), failing.runs.Load())
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	s.Start()
	s.Stop()
}
