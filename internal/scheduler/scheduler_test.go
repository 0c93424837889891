package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	// @every delays below one second round up to a second.
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestJobFailureDoesNotStopScheduler(t *testing.T) {
	s := New(zerolog.Nop())
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1s", failing))
	s.Start()
	defer s.Stop()

	// The job keeps firing despite returning an error each run.
	assert.Eventually(t, func() bool {
		return failing.runs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := New(zerolog.Nop())

	ok := &countingJob{name: "ok"}
	require.NoError(t, s.RunNow(ok))
	assert.EqualValues(t, 1, ok.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.Error(t, s.RunNow(failing))
}
