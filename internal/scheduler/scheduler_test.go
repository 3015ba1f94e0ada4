package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(context.Context) error {
	j.runs.Add(1)
	return nil
}

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return New(loc, logger.NewWriter(io.Discard))
}

func TestAddJob(t *testing.T) {
	s := testScheduler(t)

	job := &stubJob{name: "market_build", schedule: "0 30 17 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	assert.Error(t, s.AddJob(job), "duplicate name must fail")
	assert.Error(t, s.AddJob(&stubJob{name: "bad", schedule: "not a cron expr"}))

	assert.Equal(t, []string{"market_build"}, s.Jobs())
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := testScheduler(t)
	job := &stubJob{name: "market_build", schedule: "0 30 17 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("market_build"))
	assert.Error(t, s.RunJob("unknown"))

	// The run is asynchronous; wait for the result to land.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history, err := s.History("market_build")
		require.NoError(t, err)
		if last, ok := history.Last(); ok {
			assert.True(t, last.Success)
			assert.Equal(t, "market_build", last.JobName)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job result never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, int32(1), job.runs.Load())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	if _, ok := h.Last(); ok {
		t.Fatal("empty history must report no last result")
	}

	h.AddResult(JobResult{JobName: "x", Success: true})
	h.AddResult(JobResult{JobName: "x", Success: false})
	h.AddResult(JobResult{JobName: "x", Success: true})

	assert.InDelta(t, 2.0/3.0, h.SuccessRate(), 1e-9)
	last, ok := h.Last()
	require.True(t, ok)
	assert.True(t, last.Success)
}

func TestJobHistoryTrims(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{JobName: "x", Success: true})
	}
	assert.Len(t, h.Results, historyLimit)
}
