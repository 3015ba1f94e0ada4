package jobs

import (
	"context"
	"fmt"
	"time"
)

// PositioningJob rebuilds the weekly positioning panel, merges it onto
// the master and republishes the reports.
type PositioningJob struct {
	deps Deps
}

// NewPositioningJob creates the positioning job.
func NewPositioningJob(deps Deps) *PositioningJob {
	return &PositioningJob{deps: deps}
}

// Name returns the job name.
func (j *PositioningJob) Name() string { return "positioning_build" }

// Schedule runs Fridays at 16:00 in the scheduler location, after the
// weekly report publishes at 15:30 Eastern.
func (j *PositioningJob) Schedule() string { return "0 0 16 * * 5" }

// Run executes the positioning build and refreshes brief and charts.
func (j *PositioningJob) Run(ctx context.Context) error {
	asOf := time.Now()
	if _, _, err := j.deps.Pipeline.RunPositioning(ctx, asOf); err != nil {
		return fmt.Errorf("positioning job: %w", err)
	}
	return publishReports(j.deps, asOf)
}
