// Package jobs defines the scheduled pipeline jobs: the weekday market
// build after the New York close and the Friday positioning build after
// the weekly report publishes.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fxregime/internal/brief"
	"github.com/wonny/fxregime/internal/dashboard"
	"github.com/wonny/fxregime/internal/pipeline"
	"github.com/wonny/fxregime/internal/store"
	"github.com/wonny/fxregime/pkg/logger"
)

// Deps bundles what every job needs.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Store    *store.Store
	Brief    *brief.Builder
	Charts   *dashboard.Renderer
	Logger   *logger.Logger
}

// MarketJob rebuilds the master panel and republishes the reports.
type MarketJob struct {
	deps Deps
}

// NewMarketJob creates the market job.
func NewMarketJob(deps Deps) *MarketJob {
	return &MarketJob{deps: deps}
}

// Name returns the job name.
func (j *MarketJob) Name() string { return "market_build" }

// Schedule runs weekdays at 17:30 in the scheduler location, half an
// hour after the FX close so the day's candle is complete.
func (j *MarketJob) Schedule() string { return "0 30 17 * * 1-5" }

// Run executes the market build and refreshes brief and charts.
func (j *MarketJob) Run(ctx context.Context) error {
	asOf := time.Now()
	if _, _, err := j.deps.Pipeline.RunMarket(ctx, asOf); err != nil {
		return fmt.Errorf("market job: %w", err)
	}
	return publishReports(j.deps, asOf)
}

// publishReports renders the brief and dashboards from the stored
// panels. Failures here are reported but come after the data is already
// persisted, so a broken chart never loses a build.
func publishReports(deps Deps, asOf time.Time) error {
	merged, err := deps.Store.LoadMerged()
	if err != nil {
		return fmt.Errorf("load merged panel: %w", err)
	}

	cotDate := "n/a"
	if weekly, err := deps.Store.LoadPositioning(); err == nil && weekly.Len() > 0 {
		cotDate = weekly.DateAt(weekly.Len() - 1).Format("2006-01-02")
	}

	text, err := deps.Brief.Build(merged, cotDate, asOf)
	if err != nil {
		return fmt.Errorf("build brief: %w", err)
	}
	if _, err := deps.Brief.Save(text, asOf); err != nil {
		return err
	}

	if _, err := deps.Charts.RenderAll(merged, asOf); err != nil {
		return fmt.Errorf("render dashboards: %w", err)
	}
	return nil
}
