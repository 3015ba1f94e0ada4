// Package pipeline orchestrates the two runs: the daily market build
// and the weekly positioning build. One source failing degrades its
// columns; only losing the primary FX calendar aborts a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fxregime/internal/assemble"
	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/positioning"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// FXFetcher pulls daily closes for one FX symbol.
type FXFetcher interface {
	DailyCloses(ctx context.Context, name, symbol string, start, end time.Time) (*timeseries.Series, error)
}

// YieldFetcher pulls one yield series by provider key.
type YieldFetcher interface {
	Series(ctx context.Context, name, key string, start time.Time) (*timeseries.Series, error)
}

// PositioningFetcher pulls weekly report rows per instrument ticker.
type PositioningFetcher interface {
	DiscoverYears(ctx context.Context, asOf time.Time, historyYears int) []int
	FetchYears(ctx context.Context, markets map[string]string, years []int) (map[string][]positioning.RawReport, error)
}

// Storage persists the published panels.
type Storage interface {
	SaveMaster(p *timeseries.Panel, asOf time.Time) error
	SavePositioning(p *timeseries.Panel) error
	SaveMerged(p *timeseries.Panel) error
	LoadMaster() (*timeseries.Panel, error)
}

// Sources bundles the per-provider fetchers. Yield fetchers are keyed
// by the source name used in configuration.
type Sources struct {
	FX     FXFetcher
	Yields map[string]YieldFetcher
	COT    PositioningFetcher
}

// Pipeline wires sources, assembly and storage for one configuration.
type Pipeline struct {
	cfg       *marketconfig.Config
	sources   Sources
	assembler *assemble.Assembler
	store     Storage
	logger    *logger.Logger
}

// New creates a pipeline.
func New(cfg *marketconfig.Config, sources Sources, store Storage, log *logger.Logger) (*Pipeline, error) {
	assembler, err := assemble.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		sources:   sources,
		assembler: assembler,
		store:     store,
		logger:    log.WithField("module", "pipeline"),
	}, nil
}

// RunMarket executes the daily market build as of asOf: fetch, align,
// derive, persist. Running twice with the same asOf and sources yields
// identical artifacts; asOf pins the partial-candle cutoff.
func (p *Pipeline) RunMarket(ctx context.Context, asOf time.Time) (*timeseries.Panel, *report.Summary, error) {
	p.logger.WithField("as_of", asOf.Format(time.RFC3339)).Info("Market run started")
	start := p.cfg.Start()

	src := assemble.SourceSet{
		FX:     make(map[string]*timeseries.Series, len(p.cfg.FX)),
		Yields: make(map[string]*timeseries.Series, len(p.cfg.Yields)),
	}

	for _, fx := range p.cfg.FX {
		s, err := p.sources.FX.DailyCloses(ctx, fx.Name, fx.Symbol, start, asOf)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"name":  fx.Name,
				"error": err.Error(),
			}).Warn("FX source failed")
			continue
		}
		src.FX[fx.Name] = s
	}

	for _, y := range p.cfg.Yields {
		fetcher, ok := p.sources.Yields[y.Source]
		if !ok {
			p.logger.WithFields(map[string]interface{}{
				"name":   y.Name,
				"source": y.Source,
			}).Warn("No fetcher for yield source")
			continue
		}
		s, err := fetcher.Series(ctx, y.Name, y.Key, start)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"name":  y.Name,
				"error": err.Error(),
			}).Warn("Yield source failed")
			continue
		}
		src.Yields[y.Name] = s
	}

	panel, sum, err := p.assembler.BuildMaster(src, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("market run: %w", err)
	}

	if err := p.store.SaveMaster(panel, asOf); err != nil {
		return nil, nil, fmt.Errorf("save master: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"rows":    panel.Len(),
		"columns": len(panel.Columns()),
	}).Info("Market run completed")

	return panel, sum, nil
}

// RunPositioning executes the weekly positioning build: fetch the
// yearly archives, derive the category streams, persist the weekly
// panel and merge it onto the current master.
func (p *Pipeline) RunPositioning(ctx context.Context, asOf time.Time) (*timeseries.Panel, *report.Summary, error) {
	p.logger.WithField("as_of", asOf.Format(time.RFC3339)).Info("Positioning run started")

	markets := make(map[string]string, len(p.cfg.Positioning.Markets))
	for _, m := range p.cfg.Positioning.Markets {
		markets[m.Name] = m.Ticker
	}

	years := p.sources.COT.DiscoverYears(ctx, asOf, p.cfg.Positioning.HistoryYears)
	raw, err := p.sources.COT.FetchYears(ctx, markets, years)
	if err != nil {
		return nil, nil, fmt.Errorf("positioning run: %w", err)
	}

	engine := positioning.NewEngine(p.cfg, p.logger)
	merged := report.New("positioning")

	var streams []positioning.Stream
	for _, m := range p.cfg.Positioning.Markets {
		rows, ok := raw[m.Ticker]
		if !ok || len(rows) == 0 {
			merged.Warn(fmt.Sprintf("no report rows for %s", m.Ticker))
			continue
		}
		computed, sum := engine.Compute(m.Ticker, rows)
		streams = append(streams, computed...)
		merged.Merge(sum)
	}

	weekly, err := positioning.BuildPanel(streams, p.cfg.Aliases)
	if err != nil {
		return nil, nil, fmt.Errorf("positioning run: %w", err)
	}

	if err := p.store.SavePositioning(weekly); err != nil {
		return nil, nil, fmt.Errorf("save positioning: %w", err)
	}

	if err := p.mergeOntoMaster(weekly, merged); err != nil {
		return nil, nil, err
	}

	merged.Log(p.logger)
	return weekly, merged, nil
}

// mergeOntoMaster joins the weekly panel onto the stored master. A
// missing master is a warning, not an error: the market run may simply
// not have happened yet on a fresh deployment.
func (p *Pipeline) mergeOntoMaster(weekly *timeseries.Panel, sum *report.Summary) error {
	master, err := p.store.LoadMaster()
	if err != nil {
		sum.Warn("master panel unavailable, merge skipped")
		p.logger.WithError(err).Warn("Master panel unavailable, merge skipped")
		return nil
	}

	combined, mergeSum, err := p.assembler.MergePositioning(master, weekly)
	if err != nil {
		return fmt.Errorf("merge positioning: %w", err)
	}
	sum.Merge(mergeSum)

	if err := p.store.SaveMerged(combined); err != nil {
		return fmt.Errorf("save merged: %w", err)
	}
	return nil
}
