// Package assemble builds the master daily panel from aligned source
// series and merges the weekly positioning panel onto it.
package assemble

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/fxregime/internal/align"
	"github.com/wonny/fxregime/internal/derive"
	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// SourceSet holds the raw series fetched for one run, keyed by
// published column name. A missing or empty entry means the source
// failed; the assembler degrades that column, it never aborts.
type SourceSet struct {
	FX     map[string]*timeseries.Series
	Yields map[string]*timeseries.Series
}

// Assembler builds the master panel: calendar, aligned base columns,
// then the derived feature columns in a fixed order.
type Assembler struct {
	cfg     *marketconfig.Config
	aligner *align.Aligner
	logger  *logger.Logger
}

// New creates an assembler for the configured close convention.
func New(cfg *marketconfig.Config, log *logger.Logger) (*Assembler, error) {
	aligner, err := align.New(cfg.Calendar.Timezone, cfg.Calendar.CloseHour, log)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		cfg:     cfg,
		aligner: aligner,
		logger:  log.WithField("module", "assemble"),
	}, nil
}

// BuildMaster assembles the full master panel as of asOf. The primary
// FX series defines the calendar and its absence is the one fatal
// failure; every other source degrades to an absent column with a
// warning. Derivation order is fixed: differentials, volatility,
// changes, then the defining-column row filter.
func (a *Assembler) BuildMaster(src SourceSet, asOf time.Time) (*timeseries.Panel, *report.Summary, error) {
	sum := report.New("assemble")

	primary := src.FX[a.cfg.Calendar.Primary]
	dates, err := a.aligner.Calendar(primary, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("build calendar: %w", err)
	}
	dates = a.trimStart(dates)

	panel, err := timeseries.NewPanel(dates)
	if err != nil {
		return nil, nil, fmt.Errorf("build master panel: %w", err)
	}
	sum.Rows = panel.Len()

	for _, fx := range a.cfg.FX {
		pol := align.BoundedFill(fx.MaxCarry)
		if err := a.aligner.AddSeries(panel, fx.Name, src.FX[fx.Name], pol, sum); err != nil {
			return nil, nil, err
		}
	}

	for _, y := range a.cfg.Yields {
		pol := align.BoundedFill(y.MaxCarry)
		if err := a.aligner.AddSeries(panel, y.Name, src.Yields[y.Name], pol, sum); err != nil {
			return nil, nil, err
		}
	}

	if err := a.deriveAll(panel, sum); err != nil {
		return nil, nil, err
	}

	panel, err = a.filterDefining(panel, sum)
	if err != nil {
		return nil, nil, fmt.Errorf("filter defining rows: %w", err)
	}
	a.reportCompleteness(panel, sum)

	sum.Log(a.logger)
	return panel, sum, nil
}

// deriveAll runs the three feature engines. Their individual summaries
// fold into the assembly summary so one log line covers the run.
func (a *Assembler) deriveAll(panel *timeseries.Panel, sum *report.Summary) error {
	diff := derive.NewDifferentials(a.cfg, a.logger)
	ds, err := diff.Apply(panel)
	if err != nil {
		return fmt.Errorf("derive differentials: %w", err)
	}
	sum.Merge(ds)

	vol := derive.NewVolatility(a.cfg, a.logger)
	vs, err := vol.Apply(panel)
	if err != nil {
		return fmt.Errorf("derive volatility: %w", err)
	}
	sum.Merge(vs)

	chg := derive.NewChanges(a.cfg, a.logger)
	cs, err := chg.Apply(panel)
	if err != nil {
		return fmt.Errorf("derive changes: %w", err)
	}
	sum.Merge(cs)

	return nil
}

// filterDefining drops rows missing any defining price column. Rows are
// dropped only here, after all derivations, so lookback windows see the
// uncut calendar.
func (a *Assembler) filterDefining(panel *timeseries.Panel, sum *report.Summary) (*timeseries.Panel, error) {
	defining := a.cfg.Calendar.Defining
	if len(defining) == 0 {
		return panel, nil
	}

	cols := make([][]float64, 0, len(defining))
	for _, name := range defining {
		col, ok := panel.Column(name)
		if !ok {
			sum.Warn(fmt.Sprintf("defining column %s missing, row filter skipped for it", name))
			continue
		}
		// A column whose source failed this run is entirely absent and
		// must not drive the filter, or the panel would come out empty.
		if entirelyAbsent(col) {
			sum.Warn(fmt.Sprintf("defining column %s entirely absent, row filter skipped for it", name))
			continue
		}
		cols = append(cols, col)
	}

	before := panel.Len()
	filtered, err := panel.Filter(func(i int) bool {
		for _, col := range cols {
			if timeseries.IsAbsent(col[i]) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if dropped := before - filtered.Len(); dropped > 0 {
		a.logger.WithFields(map[string]interface{}{
			"dropped":  dropped,
			"retained": filtered.Len(),
		}).Info("Dropped rows missing defining columns")
	}
	return filtered, nil
}

// reportCompleteness warns on every column whose absent share exceeds
// half the panel. Purely informational; delivery proceeds regardless.
// Warnings come out in column-name order so repeated runs emit the same
// summary.
func (a *Assembler) reportCompleteness(panel *timeseries.Panel, sum *report.Summary) {
	counts := panel.AbsentCounts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if absent := counts[name]; panel.Len() > 0 && absent*2 > panel.Len() {
			sum.Warn(fmt.Sprintf("column %s is %d/%d absent", name, absent, panel.Len()))
		}
	}
}

func entirelyAbsent(col []float64) bool {
	for _, v := range col {
		if !timeseries.IsAbsent(v) {
			return false
		}
	}
	return true
}

// trimStart drops calendar dates before the configured history start.
func (a *Assembler) trimStart(dates []time.Time) []time.Time {
	start := a.cfg.Start()
	if start.IsZero() {
		return dates
	}
	i := 0
	for i < len(dates) && dates[i].Before(start) {
		i++
	}
	return dates[i:]
}

// MergePositioning joins the weekly positioning panel onto the master
// calendar. Every positioning column is carried until its next report
// row: the underlying position is constant between publications, so an
// unbounded carry states a fact rather than papering over a gap.
func (a *Assembler) MergePositioning(master, weekly *timeseries.Panel) (*timeseries.Panel, *report.Summary, error) {
	sum := report.New("merge")
	sum.Rows = master.Len()

	merged, err := timeseries.NewPanel(master.Dates())
	if err != nil {
		return nil, nil, fmt.Errorf("merge panel: %w", err)
	}
	for _, name := range master.Columns() {
		col, _ := master.Column(name)
		if err := merged.AddColumn(name, col); err != nil {
			return nil, nil, err
		}
	}

	if weekly == nil || weekly.Len() == 0 {
		sum.Warn("positioning panel empty, merge produced master columns only")
		sum.Log(a.logger)
		return merged, sum, nil
	}

	pol := align.CarryUntilNext()
	for _, name := range weekly.Columns() {
		if merged.HasColumn(name) {
			sum.Warn(fmt.Sprintf("positioning column %s collides with master, skipped", name))
			continue
		}
		s, _ := weekly.Series(name)
		if err := a.aligner.AddSeries(merged, name, s, pol, sum); err != nil {
			return nil, nil, err
		}
	}

	sum.Log(a.logger)
	return merged, sum, nil
}
