package derive

import (
	"fmt"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// Changes computes trailing changes over fixed lookback windows in
// trading days. Price columns take the percentage rule, yield and
// spread columns the point rule; which rule applies is a configuration
// property of the column, never inferred from the data.
type Changes struct {
	windows   []marketconfig.ChangeWindow
	priceCols []string
	pointCols []string
	logger    *logger.Logger
}

// NewChanges creates the change engine.
func NewChanges(cfg *marketconfig.Config, log *logger.Logger) *Changes {
	return &Changes{
		windows:   cfg.Changes.Windows,
		priceCols: cfg.FXNames(),
		pointCols: cfg.PointColumns(),
		logger:    log.WithField("module", "change"),
	}
}

// Apply adds <col>_chg_<label> per eligible base column and window.
// change = (v[t]/v[t-N] - 1) * 100 for prices, v[t] - v[t-N] for point
// series. If either endpoint is absent the change is absent, never
// coerced to zero.
func (c *Changes) Apply(p *timeseries.Panel) (*report.Summary, error) {
	sum := report.New("change")
	sum.Rows = p.Len()

	for _, col := range c.priceCols {
		if err := c.addChanges(p, col, true, sum); err != nil {
			return nil, err
		}
	}
	for _, col := range c.pointCols {
		if err := c.addChanges(p, col, false, sum); err != nil {
			return nil, err
		}
	}

	sum.Log(c.logger)
	return sum, nil
}

func (c *Changes) addChanges(p *timeseries.Panel, col string, pct bool, sum *report.Summary) error {
	base, ok := p.Column(col)
	if !ok {
		sum.Warn(fmt.Sprintf("base column %s missing, changes skipped", col))
		c.logger.WithField("column", col).Warn("Base column missing, changes skipped")
		return nil
	}

	for _, w := range c.windows {
		name := fmt.Sprintf("%s_chg_%s", col, w.Label)
		values := make([]float64, len(base))
		absent := 0
		for i := range values {
			values[i] = change(base, i, w.Days, pct)
			if timeseries.IsAbsent(values[i]) {
				absent++
			}
		}
		if err := p.AddColumn(name, values); err != nil {
			return err
		}
		sum.AddColumn(name, absent)
	}
	return nil
}

func change(values []float64, i, days int, pct bool) float64 {
	if i < days {
		return timeseries.Absent()
	}
	cur, prev := values[i], values[i-days]
	if timeseries.IsAbsent(cur) || timeseries.IsAbsent(prev) {
		return timeseries.Absent()
	}
	if pct {
		if prev == 0 {
			return timeseries.Absent()
		}
		return (cur/prev - 1) * 100
	}
	return cur - prev
}
