package derive

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

func testLog() *logger.Logger { return logger.NewWriter(io.Discard) }

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// weekdays generates n consecutive weekday dates starting at start.
func weekdays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	for dd := timeseries.Date(start); len(dates) < n; dd = dd.AddDate(0, 0, 1) {
		if wd := dd.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, dd)
	}
	return dates
}

func newPanel(t *testing.T, n int) *timeseries.Panel {
	t.Helper()
	p, err := timeseries.NewPanel(weekdays(d(2024, 3, 4), n))
	require.NoError(t, err)
	return p
}

func TestDifferentialsApply(t *testing.T) {
	cfg := &marketconfig.Config{
		Spreads: []marketconfig.SpreadPair{
			{LegA: "US_2Y", LegB: "DE_10Y", Label: "US2Y_DE10Y_spread"},
		},
	}

	p := newPanel(t, 3)
	require.NoError(t, p.AddColumn("US_2Y", []float64{4.50, 4.55, timeseries.Absent()}))
	require.NoError(t, p.AddColumn("DE_10Y", []float64{2.30, timeseries.Absent(), 2.35}))

	sum, err := NewDifferentials(cfg, testLog()).Apply(p)
	require.NoError(t, err)

	spread, ok := p.Column("US2Y_DE10Y_spread")
	require.True(t, ok)

	assert.InDelta(t, 2.20, spread[0], 1e-9)
	assert.True(t, timeseries.IsAbsent(spread[1]), "absent leg must give an absent spread")
	assert.True(t, timeseries.IsAbsent(spread[2]))
	assert.Equal(t, 2, sum.Absent["US2Y_DE10Y_spread"])
}

func TestDifferentialsMissingLegDegrades(t *testing.T) {
	cfg := &marketconfig.Config{
		Spreads: []marketconfig.SpreadPair{
			{LegA: "US_10Y", LegB: "JP_10Y", Label: "US_JP_10Y_spread"},
		},
	}

	p := newPanel(t, 2)
	require.NoError(t, p.AddColumn("US_10Y", []float64{4.5, 4.5}))

	sum, err := NewDifferentials(cfg, testLog()).Apply(p)
	require.NoError(t, err)

	col, ok := p.Column("US_JP_10Y_spread")
	require.True(t, ok, "spread column must exist even with a missing leg")
	for i := range col {
		assert.True(t, timeseries.IsAbsent(col[i]))
	}
	assert.NotEmpty(t, sum.Warnings)
}

func TestCurveInverted(t *testing.T) {
	cfg := &marketconfig.Config{
		Curve: marketconfig.Curve{Long: "US_10Y", Short: "US_2Y", Label: "US_curve_2s10s"},
	}

	p := newPanel(t, 3)
	require.NoError(t, p.AddColumn("US_10Y", []float64{4.20, 4.20, 4.20}))
	require.NoError(t, p.AddColumn("US_2Y", []float64{4.00, 4.50, timeseries.Absent()}))

	diff := NewDifferentials(cfg, testLog())
	_, err := diff.Apply(p)
	require.NoError(t, err)

	// The most recent row carrying the slope is row 1, where 10Y < 2Y.
	inverted, ok := diff.CurveInverted(p)
	assert.True(t, ok)
	assert.True(t, inverted)
}
