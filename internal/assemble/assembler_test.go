package assemble

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

func testConfig() *marketconfig.Config {
	return &marketconfig.Config{
		Calendar: marketconfig.Calendar{
			Primary:   "EURUSD",
			Defining:  []string{"EURUSD"},
			Timezone:  "America/New_York",
			CloseHour: 17,
			StartDate: "2024-01-01",
		},
		FX: []marketconfig.FXTicker{
			{Name: "EURUSD", Symbol: "EURUSD=X", MaxCarry: 0},
		},
		Yields: []marketconfig.YieldSeries{
			{Name: "US_10Y", Source: "fred", Key: "DGS10", MaxCarry: 5},
			{Name: "DE_10Y", Source: "ecb", Key: "B.DE.10Y", MaxCarry: 7},
		},
		Spreads: []marketconfig.SpreadPair{
			{LegA: "US_10Y", LegB: "DE_10Y", Label: "US_DE_10Y_spread"},
		},
		Changes: marketconfig.Changes{
			Windows: []marketconfig.ChangeWindow{{Label: "1D", Days: 1}},
		},
	}
}

func testAssembler(t *testing.T) *Assembler {
	t.Helper()
	a, err := New(testConfig(), logger.NewWriter(io.Discard))
	require.NoError(t, err)
	return a
}

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

func series(name string, dates []time.Time, values []float64) *timeseries.Series {
	points := make([]timeseries.Point, len(dates))
	for i := range dates {
		points[i] = timeseries.Point{Date: dates[i], Value: values[i]}
	}
	return timeseries.NewSeries(name, points)
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBuildMaster(t *testing.T) {
	dates := weekdays(d(2024, 3, 4), 10)
	fx := make([]float64, 10)
	for i := range fx {
		fx[i] = 1.08 + float64(i)*0.001
	}

	src := SourceSet{
		FX: map[string]*timeseries.Series{
			"EURUSD": series("EURUSD", dates, fx),
		},
		Yields: map[string]*timeseries.Series{
			"US_10Y": series("US_10Y", dates, constant(10, 4.50)),
			"DE_10Y": series("DE_10Y", dates, constant(10, 2.30)),
		},
	}

	// Saturday after the last close, so every session is complete.
	panel, sum, err := testAssembler(t).BuildMaster(src, d(2024, 3, 16))
	require.NoError(t, err)

	assert.Equal(t, 10, panel.Len())
	for _, name := range []string{
		"EURUSD", "US_10Y", "DE_10Y",
		"US_DE_10Y_spread",
		"EURUSD_chg_1D", "US_10Y_chg_1D", "US_DE_10Y_spread_chg_1D",
	} {
		assert.True(t, panel.HasColumn(name), name)
	}

	assert.InDelta(t, 2.20, panel.Value("US_DE_10Y_spread", 3), 1e-9)
	assert.InDelta(t, (fx[5]/fx[4]-1)*100, panel.Value("EURUSD_chg_1D", 5), 1e-9)
	assert.InDelta(t, 0, panel.Value("US_10Y_chg_1D", 5), 1e-9)

	assert.Empty(t, sum.Warnings)
}

func TestBuildMasterDegradesMissingYield(t *testing.T) {
	dates := weekdays(d(2024, 3, 4), 10)
	fx := constant(10, 1.08)

	src := SourceSet{
		FX: map[string]*timeseries.Series{
			"EURUSD": series("EURUSD", dates, fx),
		},
		Yields: map[string]*timeseries.Series{
			"US_10Y": series("US_10Y", dates, constant(10, 4.50)),
			// DE_10Y fetch failed this run.
		},
	}

	panel, sum, err := testAssembler(t).BuildMaster(src, d(2024, 3, 16))
	require.NoError(t, err)

	col, ok := panel.Column("DE_10Y")
	require.True(t, ok, "the column exists even when its source failed")
	for i := range col {
		assert.True(t, timeseries.IsAbsent(col[i]))
	}
	spread, _ := panel.Column("US_DE_10Y_spread")
	for i := range spread {
		assert.True(t, timeseries.IsAbsent(spread[i]))
	}
	assert.NotEmpty(t, sum.Warnings)
}

func TestBuildMasterAbsentDefiningColumnDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.FX = append(cfg.FX, marketconfig.FXTicker{Name: "USDJPY", Symbol: "USDJPY=X"})
	cfg.Calendar.Defining = []string{"EURUSD", "USDJPY"}
	a, err := New(cfg, logger.NewWriter(io.Discard))
	require.NoError(t, err)

	dates := weekdays(d(2024, 3, 4), 10)
	src := SourceSet{
		FX: map[string]*timeseries.Series{
			"EURUSD": series("EURUSD", dates, constant(10, 1.08)),
			// USDJPY fetch failed this run.
		},
		Yields: map[string]*timeseries.Series{
			"US_10Y": series("US_10Y", dates, constant(10, 4.50)),
			"DE_10Y": series("DE_10Y", dates, constant(10, 2.30)),
		},
	}

	panel, sum, err := a.BuildMaster(src, d(2024, 3, 16))
	require.NoError(t, err, "a dead defining source degrades its column, it never empties the panel")

	assert.Equal(t, 10, panel.Len())
	assert.Contains(t, sum.Warnings,
		"defining column USDJPY entirely absent, row filter skipped for it")
}

func TestReportCompletenessWarnsInColumnOrder(t *testing.T) {
	a := testAssembler(t)

	panel, err := timeseries.NewPanel(weekdays(d(2024, 3, 4), 4))
	require.NoError(t, err)
	require.NoError(t, panel.AddColumn("zeta", constant(4, 1.0)))
	require.NoError(t, panel.AddAbsentColumn("beta"))
	require.NoError(t, panel.AddAbsentColumn("alpha"))

	// Map iteration must not leak into the summary: every pass warns in
	// the same sorted order.
	for run := 0; run < 3; run++ {
		sum := report.New("assemble")
		a.reportCompleteness(panel, sum)
		assert.Equal(t, []string{
			"column alpha is 4/4 absent",
			"column beta is 4/4 absent",
		}, sum.Warnings, "run %d", run)
	}
}

func TestBuildMasterMissingPrimaryFails(t *testing.T) {
	_, _, err := testAssembler(t).BuildMaster(SourceSet{}, d(2024, 3, 16))
	assert.Error(t, err)
}

func TestBuildMasterTrimsStart(t *testing.T) {
	cfg := testConfig()
	cfg.Calendar.StartDate = "2024-03-06"
	a, err := New(cfg, logger.NewWriter(io.Discard))
	require.NoError(t, err)

	dates := weekdays(d(2024, 3, 4), 5)
	src := SourceSet{
		FX: map[string]*timeseries.Series{
			"EURUSD": series("EURUSD", dates, constant(5, 1.08)),
		},
	}

	panel, _, err := a.BuildMaster(src, d(2024, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 3, panel.Len())
	assert.Equal(t, d(2024, 3, 6), panel.DateAt(0))
}

func TestMergePositioning(t *testing.T) {
	a := testAssembler(t)

	dates := weekdays(d(2024, 3, 4), 10)
	master, err := timeseries.NewPanel(dates)
	require.NoError(t, err)
	require.NoError(t, master.AddColumn("EURUSD", constant(10, 1.08)))

	// Weekly reports on the two Tuesdays of the window.
	weekly, err := timeseries.NewPanel([]time.Time{d(2024, 3, 5), d(2024, 3, 12)})
	require.NoError(t, err)
	require.NoError(t, weekly.AddColumn("EUR_levmoney_net", []float64{100, 200}))
	require.NoError(t, weekly.AddColumn("EURUSD", []float64{9, 9})) // collides with master

	merged, sum, err := a.MergePositioning(master, weekly)
	require.NoError(t, err)

	net, ok := merged.Column("EUR_levmoney_net")
	require.True(t, ok)

	// Before the first report nothing carries; between reports the first
	// value holds; from the second report onward the new value holds.
	assert.True(t, timeseries.IsAbsent(net[0]), "Monday before the first report")
	for i := 1; i <= 5; i++ {
		assert.Equal(t, 100.0, net[i], "row %d", i)
	}
	for i := 6; i < 10; i++ {
		assert.Equal(t, 200.0, net[i], "row %d", i)
	}

	// The colliding column keeps the master values.
	assert.Equal(t, 1.08, merged.Value("EURUSD", 0))
	assert.NotEmpty(t, sum.Warnings)
}

func TestMergePositioningEmptyWeekly(t *testing.T) {
	a := testAssembler(t)

	master, err := timeseries.NewPanel(weekdays(d(2024, 3, 4), 3))
	require.NoError(t, err)
	require.NoError(t, master.AddColumn("EURUSD", constant(3, 1.08)))

	merged, sum, err := a.MergePositioning(master, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD"}, merged.Columns())
	assert.NotEmpty(t, sum.Warnings)
}
