package brief

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

func testConfig() *marketconfig.Config {
	return &marketconfig.Config{
		Calendar: marketconfig.Calendar{Primary: "EURUSD"},
		FX: []marketconfig.FXTicker{
			{Name: "EURUSD", Symbol: "EURUSD=X"},
		},
		Yields: []marketconfig.YieldSeries{
			{Name: "US_10Y", Source: "fred", Key: "DGS10", MaxCarry: 5},
			{Name: "DE_10Y", Source: "ecb", Key: "B.DE.10Y", MaxCarry: 7},
		},
		Spreads: []marketconfig.SpreadPair{
			{LegA: "US_10Y", LegB: "DE_10Y", Label: "US_DE_10Y_spread"},
		},
		Positioning: marketconfig.Positioning{
			Markets: []marketconfig.Market{
				{Name: "EURO FX - CHICAGO MERCANTILE EXCHANGE", Ticker: "EUR"},
			},
			CrowdedLongAt:  80,
			CrowdedShortAt: 20,
		},
		Brief: marketconfig.Brief{
			Reads: []marketconfig.RegimeRead{
				{Pair: "EURUSD", Spread: "US_DE_10Y_spread", Market: "EUR", ForeignLeg: "base"},
			},
		},
	}
}

// mergedPanel builds a minimal merged panel: prices, the spread with its
// changes, and carried positioning cells on the last row.
func mergedPanel(t *testing.T) *timeseries.Panel {
	t.Helper()

	dates := []time.Time{
		time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	p, err := timeseries.NewPanel(dates)
	require.NoError(t, err)

	abs := timeseries.Absent()
	add := func(name string, values ...float64) {
		require.NoError(t, p.AddColumn(name, values))
	}

	add("EURUSD", 1.0832, 1.0850)
	add("EURUSD_chg_1D", 0.10, 0.17)
	add("EURUSD_chg_1W", abs, 0.45)
	add("EURUSD_chg_1M", abs, 1.20)
	add("EURUSD_chg_12M", abs, 2.85)

	add("US_DE_10Y_spread", 2.25, 2.20)
	add("US_DE_10Y_spread_chg_1D", -0.02, -0.05)
	add("US_DE_10Y_spread_chg_12M", abs, -0.45)

	add("EUR_levmoney_net", -52000, -52000)
	add("EUR_levmoney_pct_oi", -8.1, -8.1)
	add("EUR_levmoney_percentile", 15, 15)
	add("EUR_assetmgr_net", 12000, 12000)
	add("EUR_assetmgr_pct_oi", 1.9, 1.9)
	add("EUR_assetmgr_percentile", 55, 55)
	add("EUR_noncom_net", -40000, -40000)
	add("EUR_noncom_pct_oi", -6.2, -6.2)
	add("EUR_noncom_percentile", 25, 25)

	return p
}

func TestBuild(t *testing.T) {
	b := New(testConfig(), t.TempDir(), logger.NewWriter(io.Discard))

	now := time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC)
	text, err := b.Build(mergedPanel(t), "2024-03-12", now)
	require.NoError(t, err)

	assert.Contains(t, text, "G10 FX MORNING BRIEF")
	assert.Contains(t, text, "Monday, 18 March 2024")
	assert.Contains(t, text, "data as of: 2024-03-15")
	assert.Contains(t, text, "COT as of: 2024-03-12")

	// Prices section carries the latest close and its changes.
	assert.Contains(t, text, "1.0850")
	assert.Contains(t, text, "+0.17%")

	// Differentials section in points, not percent changes.
	assert.Contains(t, text, "US_DE_10Y_spread")
	assert.Contains(t, text, "2.20%")
	assert.Contains(t, text, "-0.45pp")

	// Positioning: leveraged money is crowded short at the 15th pct,
	// and its sign opposes asset managers.
	assert.Contains(t, text, "Leveraged Money")
	assert.Contains(t, text, "-52,000")
	assert.Contains(t, text, "CROWDED SHORT (15th pct)")
	assert.Contains(t, text, "MODERATELY LONG (55th pct)")
	assert.Contains(t, text, "DIVERGENCE")

	// Regime read: compression plus crowded shorts.
	assert.Contains(t, text, "spread compression supports EUR strength")
	assert.Contains(t, text, "EUR shorts crowded, squeeze risk")
}

func TestBuildWithoutPositioning(t *testing.T) {
	cfg := testConfig()
	b := New(cfg, t.TempDir(), logger.NewWriter(io.Discard))

	dates := []time.Time{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	p, err := timeseries.NewPanel(dates)
	require.NoError(t, err)
	require.NoError(t, p.AddColumn("EURUSD", []float64{1.0850}))

	text, err := b.Build(p, "n/a", time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, text, "NO DATA")
	assert.Contains(t, text, "positioning data unavailable")
	assert.NotContains(t, text, "DIVERGENCE")
}

func TestBuildNoValidRow(t *testing.T) {
	b := New(testConfig(), t.TempDir(), logger.NewWriter(io.Discard))

	dates := []time.Time{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	p, err := timeseries.NewPanel(dates)
	require.NoError(t, err)
	require.NoError(t, p.AddAbsentColumn("EURUSD"))

	_, err = b.Build(p, "n/a", time.Now())
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	b := New(testConfig(), dir, logger.NewWriter(io.Discard))

	now := time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC)
	path, err := b.Save("brief body\n", now)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "brief_20240318.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "brief body\n", string(data))
}

func TestWrapIndentsContinuations(t *testing.T) {
	text := strings.Repeat("word ", 30)
	out := wrap("EURUSD  ", strings.TrimSpace(text))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 1, "long text must fold")
	assert.True(t, strings.HasPrefix(lines[0], "  EURUSD  word"))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "  "+strings.Repeat(" ", len("EURUSD  "))), line)
	}
}
