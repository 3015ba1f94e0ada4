package positioning

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

func testEngine() *Engine {
	cfg := &marketconfig.Config{
		Positioning: marketconfig.Positioning{
			CrowdedLongAt:  80,
			CrowdedShortAt: 20,
		},
	}
	return NewEngine(cfg, logger.NewWriter(io.Discard))
}

// tuesday returns the n-th weekly report date.
func tuesday(n int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

func TestPercentileRanks(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "distinct values",
			values: []float64{10, 30, 20},
			want:   []float64{100.0 / 3, 100, 200.0 / 3},
		},
		{
			name:   "ties take the average rank",
			values: []float64{10, 20, 20, 30},
			want:   []float64{25, 62.5, 62.5, 100},
		},
		{
			name:   "absent values rank absent and shrink the denominator",
			values: []float64{10, timeseries.Absent(), 30},
			want:   []float64{50, timeseries.Absent(), 100},
		},
		{
			name:   "single value",
			values: []float64{-5},
			want:   []float64{100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileRanks(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				if timeseries.IsAbsent(tt.want[i]) {
					assert.True(t, timeseries.IsAbsent(got[i]), "index %d", i)
					continue
				}
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestPercentileRanksMonotonic(t *testing.T) {
	values := []float64{-30000, 12000, -5000, 40000, 0, 12000}
	ranks := PercentileRanks(values)

	for i := range values {
		for j := range values {
			if values[i] < values[j] {
				assert.Less(t, ranks[i], ranks[j],
					"value %v must rank below %v", values[i], values[j])
			}
			if values[i] == values[j] {
				assert.InDelta(t, ranks[i], ranks[j], 1e-9)
			}
		}
	}
}

func TestComputeNetAndPctOI(t *testing.T) {
	rows := []RawReport{
		{
			Date: tuesday(0), OpenInterest: 100000,
			LevMoneyLong: 30000, LevMoneyShort: 50000,
			AssetMgrLong: 60000, AssetMgrShort: 10000,
			TotalLong: 90000, TotalShort: 70000,
		},
		{
			Date: tuesday(1), OpenInterest: 0, // zero OI in the file
			LevMoneyLong: 40000, LevMoneyShort: 20000,
			AssetMgrLong: timeseries.Absent(), AssetMgrShort: 10000,
			TotalLong: 80000, TotalShort: 60000,
		},
	}

	streams, sum := testEngine().Compute("EUR", rows)
	require.Len(t, streams, 3)
	assert.Equal(t, 2, sum.Rows)

	byCat := map[Category]Stream{}
	for _, s := range streams {
		byCat[s.Category] = s
	}

	lev := byCat[CategoryLevMoney]
	require.Len(t, lev.Records, 2)
	assert.Equal(t, -20000.0, lev.Records[0].Net)
	assert.InDelta(t, -20.0, lev.Records[0].NetPctOI, 1e-9)
	assert.Equal(t, 20000.0, lev.Records[1].Net)
	assert.True(t, timeseries.IsAbsent(lev.Records[1].NetPctOI),
		"zero open interest never yields a pct-OI figure")

	am := byCat[CategoryAssetMgr]
	assert.Equal(t, 50000.0, am.Records[0].Net)
	assert.True(t, timeseries.IsAbsent(am.Records[1].Net),
		"an absent leg makes net absent, never zero")

	noncom := byCat[CategoryNonCommercial]
	assert.Equal(t, 20000.0, noncom.Records[0].Net)
	assert.Equal(t, 20000.0, noncom.Records[1].Net)
}

func TestComputeDedupesAndSorts(t *testing.T) {
	rows := []RawReport{
		{Date: tuesday(1), LevMoneyLong: 10, LevMoneyShort: 0},
		{Date: tuesday(0), LevMoneyLong: 5, LevMoneyShort: 0},
		{Date: tuesday(1), LevMoneyLong: 20, LevMoneyShort: 0}, // correction wins
	}

	streams, _ := testEngine().Compute("EUR", rows)
	lev := streams[0]
	require.Equal(t, CategoryLevMoney, lev.Category)
	require.Len(t, lev.Records, 2)
	assert.True(t, lev.Records[0].Date.Before(lev.Records[1].Date))
	assert.Equal(t, 20.0, lev.Records[1].Net)
}

func TestRegime(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"crowded long", Record{Net: 50000, Percentile: 85}, RegimeCrowdedLong},
		{"crowded long boundary", Record{Net: 50000, Percentile: 80}, RegimeCrowdedLong},
		{"crowded short", Record{Net: -50000, Percentile: 15}, RegimeCrowdedShort},
		{"crowded short boundary", Record{Net: -50000, Percentile: 20}, RegimeCrowdedShort},
		{"moderately long", Record{Net: 10000, Percentile: 60}, RegimeModeratelyLong},
		{"moderately short", Record{Net: -10000, Percentile: 40}, RegimeModeratelyShort},
		{"flat net", Record{Net: 0, Percentile: 50}, RegimeNeutral},
		{"no history", Record{Net: 10000, Percentile: timeseries.Absent()}, RegimeNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Regime(tt.rec))
		})
	}
}

func TestDivergent(t *testing.T) {
	assert.True(t, Divergent(Record{Net: 10000}, Record{Net: -5000}))
	assert.False(t, Divergent(Record{Net: 10000}, Record{Net: 5000}))
	assert.False(t, Divergent(Record{Net: -10000}, Record{Net: -5000}))
	assert.False(t, Divergent(Record{Net: timeseries.Absent()}, Record{Net: -5000}),
		"absent net never reads as divergence")
}

func TestBuildPanel(t *testing.T) {
	rows := []RawReport{
		{
			Date: tuesday(0), OpenInterest: 100000,
			LevMoneyLong: 30000, LevMoneyShort: 50000,
			AssetMgrLong: 60000, AssetMgrShort: 10000,
			TotalLong: 90000, TotalShort: 70000,
		},
		{
			Date: tuesday(1), OpenInterest: 120000,
			LevMoneyLong: 40000, LevMoneyShort: 20000,
			AssetMgrLong: 55000, AssetMgrShort: 15000,
			TotalLong: 95000, TotalShort: 60000,
		},
	}

	streams, _ := testEngine().Compute("EUR", rows)

	aliases := map[string]string{
		"EUR_net_position": "EUR_levmoney_net",
		"GBP_net_position": "GBP_levmoney_net", // instrument not in this run
	}
	panel, err := BuildPanel(streams, aliases)
	require.NoError(t, err)

	assert.Equal(t, 2, panel.Len())
	for _, suffix := range []string{"net", "pct_oi", "percentile", "long", "short"} {
		assert.True(t, panel.HasColumn("EUR_levmoney_"+suffix), suffix)
	}

	net, _ := panel.Column("EUR_levmoney_net")
	alias, ok := panel.Column("EUR_net_position")
	require.True(t, ok, "alias column must be published")
	assert.Equal(t, net, alias)

	assert.False(t, panel.HasColumn("GBP_net_position"),
		"alias without a canonical target is skipped")
}

func TestBuildPanelEmptyFails(t *testing.T) {
	_, err := BuildPanel(nil, nil)
	assert.Error(t, err)
}
