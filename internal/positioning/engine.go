package positioning

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// Regime labels. The 80/20 thresholds are documented judgment calls,
// not statistically derived cutoffs.
const (
	RegimeCrowdedLong     = "CROWDED LONG"
	RegimeCrowdedShort    = "CROWDED SHORT"
	RegimeModeratelyLong  = "MODERATELY LONG"
	RegimeModeratelyShort = "MODERATELY SHORT"
	RegimeNeutral         = "NEUTRAL"
	RegimeNoData          = "NO DATA"
)

// Engine computes per-category positioning streams from raw weekly
// report rows.
type Engine struct {
	cfg    marketconfig.Positioning
	logger *logger.Logger
}

// NewEngine creates a positioning engine.
func NewEngine(cfg *marketconfig.Config, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg.Positioning,
		logger: log.WithField("module", "positioning"),
	}
}

// Compute derives the three parallel category streams for one
// instrument. Categories are never mixed: each stream's net, pct-OI and
// percentile come from that category's own legs and history. The
// percentile denominator is the full retained history, which grows over
// time; unlike the volatility engine there is no fixed trailing window.
func (e *Engine) Compute(ticker string, rows []RawReport) ([]Stream, *report.Summary) {
	sum := report.New("positioning")
	sum.Rows = len(rows)

	sorted := append([]RawReport(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	sorted = dedupeByDate(sorted)

	streams := make([]Stream, 0, len(Categories))
	for _, cat := range Categories {
		stream := Stream{Ticker: ticker, Category: cat}
		nets := make([]float64, 0, len(sorted))

		for _, row := range sorted {
			long, short := row.Legs(cat)
			rec := Record{
				Date:         timeseries.Date(row.Date),
				Long:         long,
				Short:        short,
				Net:          timeseries.Absent(),
				NetPctOI:     timeseries.Absent(),
				Percentile:   timeseries.Absent(),
				OpenInterest: row.OpenInterest,
			}

			if !timeseries.IsAbsent(long) && !timeseries.IsAbsent(short) {
				rec.Net = long - short
				if !timeseries.IsAbsent(row.OpenInterest) && row.OpenInterest != 0 {
					rec.NetPctOI = rec.Net / row.OpenInterest * 100
				}
			}

			nets = append(nets, rec.Net)
			stream.Records = append(stream.Records, rec)
		}

		pcts := PercentileRanks(nets)
		absent := 0
		for i := range stream.Records {
			stream.Records[i].Percentile = pcts[i]
			if timeseries.IsAbsent(stream.Records[i].Net) {
				absent++
			}
		}

		sum.AddColumn(fmt.Sprintf("%s_%s_net", ticker, cat), absent)
		if absent == len(sorted) && len(sorted) > 0 {
			sum.Warn(fmt.Sprintf("category %s entirely absent for %s", cat, ticker))
		}

		streams = append(streams, stream)
	}

	sum.Log(e.logger)
	return streams, sum
}

// PercentileRanks ranks each value against the entire slice with the
// average-rank tie convention: a value tied with k others receives the
// mean percentile those k+1 observations jointly occupy. Absent inputs
// get absent ranks and do not count toward the denominator. Ranks are
// the pandas rank(pct=true) convention scaled to 0-100, which keeps the
// rank monotonic in the value.
func PercentileRanks(values []float64) []float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !timeseries.IsAbsent(v) {
			present = append(present, v)
		}
	}

	out := make([]float64, len(values))
	n := float64(len(present))
	if n == 0 {
		for i := range out {
			out[i] = timeseries.Absent()
		}
		return out
	}

	sorted := append([]float64(nil), present...)
	sort.Float64s(sorted)

	for i, v := range values {
		if timeseries.IsAbsent(v) {
			out[i] = timeseries.Absent()
			continue
		}
		// Strictly-below count and tie count locate the average rank.
		below := sort.SearchFloat64s(sorted, v)
		upper := sort.Search(len(sorted), func(j int) bool { return sorted[j] > v })
		ties := upper - below
		avgRank := float64(below) + (float64(ties)+1)/2
		out[i] = avgRank / n * 100
	}

	return out
}

// Regime classifies one record. Crowded thresholds trump direction;
// between them the sign of net qualifies the label, and a flat or
// absent net reads neutral.
func (e *Engine) Regime(rec Record) string {
	switch {
	case timeseries.IsAbsent(rec.Percentile):
		return RegimeNoData
	case rec.Percentile >= e.cfg.CrowdedLongAt:
		return RegimeCrowdedLong
	case rec.Percentile <= e.cfg.CrowdedShortAt:
		return RegimeCrowdedShort
	case rec.Net > 0:
		return RegimeModeratelyLong
	case rec.Net < 0:
		return RegimeModeratelyShort
	default:
		return RegimeNeutral
	}
}

// Divergent reports whether two categories' net signs disagree on the
// same date. Pure sign comparison, no magnitude weighting.
func Divergent(a, b Record) bool {
	if timeseries.IsAbsent(a.Net) || timeseries.IsAbsent(b.Net) {
		return false
	}
	return (a.Net > 0) != (b.Net > 0)
}

// BuildPanel lays the streams out as a weekly panel, one row per report
// date, canonical columns per instrument and category plus the legacy
// alias columns from configuration.
func BuildPanel(streams []Stream, aliases map[string]string) (*timeseries.Panel, error) {
	dateSet := map[time.Time]bool{}
	for _, s := range streams {
		for _, rec := range s.Records {
			dateSet[rec.Date] = true
		}
	}
	if len(dateSet) == 0 {
		return nil, fmt.Errorf("no positioning records to panel")
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	panel, err := timeseries.NewPanel(dates)
	if err != nil {
		return nil, fmt.Errorf("positioning panel: %w", err)
	}

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	for _, s := range streams {
		fields := []struct {
			suffix string
			value  func(Record) float64
		}{
			{"net", func(r Record) float64 { return r.Net }},
			{"pct_oi", func(r Record) float64 { return r.NetPctOI }},
			{"percentile", func(r Record) float64 { return r.Percentile }},
			{"long", func(r Record) float64 { return r.Long }},
			{"short", func(r Record) float64 { return r.Short }},
		}

		for _, f := range fields {
			col := make([]float64, len(dates))
			for i := range col {
				col[i] = timeseries.Absent()
			}
			for _, rec := range s.Records {
				col[index[rec.Date]] = f.value(rec)
			}
			name := fmt.Sprintf("%s_%s_%s", s.Ticker, s.Category, f.suffix)
			if err := panel.AddColumn(name, col); err != nil {
				return nil, err
			}
		}
	}

	if err := applyAliases(panel, aliases); err != nil {
		return nil, err
	}

	return panel, nil
}

// applyAliases duplicates canonical columns under their legacy names.
// Aliases are an explicit table so new categories never silently grow
// duplicate columns.
func applyAliases(panel *timeseries.Panel, aliases map[string]string) error {
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	for _, alias := range names {
		canonical := aliases[alias]
		col, ok := panel.Column(canonical)
		if !ok {
			// The canonical column may belong to an instrument not
			// present this run; an alias without a target is not fatal.
			continue
		}
		if err := panel.AddColumn(alias, col); err != nil {
			return err
		}
	}
	return nil
}

func dedupeByDate(rows []RawReport) []RawReport {
	out := rows[:0]
	for _, row := range rows {
		if n := len(out); n > 0 && timeseries.Date(out[n-1].Date).Equal(timeseries.Date(row.Date)) {
			out[n-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}
