// Package brief renders the desk-readable morning brief from the
// merged panel. Target: readable in sixty seconds by someone on an FX
// desk.
package brief

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/positioning"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

const lineWidth = 70

// Builder renders and saves morning briefs.
type Builder struct {
	cfg    *marketconfig.Config
	engine *positioning.Engine
	dir    string
	logger *logger.Logger
}

// New creates a brief builder writing into dir.
func New(cfg *marketconfig.Config, dir string, log *logger.Logger) *Builder {
	return &Builder{
		cfg:    cfg,
		engine: positioning.NewEngine(cfg, log),
		dir:    dir,
		logger: log.WithField("module", "brief"),
	}
}

// Build renders the brief from the merged panel. The reference row is
// the most recent one carrying every configured read pair; weekly
// positioning cells on it are the carried values from the last report.
func (b *Builder) Build(merged *timeseries.Panel, cotDate string, now time.Time) (string, error) {
	pairs := make([]string, 0, len(b.cfg.Brief.Reads))
	for _, r := range b.cfg.Brief.Reads {
		pairs = append(pairs, r.Pair)
	}
	if len(pairs) == 0 {
		pairs = []string{b.cfg.Calendar.Primary}
	}

	row := merged.LastValidRow(pairs...)
	if row < 0 {
		return "", fmt.Errorf("no row carries all of %s", strings.Join(pairs, ", "))
	}
	asOf := merged.DateAt(row).Format("2006-01-02")

	var sb strings.Builder
	rule := strings.Repeat("=", lineWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString("  G10 FX MORNING BRIEF\n")
	sb.WriteString("  " + now.Format("Monday, 02 January 2006") + "\n")
	sb.WriteString(fmt.Sprintf("  data as of: %s  |  COT as of: %s\n", asOf, cotDate))
	sb.WriteString(rule + "\n\n")

	b.writePrices(&sb, merged, row)
	b.writeDifferentials(&sb, merged, row)
	b.writePositioning(&sb, merged, row, cotDate)
	b.writeRegimeReads(&sb, merged, row)

	sb.WriteString(rule + "\n")
	return sb.String(), nil
}

func (b *Builder) writePrices(sb *strings.Builder, p *timeseries.Panel, row int) {
	sb.WriteString("  PRICES\n")

	table := tablewriter.NewWriter(sb)
	table.Header("Pair", "Price", "1D", "1W", "1M", "12M")
	for _, fx := range b.cfg.FX {
		table.Append(
			fx.Name,
			fmtPrice(p.Value(fx.Name, row)),
			fmtPct(p.Value(fx.Name+"_chg_1D", row)),
			fmtPct(p.Value(fx.Name+"_chg_1W", row)),
			fmtPct(p.Value(fx.Name+"_chg_1M", row)),
			fmtPct(p.Value(fx.Name+"_chg_12M", row)),
		)
	}
	table.Render()
	sb.WriteString("\n")
}

func (b *Builder) writeDifferentials(sb *strings.Builder, p *timeseries.Panel, row int) {
	sb.WriteString("  RATE DIFFERENTIALS  (narrowing = foreign currency should strengthen)\n")

	table := tablewriter.NewWriter(sb)
	table.Header("Spread", "Today", "1D chg", "12M chg")
	for _, sp := range b.cfg.Spreads {
		table.Append(
			sp.Label,
			fmtLevel(p.Value(sp.Label, row)),
			fmtPP(p.Value(sp.Label+"_chg_1D", row)),
			fmtPP(p.Value(sp.Label+"_chg_12M", row)),
		)
	}
	if b.cfg.Curve.Label != "" {
		table.Append(
			b.cfg.Curve.Label,
			fmtLevel(p.Value(b.cfg.Curve.Label, row)),
			fmtPP(p.Value(b.cfg.Curve.Label+"_chg_1D", row)),
			fmtPP(p.Value(b.cfg.Curve.Label+"_chg_12M", row)),
		)
	}
	table.Render()
	sb.WriteString("\n")
}

// categoryLabels maps category codes to desk-readable names.
var categoryLabels = map[positioning.Category]string{
	positioning.CategoryLevMoney:      "Leveraged Money",
	positioning.CategoryAssetMgr:      "Asset Manager",
	positioning.CategoryNonCommercial: "NonCommercial",
}

func (b *Builder) writePositioning(sb *strings.Builder, p *timeseries.Panel, row int, cotDate string) {
	sb.WriteString(fmt.Sprintf("  COT POSITIONING (as of %s)\n", cotDate))

	for _, m := range b.cfg.Positioning.Markets {
		sb.WriteString(fmt.Sprintf("\n  %s:\n", m.Ticker))

		table := tablewriter.NewWriter(sb)
		table.Header("Category", "Net", "% OI", "Regime")
		for _, cat := range positioning.Categories {
			rec := positioning.Record{
				Net:        p.Value(fmt.Sprintf("%s_%s_net", m.Ticker, cat), row),
				NetPctOI:   p.Value(fmt.Sprintf("%s_%s_pct_oi", m.Ticker, cat), row),
				Percentile: p.Value(fmt.Sprintf("%s_%s_percentile", m.Ticker, cat), row),
			}
			table.Append(
				categoryLabels[cat],
				fmtNet(rec.Net),
				fmtPctOI(rec.NetPctOI),
				b.regimeWithPct(rec),
			)
		}
		table.Render()

		lev := positioning.Record{Net: p.Value(fmt.Sprintf("%s_%s_net", m.Ticker, positioning.CategoryLevMoney), row)}
		am := positioning.Record{Net: p.Value(fmt.Sprintf("%s_%s_net", m.Ticker, positioning.CategoryAssetMgr), row)}
		if positioning.Divergent(lev, am) {
			sb.WriteString("  >> DIVERGENCE: Leveraged Money and Asset Manager opposing; signal reliability reduced\n")
		}
	}
	sb.WriteString("\n")
}

// regimeWithPct renders the regime label with the percentile attached.
func (b *Builder) regimeWithPct(rec positioning.Record) string {
	regime := b.engine.Regime(rec)
	if timeseries.IsAbsent(rec.Percentile) {
		return regime
	}
	return fmt.Sprintf("%s (%.0fth pct)", regime, rec.Percentile)
}

func (b *Builder) writeRegimeReads(sb *strings.Builder, p *timeseries.Panel, row int) {
	if len(b.cfg.Brief.Reads) == 0 {
		return
	}

	sb.WriteString("  REGIME READ\n")
	sb.WriteString("  " + strings.Repeat("-", lineWidth-4) + "\n")

	for i, r := range b.cfg.Brief.Reads {
		if i > 0 {
			sb.WriteString("\n")
		}
		text := b.interpret(p, row, r)
		sb.WriteString(wrap(r.Pair+"  ", text))
	}
	sb.WriteString("\n")
}

// interpret gives the one-line plain English read for one pair:
// direction from the 12M spread change, crowding overlay from the
// leveraged money percentile.
func (b *Builder) interpret(p *timeseries.Panel, row int, r marketconfig.RegimeRead) string {
	chg12m := p.Value(r.Spread+"_chg_12M", row)
	foreign := foreignCurrency(r)

	var direction string
	switch {
	case timeseries.IsAbsent(chg12m):
		direction = "spread history incomplete, no directional signal"
	case chg12m < -0.10 && r.ForeignLeg == "base":
		direction = fmt.Sprintf("spread compression supports %s strength", foreign)
	case chg12m < -0.10:
		direction = fmt.Sprintf("spread compression favors lower %s", r.Pair)
	case chg12m > 0.10 && r.ForeignLeg == "base":
		direction = "spread widening supports USD strength"
	case chg12m > 0.10:
		direction = fmt.Sprintf("spread widening favors higher %s", r.Pair)
	default:
		direction = "spreads flat, no directional signal from differentials"
	}

	net := p.Value(fmt.Sprintf("%s_%s_net", r.Market, positioning.CategoryLevMoney), row)
	pct := p.Value(fmt.Sprintf("%s_%s_percentile", r.Market, positioning.CategoryLevMoney), row)

	var crowding string
	switch {
	case timeseries.IsAbsent(pct):
		crowding = "positioning data unavailable"
	case pct >= b.cfg.Positioning.CrowdedLongAt:
		crowding = "positioning crowded long, asymmetric reversal risk"
	case pct <= b.cfg.Positioning.CrowdedShortAt:
		crowding = fmt.Sprintf("%s shorts crowded, squeeze risk if a catalyst appears", foreign)
	case !timeseries.IsAbsent(net) && net < 0:
		crowding = fmt.Sprintf("positioning moderately short (%.0fth pct), no crowding distortion", pct)
	default:
		crowding = fmt.Sprintf("positioning neutral (%.0fth pct), no crowding distortion", pct)
	}

	return direction + "; " + crowding + "."
}

// Save writes the brief to briefs/brief_YYYYMMDD.txt.
func (b *Builder) Save(text string, now time.Time) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create brief dir: %w", err)
	}

	path := filepath.Join(b.dir, fmt.Sprintf("brief_%s.txt", now.Format("20060102")))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write brief: %w", err)
	}

	b.logger.WithField("path", path).Info("Brief saved")
	return path, nil
}

// foreignCurrency extracts the non-USD currency code from the pair.
func foreignCurrency(r marketconfig.RegimeRead) string {
	if len(r.Pair) < 6 {
		return r.Pair
	}
	if r.ForeignLeg == "base" {
		return r.Pair[:3]
	}
	return r.Pair[3:]
}

// wrap renders "  PREFIXtext" folded at the brief line width, with
// continuation lines indented under the text column.
func wrap(prefix, text string) string {
	width := lineWidth - 4 - len(prefix)
	if width < 20 {
		width = 20
	}

	var out strings.Builder
	out.WriteString("  " + prefix)

	line := 0
	for _, word := range strings.Fields(text) {
		if line > 0 && line+1+len(word) > width {
			out.WriteString("\n  " + strings.Repeat(" ", len(prefix)))
			line = 0
		}
		if line > 0 {
			out.WriteString(" ")
			line++
		}
		out.WriteString(word)
		line += len(word)
	}
	out.WriteString("\n")
	return out.String()
}

func fmtPrice(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtLevel(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func fmtPct(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v)
}

func fmtPP(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2fpp", v)
}

func fmtPctOI(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

// fmtNet renders net contracts with sign and thousands separators.
func fmtNet(v float64) string {
	if timeseries.IsAbsent(v) {
		return "n/a"
	}

	n := int64(v)
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := fmt.Sprintf("%d", n)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}
	return sign + grouped.String()
}
