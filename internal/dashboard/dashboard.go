// Package dashboard renders per-pair PNG dashboards from the merged
// panel: price on top, the two rate differentials in the middle,
// positioning percentile with crowding thresholds at the bottom.
package dashboard

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

var (
	priceColor     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	spreadBlue     = color.RGBA{R: 0x29, G: 0x80, B: 0xb9, A: 0xff}
	spreadOrange   = color.RGBA{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff}
	percentileInk  = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	assetMgrPurple = color.RGBA{R: 0x8e, G: 0x44, B: 0xad, A: 0xff}
	threshRed      = color.RGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff}
	threshGreen    = color.RGBA{R: 0x1e, G: 0x84, B: 0x49, A: 0xff}
	midGray        = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Renderer draws the configured pair dashboards.
type Renderer struct {
	cfg    *marketconfig.Config
	dir    string
	logger *logger.Logger
}

// New creates a renderer writing PNGs into dir.
func New(cfg *marketconfig.Config, dir string, log *logger.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		dir:    dir,
		logger: log.WithField("module", "dashboard"),
	}
}

// RenderAll draws one dashboard per configured chart pair. A pair whose
// price column is entirely absent is skipped with a warning.
func (r *Renderer) RenderAll(merged *timeseries.Panel, asOf time.Time) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	cutoff := asOf.AddDate(0, -r.cfg.Charts.LookbackMonths, 0)

	var paths []string
	for _, cp := range r.cfg.Charts.Pairs {
		path, err := r.renderPair(merged, cp, cutoff, asOf)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"pair":  cp.Pair,
				"error": err.Error(),
			}).Warn("Dashboard skipped")
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no dashboards rendered")
	}
	return paths, nil
}

func (r *Renderer) renderPair(panel *timeseries.Panel, cp marketconfig.ChartPair, cutoff, asOf time.Time) (string, error) {
	pricePlot, err := r.pricePanel(panel, cp, cutoff)
	if err != nil {
		return "", err
	}
	spreadPlot, err := r.spreadPanel(panel, cp, cutoff)
	if err != nil {
		return "", err
	}
	posPlot, err := r.positioningPanel(panel, cp, cutoff)
	if err != nil {
		return "", err
	}

	img := vgimg.New(28*vg.Centimeter, 24*vg.Centimeter)
	dc := draw.New(img)

	plots := [][]*plot.Plot{{pricePlot}, {spreadPlot}, {posPlot}}
	tiles := draw.Tiles{
		Rows: 3, Cols: 1,
		PadX: 2 * vg.Millimeter, PadY: 4 * vg.Millimeter,
		PadTop: 2 * vg.Millimeter, PadBottom: 2 * vg.Millimeter,
		PadLeft: 2 * vg.Millimeter, PadRight: 2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_%s.png", cp.Filename, asOf.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"pair": cp.Pair,
		"path": path,
	}).Info("Dashboard saved")

	return path, nil
}

func (r *Renderer) pricePanel(panel *timeseries.Panel, cp marketconfig.ChartPair, cutoff time.Time) (*plot.Plot, error) {
	pts := columnPoints(panel, cp.Pair, cutoff)
	if len(pts) == 0 {
		return nil, fmt.Errorf("price column %s has no data in window", cp.Pair)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s price", cp.Pair)
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 06"}
	p.Y.Label.Text = cp.Pair

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("price line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = priceColor
	p.Add(line, plotter.NewGrid())

	return p, nil
}

func (r *Renderer) spreadPanel(panel *timeseries.Panel, cp marketconfig.ChartPair, cutoff time.Time) (*plot.Plot, error) {
	primary := columnPoints(panel, cp.SpreadPrimary, cutoff)
	secondary := columnPoints(panel, cp.SpreadSecondary, cutoff)
	if len(primary) == 0 && len(secondary) == 0 {
		return nil, fmt.Errorf("no spread data for %s", cp.Pair)
	}

	p := plot.New()
	p.Title.Text = "Rate differentials (pp), narrowing favors the foreign currency"
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 06"}
	p.Y.Label.Text = "spread (pp)"
	p.Legend.Top = true

	if len(primary) > 0 {
		line, err := plotter.NewLine(primary)
		if err != nil {
			return nil, fmt.Errorf("primary spread line: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.8)
		line.LineStyle.Color = spreadBlue
		p.Add(line)
		p.Legend.Add(cp.SpreadPrimary, line)
	}
	if len(secondary) > 0 {
		line, err := plotter.NewLine(secondary)
		if err != nil {
			return nil, fmt.Errorf("secondary spread line: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.8)
		line.LineStyle.Color = spreadOrange
		p.Add(line)
		p.Legend.Add(cp.SpreadSecondary, line)
	}

	// Parity line: above zero the US leg pays more.
	zero := horizontalLine(primary, secondary, 0)
	zero.LineStyle.Color = midGray
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(zero, plotter.NewGrid())

	return p, nil
}

func (r *Renderer) positioningPanel(panel *timeseries.Panel, cp marketconfig.ChartPair, cutoff time.Time) (*plot.Plot, error) {
	levCol := fmt.Sprintf("%s_levmoney_percentile", cp.Market)
	amCol := fmt.Sprintf("%s_assetmgr_percentile", cp.Market)

	lev := columnPoints(panel, levCol, cutoff)
	am := columnPoints(panel, amCol, cutoff)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s positioning percentile, crowded above %.0f / below %.0f",
		cp.Market, r.cfg.Positioning.CrowdedLongAt, r.cfg.Positioning.CrowdedShortAt)
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 06"}
	p.Y.Label.Text = "percentile"
	p.Y.Min, p.Y.Max = 0, 100
	p.Legend.Top = true

	if len(lev) == 0 && len(am) == 0 {
		// Positioning may simply not have run yet; an empty panel still
		// renders so the dashboard layout stays stable.
		p.Title.Text = fmt.Sprintf("%s positioning: no data yet", cp.Market)
		p.Add(plotter.NewGrid())
		return p, nil
	}

	if len(lev) > 0 {
		line, err := plotter.NewLine(lev)
		if err != nil {
			return nil, fmt.Errorf("leveraged money line: %w", err)
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = percentileInk
		p.Add(line)
		p.Legend.Add("Leveraged Money", line)
	}
	if len(am) > 0 {
		line, err := plotter.NewLine(am)
		if err != nil {
			return nil, fmt.Errorf("asset manager line: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.8)
		line.LineStyle.Color = assetMgrPurple
		line.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("Asset Manager", line)
	}

	long := horizontalLine(lev, am, r.cfg.Positioning.CrowdedLongAt)
	long.LineStyle.Color = threshRed
	long.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(long)
	p.Legend.Add("crowded long", long)

	short := horizontalLine(lev, am, r.cfg.Positioning.CrowdedShortAt)
	short.LineStyle.Color = threshGreen
	short.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(short)
	p.Legend.Add("crowded short", short)

	mid := horizontalLine(lev, am, 50)
	mid.LineStyle.Color = midGray
	p.Add(mid, plotter.NewGrid())

	return p, nil
}

// columnPoints extracts present cells of one column from cutoff onward
// as time/value points.
func columnPoints(panel *timeseries.Panel, name string, cutoff time.Time) plotter.XYs {
	col, ok := panel.Column(name)
	if !ok {
		return nil
	}

	pts := make(plotter.XYs, 0, len(col))
	for i, v := range col {
		d := panel.DateAt(i)
		if d.Before(cutoff) || timeseries.IsAbsent(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(d.Unix()), Y: v})
	}
	return pts
}

// horizontalLine builds a constant line spanning the x range of the
// given point sets.
func horizontalLine(a, b plotter.XYs, y float64) *plotter.Line {
	minX, maxX := 0.0, 1.0
	first := true
	for _, pts := range []plotter.XYs{a, b} {
		for _, pt := range pts {
			if first {
				minX, maxX = pt.X, pt.X
				first = false
				continue
			}
			if pt.X < minX {
				minX = pt.X
			}
			if pt.X > maxX {
				maxX = pt.X
			}
		}
	}

	line, _ := plotter.NewLine(plotter.XYs{{X: minX, Y: y}, {X: maxX, Y: y}})
	line.LineStyle.Width = vg.Points(1)
	return line
}
