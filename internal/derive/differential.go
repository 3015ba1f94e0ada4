// Package derive computes the feature columns of the master panel:
// rate differentials, realized volatility with percentile regime, and
// trailing changes. Every engine reads existing panel columns and adds
// new ones; none of them drops or reorders rows.
package derive

import (
	"fmt"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// Differentials computes pairwise yield spreads and the domestic curve
// slope. Spread pairs are configuration, not hardcoded logic.
type Differentials struct {
	pairs  []marketconfig.SpreadPair
	curve  marketconfig.Curve
	logger *logger.Logger
}

// NewDifferentials creates the differential engine.
func NewDifferentials(cfg *marketconfig.Config, log *logger.Logger) *Differentials {
	return &Differentials{
		pairs:  cfg.Spreads,
		curve:  cfg.Curve,
		logger: log.WithField("module", "differential"),
	}
}

// Apply adds one spread column per configured pair and the curve slope.
// A row's spread is absent whenever either leg is absent, never zero
// and never interpolated. A fully missing leg still yields the column,
// entirely absent, with a warning.
func (d *Differentials) Apply(p *timeseries.Panel) (*report.Summary, error) {
	sum := report.New("differential")
	sum.Rows = p.Len()

	for _, pair := range d.pairs {
		if err := d.addSpread(p, pair.LegA, pair.LegB, pair.Label, sum); err != nil {
			return nil, err
		}
	}

	if d.curve.Label != "" {
		if err := d.addSpread(p, d.curve.Long, d.curve.Short, d.curve.Label, sum); err != nil {
			return nil, err
		}
	}

	sum.Log(d.logger)
	return sum, nil
}

func (d *Differentials) addSpread(p *timeseries.Panel, legA, legB, label string, sum *report.Summary) error {
	a, okA := p.Column(legA)
	b, okB := p.Column(legB)

	if !okA || !okB {
		if err := p.AddAbsentColumn(label); err != nil {
			return err
		}
		sum.AddColumn(label, p.Len())
		sum.Warn(fmt.Sprintf("cannot compute %s: leg column missing", label))
		d.logger.WithFields(map[string]interface{}{
			"label": label,
			"leg_a": legA,
			"leg_b": legB,
		}).Warn("Spread legs missing, column left absent")
		return nil
	}

	values := make([]float64, p.Len())
	absent := 0
	for i := range values {
		if timeseries.IsAbsent(a[i]) || timeseries.IsAbsent(b[i]) {
			values[i] = timeseries.Absent()
			absent++
			continue
		}
		values[i] = a[i] - b[i]
	}

	if err := p.AddColumn(label, values); err != nil {
		return err
	}
	sum.AddColumn(label, absent)
	return nil
}

// CurveInverted reports whether the domestic curve slope is negative at
// the most recent row carrying it. Historically a recession signal.
func (d *Differentials) CurveInverted(p *timeseries.Panel) (bool, bool) {
	if d.curve.Label == "" {
		return false, false
	}
	i := p.LastValidRow(d.curve.Label)
	if i < 0 {
		return false, false
	}
	return p.Value(d.curve.Label, i) < 0, true
}
