package derive

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// Volatility regime labels. Thresholds are policy constants from
// configuration, not computed.
const (
	VolRegimeExtreme  = "EXTREME"
	VolRegimeElevated = "ELEVATED"
	VolRegimeNormal   = "NORMAL"
)

// Volatility computes rolling realized volatility per price column and
// its percentile rank over a fixed trailing window.
type Volatility struct {
	cfg    marketconfig.Volatility
	logger *logger.Logger
}

// NewVolatility creates the volatility engine.
func NewVolatility(cfg *marketconfig.Config, log *logger.Logger) *Volatility {
	return &Volatility{
		cfg:    cfg.Volatility,
		logger: log.WithField("module", "volatility"),
	}
}

// Apply adds, for each configured pair, <pair>_vol30 (annualized
// percent) and <pair>_vol_pct (trailing percentile, 0-100). The
// percentile is only emitted once MinObservations volatility readings
// exist inside the trailing window; before that it stays absent no
// matter how much raw price history there is.
func (v *Volatility) Apply(p *timeseries.Panel) (*report.Summary, error) {
	sum := report.New("volatility")
	sum.Rows = p.Len()

	for _, pair := range v.cfg.Pairs {
		prices, ok := p.Column(pair)
		if !ok {
			sum.Warn(fmt.Sprintf("price column %s missing, volatility skipped", pair))
			v.logger.WithField("column", pair).Warn("Price column missing, volatility skipped")
			continue
		}

		vol := v.realized(prices)
		volCol := fmt.Sprintf("%s_vol30", pair)
		if err := p.AddColumn(volCol, vol); err != nil {
			return nil, err
		}
		sum.AddColumn(volCol, countAbsent(vol))

		pct := v.trailingPercentile(vol)
		pctCol := fmt.Sprintf("%s_vol_pct", pair)
		if err := p.AddColumn(pctCol, pct); err != nil {
			return nil, err
		}
		sum.AddColumn(pctCol, countAbsent(pct))
	}

	sum.Log(v.logger)
	return sum, nil
}

// realized computes the annualized standard deviation of log returns
// over a trailing window, as a percentage. A reading requires a full
// window of consecutive present returns.
func (v *Volatility) realized(prices []float64) []float64 {
	n := len(prices)
	returns := make([]float64, n)
	returns[0] = timeseries.Absent()
	for i := 1; i < n; i++ {
		if timeseries.IsAbsent(prices[i]) || timeseries.IsAbsent(prices[i-1]) || prices[i-1] <= 0 || prices[i] <= 0 {
			returns[i] = timeseries.Absent()
			continue
		}
		returns[i] = math.Log(prices[i] / prices[i-1])
	}

	out := make([]float64, n)
	window := make([]float64, 0, v.cfg.Window)
	annualize := math.Sqrt(float64(v.cfg.TradingDays)) * 100

	for i := range out {
		out[i] = timeseries.Absent()
		if i < v.cfg.Window {
			continue
		}

		window = window[:0]
		full := true
		for j := i - v.cfg.Window + 1; j <= i; j++ {
			if timeseries.IsAbsent(returns[j]) {
				full = false
				break
			}
			window = append(window, returns[j])
		}
		if !full {
			continue
		}

		out[i] = stat.StdDev(window, nil) * annualize
	}

	return out
}

// trailingPercentile ranks each reading against the trailing
// PercentileWindow of present readings, including itself: the fraction
// of observations at or below the current value, scaled to 0-100.
func (v *Volatility) trailingPercentile(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = timeseries.Absent()
		cur := values[i]
		if timeseries.IsAbsent(cur) {
			continue
		}

		lo := i - v.cfg.PercentileWindow + 1
		if lo < 0 {
			lo = 0
		}

		count, atOrBelow := 0, 0
		for j := lo; j <= i; j++ {
			if timeseries.IsAbsent(values[j]) {
				continue
			}
			count++
			if values[j] <= cur {
				atOrBelow++
			}
		}

		if count < v.cfg.MinObservations {
			continue
		}
		out[i] = float64(atOrBelow) / float64(count) * 100
	}
	return out
}

// Regime classifies a volatility percentile. Pure function of the
// percentile; absent input reads as NORMAL history not yet established.
func (v *Volatility) Regime(percentile float64) string {
	switch {
	case timeseries.IsAbsent(percentile):
		return VolRegimeNormal
	case percentile >= v.cfg.ExtremeAt:
		return VolRegimeExtreme
	case percentile >= v.cfg.ElevatedAt:
		return VolRegimeElevated
	default:
		return VolRegimeNormal
	}
}

func countAbsent(values []float64) int {
	n := 0
	for _, v := range values {
		if timeseries.IsAbsent(v) {
			n++
		}
	}
	return n
}
