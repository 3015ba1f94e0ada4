// Package align maps heterogeneous-frequency series onto the daily FX
// trading calendar. The primary FX series defines the calendar; every
// other series lands on it through an AlignmentPolicy.
package align

import (
	"fmt"
	"time"

	"github.com/wonny/fxregime/internal/report"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

// Policy controls how a lower-frequency or gap-prone series is carried
// onto the calendar: forward-fill the last known value for at most
// MaxCarry trading days, or carry it until the next observation.
type Policy struct {
	// MaxCarry is the forward-fill bound in trading days past the last
	// real observation. 0 means values land only on observation rows.
	MaxCarry int

	// Unbounded carries a value until the next observation arrives,
	// regardless of the gap. Valid for series whose underlying quantity
	// is constant between publications (weekly positioning reports),
	// not for series that merely stopped publishing.
	Unbounded bool
}

// BoundedFill is the policy for daily series with holiday gaps.
func BoundedFill(maxCarry int) Policy { return Policy{MaxCarry: maxCarry} }

// CarryUntilNext is the policy for report-style series.
func CarryUntilNext() Policy { return Policy{Unbounded: true} }

// Aligner builds the trading calendar and aligns series onto it.
type Aligner struct {
	location  *time.Location
	closeHour int
	logger    *logger.Logger
}

// New creates an Aligner for the given close convention.
func New(timezone string, closeHour int, log *logger.Logger) (*Aligner, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load close-convention timezone: %w", err)
	}
	return &Aligner{
		location:  loc,
		closeHour: closeHour,
		logger:    log.WithField("module", "align"),
	}, nil
}

// CutoffDate returns the first calendar date whose candle cannot yet be
// complete at asOf. Observations on or after the cutoff are discarded so
// a partial candle never blends into history.
func (a *Aligner) CutoffDate(asOf time.Time) time.Time {
	local := asOf.In(a.location)
	today := timeseries.Date(local)
	if local.Hour() >= a.closeHour {
		// Today's close has printed; only future dates are partial.
		return today.AddDate(0, 0, 1)
	}
	return today
}

// Calendar derives the trading calendar from the primary FX series:
// completed sessions only, weekdays only. An empty result is fatal;
// without a calendar no panel can exist.
func (a *Aligner) Calendar(primary *timeseries.Series, asOf time.Time) ([]time.Time, error) {
	if primary == nil || primary.Len() == 0 {
		return nil, fmt.Errorf("primary FX series %s is empty", nameOf(primary))
	}

	cutoff := a.CutoffDate(asOf)
	trimmed := primary.Before(cutoff)

	dates := make([]time.Time, 0, trimmed.Len())
	dropped := 0
	for i := 0; i < trimmed.Len(); i++ {
		d := trimmed.At(i).Date
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			dropped++
			continue
		}
		dates = append(dates, d)
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("primary FX series %s has no completed sessions before %s",
			primary.Name(), cutoff.Format("2006-01-02"))
	}

	if dropped > 0 {
		a.logger.WithFields(map[string]interface{}{
			"series":  primary.Name(),
			"dropped": dropped,
		}).Warn("Dropped weekend rows from primary calendar")
	}

	return dates, nil
}

// Column aligns one series onto the calendar under the policy. The
// returned slice is calendar-sized; cells beyond the policy's carry
// bound are absent. A carried value's anchor row is the first calendar
// row at or after its observation date, so the gap between a carried
// cell and the last real observation never exceeds MaxCarry sessions.
func (a *Aligner) Column(dates []time.Time, s *timeseries.Series, pol Policy) []float64 {
	out := make([]float64, len(dates))
	for i := range out {
		out[i] = timeseries.Absent()
	}
	if s == nil || s.Len() == 0 {
		return out
	}

	j := 0
	anchor := -1
	value := timeseries.Absent()

	for i, d := range dates {
		for j < s.Len() && !s.At(j).Date.After(d) {
			value = s.At(j).Value
			anchor = i
			j++
		}
		if anchor < 0 {
			continue
		}
		if pol.Unbounded || i-anchor <= pol.MaxCarry {
			out[i] = value
		}
	}

	return out
}

// AddSeries aligns s onto the panel as a new column, recording the
// outcome in the summary. A nil or empty series still produces the
// column, fully absent and with a warning, so missing one source never
// blocks delivery of the rest.
func (a *Aligner) AddSeries(p *timeseries.Panel, name string, s *timeseries.Series, pol Policy, sum *report.Summary) error {
	if s == nil || s.Len() == 0 {
		if err := p.AddAbsentColumn(name); err != nil {
			return err
		}
		sum.AddColumn(name, p.Len())
		sum.Warn(fmt.Sprintf("source for %s unavailable, column left absent", name))
		a.logger.WithField("column", name).Warn("Source unavailable, column filled with absent values")
		return nil
	}

	col := a.Column(p.Dates(), s.Before(a.maxDate(p)), pol)
	if err := p.AddColumn(name, col); err != nil {
		return err
	}

	absent := 0
	for _, v := range col {
		if timeseries.IsAbsent(v) {
			absent++
		}
	}
	sum.AddColumn(name, absent)
	return nil
}

// maxDate returns the exclusive upper bound of the panel calendar.
func (a *Aligner) maxDate(p *timeseries.Panel) time.Time {
	return p.DateAt(p.Len() - 1).AddDate(0, 0, 1)
}

func nameOf(s *timeseries.Series) string {
	if s == nil {
		return "<nil>"
	}
	return s.Name()
}
