// Package timeseries holds the two core data shapes of the pipeline:
// Series, an ordered (date, value) sequence produced by source adapters,
// and Panel, the date-keyed table every engine reads and extends.
//
// Numeric cells use NaN to represent an absent observation. Absence is
// never coerced to zero anywhere in the pipeline.
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Absent returns the sentinel value for a missing observation.
func Absent() float64 { return math.NaN() }

// IsAbsent reports whether v marks a missing observation.
func IsAbsent(v float64) bool { return math.IsNaN(v) }

// Date normalizes t to a calendar date (midnight UTC). All series and
// panel keys are calendar dates, never instants.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Point is a single dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is an immutable ordered sequence of dated observations.
// Dates are strictly increasing with one value per date.
type Series struct {
	name   string
	points []Point
}

// NewSeries builds a Series from raw points. Points are normalized to
// calendar dates and sorted; absent values are dropped; when a date
// repeats, the later point wins (providers republish corrections).
func NewSeries(name string, points []Point) *Series {
	cleaned := make([]Point, 0, len(points))
	for _, pt := range points {
		if IsAbsent(pt.Value) {
			continue
		}
		cleaned = append(cleaned, Point{Date: Date(pt.Date), Value: pt.Value})
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Date.Before(cleaned[j].Date)
	})

	// Deduplicate, keeping the last point for each date.
	deduped := cleaned[:0]
	for _, pt := range cleaned {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(pt.Date) {
			deduped[n-1] = pt
			continue
		}
		deduped = append(deduped, pt)
	}

	return &Series{name: name, points: append([]Point(nil), deduped...)}
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.points) }

// At returns the i-th observation.
func (s *Series) At(i int) Point { return s.points[i] }

// Last returns the most recent observation.
func (s *Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Before returns a copy restricted to observations strictly before cutoff.
func (s *Series) Before(cutoff time.Time) *Series {
	cutoff = Date(cutoff)
	i := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(cutoff)
	})
	return &Series{name: s.name, points: append([]Point(nil), s.points[:i]...)}
}

// From returns a copy restricted to observations on or after start.
func (s *Series) From(start time.Time) *Series {
	start = Date(start)
	i := sort.Search(len(s.points), func(i int) bool {
		return !s.points[i].Date.Before(start)
	})
	return &Series{name: s.name, points: append([]Point(nil), s.points[i:]...)}
}

// String implements fmt.Stringer for log output.
func (s *Series) String() string {
	if len(s.points) == 0 {
		return fmt.Sprintf("%s: empty", s.name)
	}
	return fmt.Sprintf("%s: %d obs, %s to %s",
		s.name, len(s.points),
		s.points[0].Date.Format("2006-01-02"),
		s.points[len(s.points)-1].Date.Format("2006-01-02"))
}
