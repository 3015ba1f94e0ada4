package timeseries

import (
	"fmt"
	"time"
)

// Panel is a table keyed by trading date with named numeric columns.
// Rows come from the primary FX calendar, strictly increasing and
// weekday-only. Engines add columns but never remove or reorder rows.
type Panel struct {
	dates []time.Time
	order []string
	cols  map[string][]float64
}

// NewPanel builds a Panel over the given calendar. Dates must be
// strictly increasing weekdays.
func NewPanel(dates []time.Time) (*Panel, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("panel calendar is empty")
	}

	normalized := make([]time.Time, len(dates))
	for i, d := range dates {
		d = Date(d)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return nil, fmt.Errorf("panel calendar contains weekend date %s", d.Format("2006-01-02"))
		}
		if i > 0 && !normalized[i-1].Before(d) {
			return nil, fmt.Errorf("panel calendar not strictly increasing at %s", d.Format("2006-01-02"))
		}
		normalized[i] = d
	}

	return &Panel{
		dates: normalized,
		cols:  make(map[string][]float64),
	}, nil
}

// Len returns the number of rows.
func (p *Panel) Len() int { return len(p.dates) }

// Dates returns the panel calendar. Callers must not mutate it.
func (p *Panel) Dates() []time.Time { return p.dates }

// DateAt returns the date of row i.
func (p *Panel) DateAt(i int) time.Time { return p.dates[i] }

// Columns returns column names in insertion order.
func (p *Panel) Columns() []string { return append([]string(nil), p.order...) }

// HasColumn reports whether the column exists.
func (p *Panel) HasColumn(name string) bool {
	_, ok := p.cols[name]
	return ok
}

// AddColumn attaches a column. The slice length must match the calendar
// and the name must be new; published column names are a contract, so a
// collision is a programming error, not a data condition.
func (p *Panel) AddColumn(name string, values []float64) error {
	if len(values) != len(p.dates) {
		return fmt.Errorf("column %s has %d values, panel has %d rows", name, len(values), len(p.dates))
	}
	if _, exists := p.cols[name]; exists {
		return fmt.Errorf("column %s already exists", name)
	}

	p.cols[name] = append([]float64(nil), values...)
	p.order = append(p.order, name)
	return nil
}

// AddAbsentColumn attaches a fully-absent column, used when a source is
// unavailable so downstream consumers still find the column.
func (p *Panel) AddAbsentColumn(name string) error {
	values := make([]float64, len(p.dates))
	for i := range values {
		values[i] = Absent()
	}
	return p.AddColumn(name, values)
}

// Column returns a copy of the named column.
func (p *Panel) Column(name string) ([]float64, bool) {
	col, ok := p.cols[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), col...), true
}

// Value returns the cell at (row i, column name); absent when the
// column does not exist.
func (p *Panel) Value(name string, i int) float64 {
	col, ok := p.cols[name]
	if !ok {
		return Absent()
	}
	return col[i]
}

// Series extracts a column as a Series, dropping absent cells.
func (p *Panel) Series(name string) (*Series, bool) {
	col, ok := p.cols[name]
	if !ok {
		return nil, false
	}

	points := make([]Point, 0, len(col))
	for i, v := range col {
		points = append(points, Point{Date: p.dates[i], Value: v})
	}
	return NewSeries(name, points), true
}

// Filter returns a new Panel containing only rows where keep returns
// true. Column order is preserved.
func (p *Panel) Filter(keep func(i int) bool) (*Panel, error) {
	var idx []int
	for i := range p.dates {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("filter removed every panel row")
	}

	dates := make([]time.Time, len(idx))
	for j, i := range idx {
		dates[j] = p.dates[i]
	}

	out, err := NewPanel(dates)
	if err != nil {
		return nil, err
	}
	for _, name := range p.order {
		col := p.cols[name]
		values := make([]float64, len(idx))
		for j, i := range idx {
			values[j] = col[i]
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AbsentCounts returns the column-wise count of absent cells.
func (p *Panel) AbsentCounts() map[string]int {
	counts := make(map[string]int, len(p.order))
	for _, name := range p.order {
		n := 0
		for _, v := range p.cols[name] {
			if IsAbsent(v) {
				n++
			}
		}
		counts[name] = n
	}
	return counts
}

// LastValidRow returns the index of the most recent row where every
// named column is present, or -1 when no such row exists.
func (p *Panel) LastValidRow(names ...string) int {
	for i := len(p.dates) - 1; i >= 0; i-- {
		ok := true
		for _, name := range names {
			if IsAbsent(p.Value(name, i)) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}
