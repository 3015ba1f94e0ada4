package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// The published files are plain CSV with a date column first and one
// column per panel column. Absent cells serialize as empty strings.
// Consumers read these files by column-name contract.

const dateLayout = "2006-01-02"

// WriteCSV serializes the panel.
func (p *Panel) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"date"}, p.order...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i, d := range p.dates {
		row[0] = d.Format(dateLayout)
		for j, name := range p.order {
			v := p.cols[name][i]
			if IsAbsent(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", row[0], err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a panel previously written by WriteCSV.
func ReadCSV(r io.Reader) (*Panel, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 || header[0] != "date" {
		return nil, fmt.Errorf("first column must be date, got %q", header)
	}

	names := header[1:]
	var dates []time.Time
	values := make([][]float64, len(names))

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, want %d", len(dates)+1, len(record), len(header))
		}

		d, err := time.Parse(dateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", record[0], err)
		}
		dates = append(dates, d)

		for j, field := range record[1:] {
			v := Absent()
			if field != "" {
				v, err = strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("parse %s at %s: %w", names[j], record[0], err)
				}
			}
			values[j] = append(values[j], v)
		}
	}

	panel, err := NewPanel(dates)
	if err != nil {
		return nil, err
	}
	for j, name := range names {
		if err := panel.AddColumn(name, values[j]); err != nil {
			return nil, err
		}
	}
	return panel, nil
}
