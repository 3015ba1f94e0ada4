// Package mof fetches daily JGB yields from the Japanese Ministry of
// Finance yield curve CSVs. The files are Shift-JIS encoded with a
// title row above the header and footer text below the data.
package mof

import (
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// datePattern matches valid data rows; footer text and blanks fail it.
var datePattern = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`)

// Client handles the MOF historical and current-month CSV downloads.
type Client struct {
	httpClient    *httputil.Client
	logger        *logger.Logger
	historicalURL string
	currentURL    string
}

// NewClient creates a MOF client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient:    httpClient,
		logger:        log.WithField("module", "mof"),
		historicalURL: "https://www.mof.go.jp/english/policy/jgbs/reference/interest_rate/historical/jgbcme_all.csv",
		currentURL:    "https://www.mof.go.jp/english/policy/jgbs/reference/interest_rate/jgbcme.csv",
	}
}

// Series fetches one tenor column (e.g. "10Y") from both files. The
// historical file runs to the end of the previous month; the current
// file covers this month and wins on overlapping dates.
func (c *Client) Series(ctx context.Context, name, tenor string, start time.Time) (*timeseries.Series, error) {
	hist, err := c.fetchCSV(ctx, c.historicalURL)
	if err != nil {
		return nil, fmt.Errorf("fetch MOF historical: %w", err)
	}
	cur, err := c.fetchCSV(ctx, c.currentURL)
	if err != nil {
		return nil, fmt.Errorf("fetch MOF current: %w", err)
	}

	points := make([]timeseries.Point, 0, len(hist)+len(cur))
	for _, rows := range [][]row{hist, cur} {
		for _, r := range rows {
			v, ok := r.values[tenor]
			if !ok || r.date.Before(start) {
				continue
			}
			points = append(points, timeseries.Point{Date: r.date, Value: v})
		}
	}

	// NewSeries dedups keep-last, so current-month rows override
	// historical ones on the same date.
	s := timeseries.NewSeries(name, points)
	if s.Len() == 0 {
		return nil, fmt.Errorf("MOF tenor %s: no rows parsed", tenor)
	}

	c.logger.WithFields(map[string]interface{}{
		"tenor": tenor,
		"name":  name,
		"rows":  s.Len(),
	}).Info("MOF series fetched")

	return s, nil
}

type row struct {
	date   time.Time
	values map[string]float64
}

// fetchCSV downloads one file, decodes Shift-JIS and parses the data
// rows. The first line is a title and is skipped; the second carries
// the tenor headers.
func (c *Client) fetchCSV(ctx context.Context, fileURL string) ([]row, error) {
	body, err := c.httpClient.GetBody(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("decode shift-jis: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(decoded)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("file too short: %d rows", len(records))
	}

	header := records[1]
	rows := make([]row, 0, len(records)-2)
	for _, rec := range records[2:] {
		if len(rec) == 0 || !datePattern.MatchString(strings.TrimSpace(rec[0])) {
			continue
		}
		d, err := time.Parse("2006/1/2", strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}

		values := make(map[string]float64, len(header)-1)
		for i := 1; i < len(header) && i < len(rec); i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				continue
			}
			values[strings.TrimSpace(header[i])] = v
		}
		rows = append(rows, row{date: timeseries.Date(d), values: values})
	}

	return rows, nil
}
