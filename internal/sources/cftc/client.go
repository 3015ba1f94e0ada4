// Package cftc fetches the weekly financial futures disaggregated
// report from the CFTC yearly history archives.
package cftc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/fxregime/internal/positioning"
	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// Report file column names. The file layout shifts between years, so
// every column is located by header name, never by position.
const (
	colMarket       = "Market_and_Exchange_Names"
	colReportDate   = "Report_Date_as_YYYY-MM-DD"
	colOpenInterest = "Open_Interest_All"
	colLevLong      = "Lev_Money_Positions_Long_All"
	colLevShort     = "Lev_Money_Positions_Short_All"
	colAssetLong    = "Asset_Mgr_Positions_Long_All"
	colAssetShort   = "Asset_Mgr_Positions_Short_All"
	colTotalLong    = "Tot_Rept_Positions_Long_All"
	colTotalShort   = "Tot_Rept_Positions_Short_All"
)

// Client downloads and parses the yearly report archives.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	historyURL string
}

// NewClient creates a CFTC client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "cftc"),
		historyURL: "https://www.cftc.gov/files/dea/history",
	}
}

// FetchYears pulls the given yearly archives and returns the parsed
// rows per instrument ticker. A failed year is skipped with a warning;
// only zero usable years is an error.
func (c *Client) FetchYears(ctx context.Context, markets map[string]string, years []int) (map[string][]positioning.RawReport, error) {
	out := make(map[string][]positioning.RawReport)

	fetched := 0
	for _, year := range years {
		rows, err := c.fetchYear(ctx, markets, year)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"year":  year,
				"error": err.Error(),
			}).Warn("Yearly archive failed, skipping")
			continue
		}
		fetched++
		for ticker, reports := range rows {
			out[ticker] = append(out[ticker], reports...)
		}
	}

	if fetched == 0 {
		return nil, fmt.Errorf("no yearly archives retrieved (%d requested)", len(years))
	}

	c.logger.WithFields(map[string]interface{}{
		"years":   fetched,
		"markets": len(out),
	}).Info("Positioning history fetched")

	return out, nil
}

// fetchYear downloads one fut_fin_txt_YYYY.zip and extracts the rows
// for the configured markets.
func (c *Client) fetchYear(ctx context.Context, markets map[string]string, year int) (map[string][]positioning.RawReport, error) {
	url := fmt.Sprintf("%s/fut_fin_txt_%d.zip", c.historyURL, year)
	body, err := c.httpClient.GetBody(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download %d archive: %w", year, err)
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open %d archive: %w", year, err)
	}
	if len(archive.File) == 0 {
		return nil, fmt.Errorf("%d archive is empty", year)
	}

	f, err := archive.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open report in %d archive: %w", year, err)
	}
	defer f.Close()

	return c.parseReport(f, markets)
}

// parseReport reads the report CSV and returns raw rows keyed by
// ticker. Numbers may carry thousands separators; an unparsable cell
// becomes absent, never zero.
func (c *Client) parseReport(r io.Reader, markets map[string]string) (map[string][]positioning.RawReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read report header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colMarket, colReportDate} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("report missing column %s", required)
		}
	}

	out := make(map[string][]positioning.RawReport)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read report row: %w", err)
		}

		market := strings.TrimSpace(field(rec, idx, colMarket))
		ticker, wanted := markets[market]
		if !wanted {
			continue
		}

		d, err := time.Parse("2006-01-02", strings.TrimSpace(field(rec, idx, colReportDate)))
		if err != nil {
			continue
		}

		out[ticker] = append(out[ticker], positioning.RawReport{
			Date:          timeseries.Date(d),
			OpenInterest:  number(field(rec, idx, colOpenInterest)),
			LevMoneyLong:  number(field(rec, idx, colLevLong)),
			LevMoneyShort: number(field(rec, idx, colLevShort)),
			AssetMgrLong:  number(field(rec, idx, colAssetLong)),
			AssetMgrShort: number(field(rec, idx, colAssetShort)),
			TotalLong:     number(field(rec, idx, colTotalLong)),
			TotalShort:    number(field(rec, idx, colTotalShort)),
		})
	}

	return out, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// number parses a report numeric cell, stripping thousands separators.
func number(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "." {
		return timeseries.Absent()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return timeseries.Absent()
	}
	return v
}
