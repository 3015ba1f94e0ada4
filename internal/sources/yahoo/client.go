// Package yahoo fetches daily FX closes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// Client handles communication with the Yahoo Finance chart endpoint.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	location   *time.Location
}

// NewClient creates a Yahoo Finance client. Close timestamps are
// stamped onto the calendar date in closeTZ, the New York close
// convention for FX.
func NewClient(httpClient *httputil.Client, closeTZ string, log *logger.Logger) (*Client, error) {
	loc, err := time.LoadLocation(closeTZ)
	if err != nil {
		return nil, fmt.Errorf("load close timezone: %w", err)
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "yahoo"),
		baseURL:    "https://query1.finance.yahoo.com/v8/finance/chart",
		location:   loc,
	}, nil
}

// chartResponse mirrors the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCloses fetches daily closing prices for one symbol over
// [start, end). Null closes in the payload are skipped, never zeroed.
func (c *Client) DailyCloses(ctx context.Context, name, symbol string, start, end time.Time) (*timeseries.Series, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse chart response for %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", symbol)
	}

	result := parsed.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]timeseries.Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		// Epoch seconds land on the session date in the close timezone.
		d := time.Unix(ts, 0).In(c.location)
		points = append(points, timeseries.Point{
			Date:  timeseries.Date(d),
			Value: *closes[i],
		})
	}

	s := timeseries.NewSeries(name, points)
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"name":   name,
		"rows":   s.Len(),
	}).Info("FX closes fetched")

	return s, nil
}
