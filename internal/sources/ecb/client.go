// Package ecb fetches eurozone government bond yields from the ECB
// data API (SDMX-JSON yield curve series).
package ecb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// Client handles communication with the ECB data API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates an ECB data API client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "ecb"),
		baseURL:    "https://data-api.ecb.europa.eu/service/data",
	}
}

// sdmxResponse mirrors the subset of the SDMX-JSON payload we read:
// one series of observations keyed by index into the date dimension.
type sdmxResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]json.Number `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

// Series fetches one yield curve series from startPeriod onward. The
// key is the full SDMX series path, e.g.
// YC/B.U2.EUR.4F.G_N_A.SV_C_YM.SR_10Y.
func (c *Client) Series(ctx context.Context, name, key string, start time.Time) (*timeseries.Series, error) {
	params := url.Values{}
	params.Set("startPeriod", start.Format("2006-01-02"))
	params.Set("detail", "dataonly")

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, key, params.Encode())
	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ECB %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ECB %s: unexpected status code: %d", key, resp.StatusCode)
	}

	var parsed sdmxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse ECB response for %s: %w", key, err)
	}

	if len(parsed.DataSets) == 0 || len(parsed.Structure.Dimensions.Observation) == 0 {
		return nil, fmt.Errorf("empty ECB result for %s", key)
	}

	dates := parsed.Structure.Dimensions.Observation[0].Values
	points := make([]timeseries.Point, 0, len(dates))

	// The key always selects exactly one series; its observation map is
	// indexed into the date dimension as stringified integers.
	for _, series := range parsed.DataSets[0].Series {
		for idxStr, values := range series.Observations {
			idx, err := strconv.Atoi(idxStr)
			if err != nil || idx < 0 || idx >= len(dates) || len(values) == 0 {
				continue
			}
			v, err := values[0].Float64()
			if err != nil {
				continue
			}
			d, err := time.Parse("2006-01-02", dates[idx].ID)
			if err != nil {
				continue
			}
			points = append(points, timeseries.Point{Date: timeseries.Date(d), Value: v})
		}
		break
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	s := timeseries.NewSeries(name, points)
	c.logger.WithFields(map[string]interface{}{
		"key":  key,
		"name": name,
		"rows": s.Len(),
	}).Info("ECB series fetched")

	return s, nil
}
