// Package fred fetches daily US Treasury yields from the FRED API.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

const dateLayout = "2006-01-02"

// Client handles communication with the FRED observations endpoint.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a FRED client. The API key is required by the
// provider for every request.
func NewClient(httpClient *httputil.Client, apiKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "fred"),
		baseURL:    "https://api.stlouisfed.org/fred/series/observations",
		apiKey:     apiKey,
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Series fetches one daily series from start onward. FRED encodes a
// missing observation as the literal "." which we skip, never zero.
// The partial-candle cutoff is applied downstream at alignment, so no
// end bound is sent.
func (c *Client) Series(ctx context.Context, name, seriesID string, start time.Time) (*timeseries.Series, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("FRED API key not configured")
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", start.Format(dateLayout))

	body, err := c.httpClient.GetBody(ctx, fmt.Sprintf("%s?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch FRED %s: %w", seriesID, err)
	}

	var parsed observationsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse FRED response for %s: %w", seriesID, err)
	}

	points := make([]timeseries.Point, 0, len(parsed.Observations))
	for _, obs := range parsed.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		d, err := time.Parse(dateLayout, obs.Date)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		points = append(points, timeseries.Point{Date: timeseries.Date(d), Value: v})
	}

	s := timeseries.NewSeries(name, points)
	c.logger.WithFields(map[string]interface{}{
		"series_id": seriesID,
		"name":      name,
		"rows":      s.Len(),
	}).Info("FRED series fetched")

	return s, nil
}
