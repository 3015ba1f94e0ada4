package mof

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/pkg/config"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// ASCII is a subset of Shift-JIS, so plain CSV bodies decode cleanly.
const historicalCSV = `Interest Rate (All),,,
Date,1Y,5Y,10Y
2024/2/28,0.045,0.32,0.705
2024/2/29,0.048,0.33,0.710
2024/3/1,0.050,0.34,0.715
(Note) This is footer text
`

const currentCSV = `Interest Rate,,,
Date,1Y,5Y,10Y
2024/3/1,0.051,0.35,0.720
2024/3/4,0.052,0.36,0.725
`

func testClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/historical.csv":
			w.Write([]byte(historicalCSV))
		case "/current.csv":
			w.Write([]byte(currentCSV))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	log := logger.NewWriter(io.Discard)
	httpCfg := &config.Config{HTTPTimeout: 5 * time.Second}
	c := NewClient(httputil.New(httpCfg, log).DisableRetry(), log)
	c.historicalURL = srv.URL + "/historical.csv"
	c.currentURL = srv.URL + "/current.csv"
	return c
}

func TestSeries(t *testing.T) {
	c := testClient(t)

	s, err := c.Series(context.Background(), "JP_10Y", "10Y",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Equal(t, 4, s.Len(), "footer rows are dropped, overlap deduped")

	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), s.At(0).Date)
	assert.Equal(t, 0.705, s.At(0).Value)

	// March 1 appears in both files; the current file wins.
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.At(2).Date)
	assert.Equal(t, 0.720, s.At(2).Value)

	assert.Equal(t, 0.725, s.At(3).Value)
}

func TestSeriesStartBound(t *testing.T) {
	c := testClient(t)

	s, err := c.Series(context.Background(), "JP_10Y", "10Y",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.At(0).Date)
}

func TestSeriesUnknownTenor(t *testing.T) {
	c := testClient(t)

	_, err := c.Series(context.Background(), "JP_30Y", "30Y",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err, "a tenor missing from the header yields no rows")
}
