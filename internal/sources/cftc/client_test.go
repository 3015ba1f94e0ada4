package cftc

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

func testClient() *Client {
	return &Client{logger: logger.NewWriter(io.Discard)}
}

const reportCSV = `Market_and_Exchange_Names,Report_Date_as_YYYY-MM-DD,Open_Interest_All,Lev_Money_Positions_Long_All,Lev_Money_Positions_Short_All,Asset_Mgr_Positions_Long_All,Asset_Mgr_Positions_Short_All,Tot_Rept_Positions_Long_All,Tot_Rept_Positions_Short_All
EURO FX - CHICAGO MERCANTILE EXCHANGE,2024-03-12,"652,345","45,120","97,480","310,200","55,100","580,000","540,200"
EURO FX - CHICAGO MERCANTILE EXCHANGE,2024-03-05,"648,010","40,330","95,210",,"54,000","575,100","538,900"
JAPANESE YEN - CHICAGO MERCANTILE EXCHANGE,2024-03-12,"240,100","20,000","110,000","30,000","12,000","200,000","190,000"
WHEAT - CHICAGO BOARD OF TRADE,2024-03-12,"100,000","1,000","2,000","3,000","4,000","5,000","6,000"
EURO FX - CHICAGO MERCANTILE EXCHANGE,not-a-date,"1","1","1","1","1","1","1"
`

func TestParseReport(t *testing.T) {
	markets := map[string]string{
		"EURO FX - CHICAGO MERCANTILE EXCHANGE":      "EUR",
		"JAPANESE YEN - CHICAGO MERCANTILE EXCHANGE": "JPY",
	}

	rows, err := testClient().parseReport(strings.NewReader(reportCSV), markets)
	require.NoError(t, err)

	require.Len(t, rows["EUR"], 2, "the unparsable date row is skipped")
	require.Len(t, rows["JPY"], 1)
	assert.NotContains(t, rows, "WHEAT", "unconfigured markets are ignored")

	eur := rows["EUR"][0]
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), eur.Date)
	assert.Equal(t, 652345.0, eur.OpenInterest)
	assert.Equal(t, 45120.0, eur.LevMoneyLong)
	assert.Equal(t, 97480.0, eur.LevMoneyShort)
	assert.Equal(t, 310200.0, eur.AssetMgrLong)
	assert.Equal(t, 580000.0, eur.TotalLong)

	// The second EUR row has an empty asset manager long cell.
	assert.True(t, timeseries.IsAbsent(rows["EUR"][1].AssetMgrLong),
		"empty cells parse as absent, never zero")
}

func TestParseReportMissingRequiredColumn(t *testing.T) {
	csv := "Some_Column,Another\nx,y\n"
	_, err := testClient().parseReport(strings.NewReader(csv), map[string]string{"x": "X"})
	assert.Error(t, err)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"652,345", 652345},
		{" 123 ", 123},
		{"-4,500", -4500},
		{"0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, number(tt.in), "number(%q)", tt.in)
	}

	for _, in := range []string{"", ".", "abc", "  "} {
		assert.True(t, timeseries.IsAbsent(number(in)), "number(%q) should be absent", in)
	}
}
