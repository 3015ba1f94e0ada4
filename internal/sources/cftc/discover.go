package cftc

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var archivePattern = regexp.MustCompile(`fut_fin_txt_(\d{4})\.zip`)

// DiscoverYears scrapes the CFTC history index page for the years that
// actually have a financial futures archive. A scrape failure falls
// back to the computed range, so discovery only ever widens coverage.
func (c *Client) DiscoverYears(ctx context.Context, asOf time.Time, historyYears int) []int {
	fallback := make([]int, 0, historyYears+1)
	for y := asOf.Year() - historyYears; y <= asOf.Year(); y++ {
		fallback = append(fallback, y)
	}

	resp, err := c.httpClient.Get(ctx, "https://www.cftc.gov/MarketReports/CommitmentsofTraders/HistoricalCompressed/index.htm")
	if err != nil {
		c.logger.WithError(err).Warn("Archive index scrape failed, using computed year range")
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		c.logger.WithField("status_code", resp.StatusCode).Warn("Archive index scrape failed, using computed year range")
		return fallback
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logger.WithError(err).Warn("Archive index parse failed, using computed year range")
		return fallback
	}

	seen := make(map[int]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := archivePattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		if year >= asOf.Year()-historyYears && year <= asOf.Year() {
			seen[year] = true
		}
	})

	if len(seen) == 0 {
		return fallback
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)

	c.logger.WithField("years", yearsLabel(years)).Info("Archive years discovered")
	return years
}

func yearsLabel(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d", y)
	}
	return strings.Join(parts, ",")
}
