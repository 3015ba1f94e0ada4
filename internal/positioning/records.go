// Package positioning turns weekly futures-report rows into per-category
// net positioning with historical percentile ranks and crowding regimes.
package positioning

import (
	"time"

	"github.com/wonny/fxregime/internal/timeseries"
)

// Category is a trader category from the disaggregated financial
// futures report.
type Category string

const (
	// CategoryLevMoney is leveraged money: hedge funds and CTAs. They
	// drive carry trades and react to rate differentials, which makes
	// them the cleanest regime signal and the default category.
	CategoryLevMoney Category = "levmoney"

	// CategoryAssetMgr is asset managers, who move slowly and for
	// different reasons (equity hedging and the like).
	CategoryAssetMgr Category = "assetmgr"

	// CategoryNonCommercial is a proxy: total reported positions stand
	// in for a true noncommercial figure, which the disaggregated file
	// does not carry directly. A known approximation, kept as such.
	CategoryNonCommercial Category = "noncom"
)

// Categories lists the computed categories in publication order.
var Categories = []Category{CategoryLevMoney, CategoryAssetMgr, CategoryNonCommercial}

// RawReport is one weekly report row for one instrument. Fields that
// the file leaves empty are absent, never zero.
type RawReport struct {
	Date         time.Time
	OpenInterest float64

	LevMoneyLong  float64
	LevMoneyShort float64

	AssetMgrLong  float64
	AssetMgrShort float64

	// Total reported positions, used as the NonCommercial proxy.
	TotalLong  float64
	TotalShort float64
}

// Legs returns the long/short pair for a category.
func (r RawReport) Legs(cat Category) (long, short float64) {
	switch cat {
	case CategoryLevMoney:
		return r.LevMoneyLong, r.LevMoneyShort
	case CategoryAssetMgr:
		return r.AssetMgrLong, r.AssetMgrShort
	case CategoryNonCommercial:
		return r.TotalLong, r.TotalShort
	default:
		return timeseries.Absent(), timeseries.Absent()
	}
}

// Record is the derived positioning state for one category on one
// report date.
type Record struct {
	Date         time.Time
	Long         float64
	Short        float64
	Net          float64 // long - short, contracts
	NetPctOI     float64 // net / open interest * 100; absent when OI is zero/absent
	Percentile   float64 // tie-averaged rank of Net among all retained history, 0-100
	OpenInterest float64
}

// Stream is the full per-category record sequence for one instrument,
// ordered by report date.
type Stream struct {
	Ticker   string
	Category Category
	Records  []Record
}

// Last returns the most recent record.
func (s Stream) Last() (Record, bool) {
	if len(s.Records) == 0 {
		return Record{}, false
	}
	return s.Records[len(s.Records)-1], true
}
