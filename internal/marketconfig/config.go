// Package marketconfig defines the immutable market configuration passed
// into each engine at construction: which instruments exist, where their
// series come from, which spreads and windows to derive, and which legacy
// column names alias which canonical ones. Nothing in the pipeline reads
// market definitions from anywhere else.
package marketconfig

import "time"

// Config is the full market definition.
type Config struct {
	Meta        Meta          `yaml:"meta" json:"meta"`
	Calendar    Calendar      `yaml:"calendar" json:"calendar"`
	FX          []FXTicker    `yaml:"fx" json:"fx"`
	Yields      []YieldSeries `yaml:"yields" json:"yields"`
	Spreads     []SpreadPair  `yaml:"spreads" json:"spreads"`
	Curve       Curve         `yaml:"curve" json:"curve"`
	Volatility  Volatility    `yaml:"volatility" json:"volatility"`
	Changes     Changes       `yaml:"changes" json:"changes"`
	Positioning Positioning   `yaml:"positioning" json:"positioning"`
	Brief       Brief         `yaml:"brief" json:"brief"`
	Charts      Charts        `yaml:"charts" json:"charts"`

	// Aliases maps legacy published column names to canonical ones.
	// Consumers written against the old single-category schema read the
	// legacy names; both are written on every save.
	Aliases map[string]string `yaml:"aliases" json:"aliases"`
}

// Meta identifies the configuration.
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Calendar controls the trading calendar and the partial-candle cutoff.
type Calendar struct {
	// Primary names the FX column whose dates define the calendar.
	Primary string `yaml:"primary" json:"primary"`

	// Defining lists the price columns a row must carry to survive
	// assembly; rows missing any of them are dropped.
	Defining []string `yaml:"defining" json:"defining"`

	// Timezone and CloseHour fix the canonical close convention.
	// FX closes are stamped on the New York calendar date; a run that
	// happens before CloseHour discards today's partial candle.
	Timezone  string `yaml:"timezone" json:"timezone"`
	CloseHour int    `yaml:"close_hour" json:"close_hour"`

	// StartDate bounds the history window (YYYY-MM-DD).
	StartDate string `yaml:"start_date" json:"start_date"`
}

// FXTicker describes one FX price column.
type FXTicker struct {
	Name   string `yaml:"name" json:"name"`     // published column name, e.g. EURUSD
	Symbol string `yaml:"symbol" json:"symbol"` // provider symbol, e.g. EURUSD=X

	// MaxCarry bounds forward fill in trading days. The primary pair
	// and most crosses take 0; DXY trades on ICE with different
	// holidays and carries up to 5.
	MaxCarry int `yaml:"max_carry" json:"max_carry"`
}

// YieldSeries describes one government bond yield column.
type YieldSeries struct {
	Name   string `yaml:"name" json:"name"`     // published column name, e.g. US_2Y
	Source string `yaml:"source" json:"source"` // fred | ecb | mof
	Key    string `yaml:"key" json:"key"`       // provider series id / curve key / CSV column

	// MaxCarry bounds forward fill in trading days; past it the source
	// is considered stale, not merely delayed by a holiday.
	MaxCarry int `yaml:"max_carry" json:"max_carry"`
}

// SpreadPair configures one rate differential: Label = LegA - LegB.
type SpreadPair struct {
	LegA  string `yaml:"leg_a" json:"leg_a"`
	LegB  string `yaml:"leg_b" json:"leg_b"`
	Label string `yaml:"label" json:"label"`
}

// Curve configures the domestic yield-curve slope column
// (Long - Short; slope < 0 reads as inverted).
type Curve struct {
	Long  string `yaml:"long" json:"long"`
	Short string `yaml:"short" json:"short"`
	Label string `yaml:"label" json:"label"`
}

// Volatility configures the realized-volatility engine. The percentile
// window is deliberately a fixed trailing window while positioning ranks
// against full history: volatility regimes shift faster than positioning
// dynamics, so the two windows are configured independently.
type Volatility struct {
	Pairs            []string `yaml:"pairs" json:"pairs"`
	Window           int      `yaml:"window" json:"window"`                       // return observations, 30
	TradingDays      int      `yaml:"trading_days" json:"trading_days"`           // annualization base, 252
	PercentileWindow int      `yaml:"percentile_window" json:"percentile_window"` // trailing days, 756
	MinObservations  int      `yaml:"min_observations" json:"min_observations"`   // 126
	ExtremeAt        float64  `yaml:"extreme_at" json:"extreme_at"`               // percentile >= -> EXTREME
	ElevatedAt       float64  `yaml:"elevated_at" json:"elevated_at"`             // percentile >= -> ELEVATED
}

// ChangeWindow is one trailing lookback, in trading days.
type ChangeWindow struct {
	Label string `yaml:"label" json:"label"`
	Days  int    `yaml:"days" json:"days"`
}

// Changes configures the change engine. Whether a column takes the
// percentage rule or the point rule is configuration, never inferred:
// price columns come from the fx list, point columns from yields,
// spreads and the curve.
type Changes struct {
	Windows []ChangeWindow `yaml:"windows" json:"windows"`
}

// Market maps a futures market name, exactly as it appears in the
// weekly report file, to a published instrument ticker.
type Market struct {
	Name   string `yaml:"name" json:"name"`
	Ticker string `yaml:"ticker" json:"ticker"`
}

// Positioning configures the futures positioning engine.
type Positioning struct {
	Markets []Market `yaml:"markets" json:"markets"`

	// HistoryYears bounds how many yearly archives are fetched. The
	// percentile itself ranks against all retained history.
	HistoryYears int `yaml:"history_years" json:"history_years"`

	CrowdedLongAt  float64 `yaml:"crowded_long_at" json:"crowded_long_at"`   // percentile >= -> CROWDED LONG
	CrowdedShortAt float64 `yaml:"crowded_short_at" json:"crowded_short_at"` // percentile <= -> CROWDED SHORT
}

// RegimeRead ties one FX pair to the spread and positioning market that
// drive its one-line regime interpretation in the morning brief.
type RegimeRead struct {
	Pair   string `yaml:"pair" json:"pair"`
	Spread string `yaml:"spread" json:"spread"`
	Market string `yaml:"market" json:"market"` // positioning ticker

	// ForeignLeg says where the non-USD currency sits in the pair:
	// "base" (EURUSD) or "quote" (USDJPY). Spread compression always
	// favors the foreign currency; this field maps that onto pair
	// direction.
	ForeignLeg string `yaml:"foreign_leg" json:"foreign_leg"`
}

// Brief configures the morning brief.
type Brief struct {
	Reads []RegimeRead `yaml:"reads" json:"reads"`
}

// ChartPair configures one pair dashboard: price panel, dual spread
// panel and positioning percentile panel.
type ChartPair struct {
	Pair            string `yaml:"pair" json:"pair"`
	SpreadPrimary   string `yaml:"spread_primary" json:"spread_primary"`
	SpreadSecondary string `yaml:"spread_secondary" json:"spread_secondary"`
	Market          string `yaml:"market" json:"market"` // positioning ticker
	Filename        string `yaml:"filename" json:"filename"`
}

// Charts configures the dashboard renderer.
type Charts struct {
	LookbackMonths int         `yaml:"lookback_months" json:"lookback_months"`
	Pairs          []ChartPair `yaml:"pairs" json:"pairs"`
}

// Start parses the configured history start date.
func (c *Config) Start() time.Time {
	t, _ := time.Parse("2006-01-02", c.Calendar.StartDate)
	return t
}

// FXNames returns the published FX column names in order.
func (c *Config) FXNames() []string {
	names := make([]string, len(c.FX))
	for i, fx := range c.FX {
		names[i] = fx.Name
	}
	return names
}

// YieldNames returns the published yield column names in order.
func (c *Config) YieldNames() []string {
	names := make([]string, len(c.Yields))
	for i, y := range c.Yields {
		names[i] = y.Name
	}
	return names
}

// PointColumns returns every column that moves in percentage points:
// yields, spreads and the curve slope.
func (c *Config) PointColumns() []string {
	names := c.YieldNames()
	for _, sp := range c.Spreads {
		names = append(names, sp.Label)
	}
	if c.Curve.Label != "" {
		names = append(names, c.Curve.Label)
	}
	return names
}
