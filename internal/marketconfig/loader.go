package marketconfig

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the market YAML. KnownFields(true) makes a typo or an
// unused field fail immediately instead of silently configuring nothing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode market config: %w", err)
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate market config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills policy constants that are near-universal so a
// minimal YAML stays minimal.
func (c *Config) applyDefaults() {
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "America/New_York"
	}
	if c.Calendar.CloseHour == 0 {
		c.Calendar.CloseHour = 17
	}
	if c.Volatility.Window == 0 {
		c.Volatility.Window = 30
	}
	if c.Volatility.TradingDays == 0 {
		c.Volatility.TradingDays = 252
	}
	if c.Volatility.PercentileWindow == 0 {
		c.Volatility.PercentileWindow = 756
	}
	if c.Volatility.MinObservations == 0 {
		c.Volatility.MinObservations = 126
	}
	if c.Volatility.ExtremeAt == 0 {
		c.Volatility.ExtremeAt = 90
	}
	if c.Volatility.ElevatedAt == 0 {
		c.Volatility.ElevatedAt = 75
	}
	if c.Positioning.HistoryYears == 0 {
		c.Positioning.HistoryYears = 3
	}
	if c.Positioning.CrowdedLongAt == 0 {
		c.Positioning.CrowdedLongAt = 80
	}
	if c.Positioning.CrowdedShortAt == 0 {
		c.Positioning.CrowdedShortAt = 20
	}
	if len(c.Changes.Windows) == 0 {
		c.Changes.Windows = []ChangeWindow{
			{Label: "1D", Days: 1},
			{Label: "1W", Days: 5},
			{Label: "1M", Days: 21},
			{Label: "3M", Days: 63},
			{Label: "12M", Days: 252},
		}
	}
	if len(c.Calendar.Defining) == 0 && c.Calendar.Primary != "" {
		c.Calendar.Defining = []string{c.Calendar.Primary}
	}
	if c.Charts.LookbackMonths == 0 {
		c.Charts.LookbackMonths = 12
	}
}

// Validate checks internal consistency of the configuration.
func Validate(c *Config) error {
	if len(c.FX) == 0 {
		return fmt.Errorf("at least one fx ticker is required")
	}

	fxNames := map[string]bool{}
	for _, fx := range c.FX {
		if fx.Name == "" || fx.Symbol == "" {
			return fmt.Errorf("fx ticker needs name and symbol, got %+v", fx)
		}
		if fxNames[fx.Name] {
			return fmt.Errorf("duplicate fx name %s", fx.Name)
		}
		fxNames[fx.Name] = true
	}

	if c.Calendar.Primary == "" {
		return fmt.Errorf("calendar.primary is required")
	}
	if !fxNames[c.Calendar.Primary] {
		return fmt.Errorf("calendar.primary %s is not a configured fx ticker", c.Calendar.Primary)
	}
	for _, name := range c.Calendar.Defining {
		if !fxNames[name] {
			return fmt.Errorf("defining column %s is not a configured fx ticker", name)
		}
	}
	if _, err := time.Parse("2006-01-02", c.Calendar.StartDate); err != nil {
		return fmt.Errorf("calendar.start_date: %w", err)
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	if c.Calendar.CloseHour < 0 || c.Calendar.CloseHour > 23 {
		return fmt.Errorf("calendar.close_hour %d out of range", c.Calendar.CloseHour)
	}

	yieldNames := map[string]bool{}
	for _, y := range c.Yields {
		if y.Name == "" || y.Key == "" {
			return fmt.Errorf("yield series needs name and key, got %+v", y)
		}
		switch y.Source {
		case "fred", "ecb", "mof":
		default:
			return fmt.Errorf("yield %s has unknown source %q", y.Name, y.Source)
		}
		if y.MaxCarry <= 0 {
			return fmt.Errorf("yield %s needs a positive max_carry", y.Name)
		}
		if yieldNames[y.Name] {
			return fmt.Errorf("duplicate yield name %s", y.Name)
		}
		yieldNames[y.Name] = true
	}

	for _, sp := range c.Spreads {
		if sp.Label == "" {
			return fmt.Errorf("spread (%s,%s) needs a label", sp.LegA, sp.LegB)
		}
		if !yieldNames[sp.LegA] || !yieldNames[sp.LegB] {
			return fmt.Errorf("spread %s references unknown legs (%s,%s)", sp.Label, sp.LegA, sp.LegB)
		}
	}

	if c.Curve.Label != "" {
		if !yieldNames[c.Curve.Long] || !yieldNames[c.Curve.Short] {
			return fmt.Errorf("curve %s references unknown legs (%s,%s)", c.Curve.Label, c.Curve.Long, c.Curve.Short)
		}
	}

	for _, pair := range c.Volatility.Pairs {
		if !fxNames[pair] {
			return fmt.Errorf("volatility pair %s is not a configured fx ticker", pair)
		}
	}

	seen := map[string]bool{}
	for _, w := range c.Changes.Windows {
		if w.Label == "" || w.Days <= 0 {
			return fmt.Errorf("change window needs label and positive days, got %+v", w)
		}
		if seen[w.Label] {
			return fmt.Errorf("duplicate change window %s", w.Label)
		}
		seen[w.Label] = true
	}

	tickers := map[string]bool{}
	for _, m := range c.Positioning.Markets {
		if m.Name == "" || m.Ticker == "" {
			return fmt.Errorf("positioning market needs name and ticker, got %+v", m)
		}
		if tickers[m.Ticker] {
			return fmt.Errorf("duplicate positioning ticker %s", m.Ticker)
		}
		tickers[m.Ticker] = true
	}

	spreadLabels := map[string]bool{}
	for _, sp := range c.Spreads {
		spreadLabels[sp.Label] = true
	}
	for _, r := range c.Brief.Reads {
		if !fxNames[r.Pair] {
			return fmt.Errorf("brief read pair %s is not a configured fx ticker", r.Pair)
		}
		if !spreadLabels[r.Spread] {
			return fmt.Errorf("brief read for %s references unknown spread %s", r.Pair, r.Spread)
		}
		if !tickers[r.Market] {
			return fmt.Errorf("brief read for %s references unknown positioning market %s", r.Pair, r.Market)
		}
		if r.ForeignLeg != "base" && r.ForeignLeg != "quote" {
			return fmt.Errorf("brief read for %s has foreign_leg %q, want base or quote", r.Pair, r.ForeignLeg)
		}
	}

	for _, cp := range c.Charts.Pairs {
		if !fxNames[cp.Pair] {
			return fmt.Errorf("chart pair %s is not a configured fx ticker", cp.Pair)
		}
		if !spreadLabels[cp.SpreadPrimary] || !spreadLabels[cp.SpreadSecondary] {
			return fmt.Errorf("chart for %s references unknown spreads (%s,%s)", cp.Pair, cp.SpreadPrimary, cp.SpreadSecondary)
		}
		if !tickers[cp.Market] {
			return fmt.Errorf("chart for %s references unknown positioning market %s", cp.Pair, cp.Market)
		}
		if cp.Filename == "" {
			return fmt.Errorf("chart for %s needs a filename", cp.Pair)
		}
	}

	for alias, canonical := range c.Aliases {
		if alias == "" || canonical == "" {
			return fmt.Errorf("alias entries must be non-empty, got %q: %q", alias, canonical)
		}
		if alias == canonical {
			return fmt.Errorf("alias %s maps to itself", alias)
		}
	}

	return nil
}
