package commands

import (
	"fmt"
	"time"

	"github.com/wonny/fxregime/internal/brief"
	"github.com/wonny/fxregime/internal/dashboard"
	"github.com/wonny/fxregime/internal/marketconfig"
	"github.com/wonny/fxregime/internal/pipeline"
	"github.com/wonny/fxregime/internal/sources/cftc"
	"github.com/wonny/fxregime/internal/sources/ecb"
	"github.com/wonny/fxregime/internal/sources/fred"
	"github.com/wonny/fxregime/internal/sources/mof"
	"github.com/wonny/fxregime/internal/sources/yahoo"
	"github.com/wonny/fxregime/internal/store"
	"github.com/wonny/fxregime/pkg/config"
	"github.com/wonny/fxregime/pkg/httputil"
	"github.com/wonny/fxregime/pkg/logger"
)

// app bundles everything a command needs, wired once per invocation.
type app struct {
	cfg       *config.Config
	marketCfg *marketconfig.Config
	log       *logger.Logger
	pipeline  *pipeline.Pipeline
	store     *store.Store
	brief     *brief.Builder
	charts    *dashboard.Renderer
}

// initApp loads configuration and wires the full dependency graph.
func initApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if marketFile != "" {
		cfg.MarketConfig = marketFile
	}

	log := logger.New(cfg)

	marketCfg, err := marketconfig.Load(cfg.MarketConfig)
	if err != nil {
		return nil, fmt.Errorf("load market config: %w", err)
	}

	// One client per provider so a throttled source never starves the
	// others.
	yahooClient, err := yahoo.NewClient(
		httputil.New(cfg, log).WithRateLimit(2, 4),
		marketCfg.Calendar.Timezone, log)
	if err != nil {
		return nil, fmt.Errorf("init yahoo client: %w", err)
	}
	fredClient := fred.NewClient(httputil.New(cfg, log).WithRateLimit(2, 4), cfg.FredAPIKey, log)
	ecbClient := ecb.NewClient(httputil.New(cfg, log).WithRateLimit(2, 4), log)
	mofClient := mof.NewClient(httputil.New(cfg, log).WithRateLimit(1, 2), log)
	cftcClient := cftc.NewClient(httputil.New(cfg, log).WithRateLimit(1, 2), log)

	st, err := store.New(cfg.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	pipe, err := pipeline.New(marketCfg, pipeline.Sources{
		FX: yahooClient,
		Yields: map[string]pipeline.YieldFetcher{
			"fred": fredClient,
			"ecb":  ecbClient,
			"mof":  mofClient,
		},
		COT: cftcClient,
	}, st, log)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	return &app{
		cfg:       cfg,
		marketCfg: marketCfg,
		log:       log,
		pipeline:  pipe,
		store:     st,
		brief:     brief.New(marketCfg, cfg.BriefDir, log),
		charts:    dashboard.New(marketCfg, cfg.ChartDir, log),
	}, nil
}

// asOf resolves the --as-of flag, defaulting to now. A bare date reads
// as midnight UTC, which lands before the NY close and therefore
// excludes that date's candle.
func asOf() (time.Time, error) {
	if asOfFlag == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, asOfFlag); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", asOfFlag); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse --as-of %q, want RFC3339 or YYYY-MM-DD", asOfFlag)
}

// cotDate returns the date of the last stored weekly report, or "n/a".
func (a *app) cotDate() string {
	weekly, err := a.store.LoadPositioning()
	if err != nil || weekly.Len() == 0 {
		return "n/a"
	}
	return weekly.DateAt(weekly.Len() - 1).Format("2006-01-02")
}
