package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	asOfFlag   string
	marketFile string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fxregime",
	Short: "G10 FX regime pipeline",
	Long: `G10 FX regime pipeline

Pulls FX spots, government bond yields and weekly futures positioning,
aligns everything onto the FX trading calendar, derives rate
differentials, realized volatility and positioning percentiles, and
publishes CSV panels, a morning brief and pair dashboards.

Examples:
  fxregime pipeline
  fxregime cot
  fxregime all
  fxregime brief
  fxregime charts
  fxregime scheduler start`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&asOfFlag, "as-of", "",
		"as-of timestamp (RFC3339 or YYYY-MM-DD); pins the partial-candle cutoff for reproducible runs")
	rootCmd.PersistentFlags().StringVar(&marketFile, "market-config", "",
		"market definition YAML (default from MARKET_CONFIG env)")
}
