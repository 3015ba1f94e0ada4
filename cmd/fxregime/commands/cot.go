package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cotCmd = &cobra.Command{
	Use:   "cot",
	Short: "Build the weekly positioning panel and merge it onto the master",
	Long: `Fetches the weekly financial futures disaggregated reports, derives
per-category net positioning with historical percentiles, writes
cot_latest.csv and merges the weekly columns onto the stored master
panel as latest_with_cot.csv.

New reports publish Friday afternoons Eastern; on other days the most
recent weekly file is used.`,
	RunE: runCot,
}

func init() {
	rootCmd.AddCommand(cotCmd)
}

func runCot(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}

	at, err := asOf()
	if err != nil {
		return err
	}

	weekly, sum, err := a.pipeline.RunPositioning(cmd.Context(), at)
	if err != nil {
		return fmt.Errorf("positioning build: %w", err)
	}

	fmt.Printf("positioning panel: %d weekly rows x %d columns\n", weekly.Len(), len(weekly.Columns()))
	if len(sum.Warnings) > 0 {
		fmt.Printf("warnings: %d (see log)\n", len(sum.Warnings))
	}
	return nil
}
