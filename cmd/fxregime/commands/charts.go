package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render the per-pair dashboards from the stored panels",
	RunE:  runCharts,
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}

func runCharts(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}

	at, err := asOf()
	if err != nil {
		return err
	}

	merged, err := a.store.LoadMerged()
	if err != nil {
		return fmt.Errorf("load panels (run pipeline first): %w", err)
	}

	paths, err := a.charts.RenderAll(merged, at)
	if err != nil {
		return fmt.Errorf("render dashboards: %w", err)
	}

	for _, path := range paths {
		fmt.Printf("saved: %s\n", path)
	}
	return nil
}
