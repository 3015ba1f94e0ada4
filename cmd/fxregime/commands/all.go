package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the full sequence: pipeline, cot, brief, charts",
	RunE:  runAll,
}

func init() {
	rootCmd.AddCommand(allCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}

	at, err := asOf()
	if err != nil {
		return err
	}

	fmt.Println("[1/4] market build")
	if _, _, err := a.pipeline.RunMarket(cmd.Context(), at); err != nil {
		return fmt.Errorf("market build: %w", err)
	}

	fmt.Println("[2/4] positioning build")
	if _, _, err := a.pipeline.RunPositioning(cmd.Context(), at); err != nil {
		// The market artifacts are already saved; report and continue
		// so a CFTC outage still yields a brief.
		fmt.Printf("positioning build failed, continuing without it: %v\n", err)
	}

	merged, err := a.store.LoadMerged()
	if err != nil {
		return fmt.Errorf("load panels: %w", err)
	}

	fmt.Println("[3/4] morning brief")
	text, err := a.brief.Build(merged, a.cotDate(), at)
	if err != nil {
		return fmt.Errorf("build brief: %w", err)
	}
	if _, err := a.brief.Save(text, at); err != nil {
		return err
	}

	fmt.Println("[4/4] dashboards")
	paths, err := a.charts.RenderAll(merged, at)
	if err != nil {
		return fmt.Errorf("render dashboards: %w", err)
	}

	fmt.Println("done:")
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}
	return nil
}
