package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Render the morning brief from the stored panels",
	RunE:  runBrief,
}

func init() {
	rootCmd.AddCommand(briefCmd)
}

func runBrief(cmd *cobra.Command, args []string) error {
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

	text, err := a.brief.Build(merged, a.cotDate(), at)
	if err != nil {
		return fmt.Errorf("build brief: %w", err)
	}

	fmt.Print(text)

	path, err := a.brief.Save(text, at)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", path)
	return nil
}
