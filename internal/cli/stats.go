package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), GetConfig(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.matcher.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if statsJSON {
			return printJSON(stats)
		}

		total := 0
		fmt.Printf("%-14s %8s %6s %9s\n", "CATEGORY", "RECORDS", "DIM", "THRESHOLD")
		for _, s := range stats {
			fmt.Printf("%-14s %8d %6d %9.2f\n", s.Category, s.Records, s.Dimension, s.Threshold)
			total += s.Records
		}
		fmt.Printf("\n%d records in %d categories (data: %s)\n", total, len(stats), GetConfig().Store.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}
