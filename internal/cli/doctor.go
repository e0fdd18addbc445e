package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillmatch/internal/adapter/fs"
	"skillmatch/internal/domain"
	"skillmatch/internal/usecase"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check category files for partial writes, corruption and leftovers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		files := make(map[domain.Category][]string, len(cfg.Store.Categories))
		for _, name := range cfg.CategoryNames() {
			vectors, keys, titles, _ := cfg.CategoryFiles(name)
			files[domain.Category(name)] = []string{vectors, keys, titles}
		}

		walker := fs.NewWalker(usecase.DataFilePatterns, nil)
		report, err := usecase.NewDoctor(walker, a.store, files).Check(cmd.Context(), cfg.Store.DataDir)
		if err != nil {
			return err
		}

		if doctorJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			fmt.Printf("%d of %d categories healthy\n", report.Healthy, report.Categories)
			for _, issue := range report.Issues {
				if issue.Path != "" {
					fmt.Printf("  %s: %s (%s)\n", issue.Category, issue.Problem, issue.Path)
				} else {
					fmt.Printf("  %s: %s\n", issue.Category, issue.Problem)
				}
			}
			for _, p := range report.Stray {
				fmt.Printf("  unconfigured file: %s\n", p)
			}
		}

		if !report.OK() {
			return fmt.Errorf("found %d issues and %d unconfigured files", len(report.Issues), len(report.Stray))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output as JSON")
}
