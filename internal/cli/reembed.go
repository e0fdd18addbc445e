package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"skillmatch/internal/domain"
)

var reembedCategory string

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Recompute stored vectors with the configured model",
	Long: `Recompute every vector of one or all categories from the stored normalized
text. Run this after changing embedding.model or embedding.normalize.

Examples:
  skillmatch reembed
  skillmatch reembed --category IT`,
	RunE: runReembed,
}

func init() {
	rootCmd.AddCommand(reembedCmd)
	reembedCmd.Flags().StringVarP(&reembedCategory, "category", "c", "", "category key (default all)")
}

func runReembed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, GetConfig(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	cats := a.matcher.Categories()
	if reembedCategory != "" {
		cats = []domain.Category{domain.Category(reembedCategory)}
	}

	start := time.Now()
	total := 0
	for _, c := range cats {
		var bar *progressbar.ProgressBar
		var barMu sync.Mutex

		progress := func(done, n int) {
			barMu.Lock()
			defer barMu.Unlock()
			if bar == nil {
				bar = progressbar.NewOptions(n,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowBytes(false),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-12s[reset]", c)),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() {
						fmt.Println()
					}),
				)
			}
			bar.Set(done)
		}

		result, err := a.matcher.Reembed(ctx, c, progress, nil)
		if err != nil {
			return fmt.Errorf("failed to re-embed %s: %w", c, err)
		}
		total += result.Records
	}

	fmt.Printf("Re-embedded %d records in %d categories in %v\n", total, len(cats), time.Since(start).Round(time.Millisecond))
	return nil
}
