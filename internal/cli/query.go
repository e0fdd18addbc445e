package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"skillmatch/internal/domain"
)

var (
	queryTitle       string
	queryDescription string
	queryTopK        int
	queryMax         int
	queryMinScore    float64
	queryJSON        bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List stored skills relevant to a text, bounded by max_skills",
	Long: `Score the text against every category and keep the titles that clear the
category thresholds. Thresholds are raised together until at most
filter.max_skills titles remain.

Examples:
  skillmatch filter --title "Construction worker" --description "builds houses"
  skillmatch filter -t "Data engineer" --max 20 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if queryMax > 0 {
			cfg.Filter.MaxSkills = queryMax
		}
		a, err := newApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.matcher.FilterSkills(cmd.Context(), queryTitle, queryDescription, reporter())
		if err != nil {
			return err
		}
		return printMatches(matches, "skills")
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Show the most similar stored titles across all categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		topK := cfg.Filter.TopK
		if queryTopK > 0 {
			topK = queryTopK
		}
		a, err := newApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.matcher.FindTopSimilar(cmd.Context(), queryTitle, queryDescription, topK, reporter())
		if err != nil {
			return err
		}
		return printMatches(matches, "results")
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the stored title a skill name refers to, or report it as new",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		minScore := cfg.Filter.NewSkillThreshold
		if cmd.Flags().Changed("min-score") {
			minScore = queryMinScore
		}
		a, err := newApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		m, ok, err := a.matcher.BestMatch(cmd.Context(), queryTitle, minScore, reporter())
		if err != nil {
			return err
		}

		if queryJSON {
			out := struct {
				Name  string        `json:"name"`
				New   bool          `json:"new"`
				Match *domain.Match `json:"match,omitempty"`
			}{Name: queryTitle, New: !ok}
			if m.Title != "" {
				out.Match = &m
			}
			return printJSON(out)
		}

		switch {
		case ok:
			fmt.Printf("%s -> %s [%s] (score: %.3f)\n", queryTitle, m.Title, m.Category, m.Score)
		case m.Title != "":
			fmt.Printf("%s is new (closest: %s [%s], score: %.3f < %.2f)\n", queryTitle, m.Title, m.Category, m.Score, minScore)
		default:
			fmt.Printf("%s is new (nothing stored yet)\n", queryTitle)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{filterCmd, similarCmd, matchCmd} {
		rootCmd.AddCommand(c)
		c.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	}
	for _, c := range []*cobra.Command{filterCmd, similarCmd} {
		c.Flags().StringVarP(&queryTitle, "title", "t", "", "title (required)")
		c.Flags().StringVar(&queryDescription, "description", "", "description")
		c.MarkFlagRequired("title")
	}
	filterCmd.Flags().IntVar(&queryMax, "max", 0, "maximum number of skills (default from config)")
	similarCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")

	matchCmd.Flags().StringVarP(&queryTitle, "name", "n", "", "skill name (required)")
	matchCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "score a match must reach (default filter.new_skill_threshold)")
	matchCmd.MarkFlagRequired("name")
}

func printMatches(matches []domain.Match, noun string) error {
	if queryJSON {
		if matches == nil {
			matches = []domain.Match{}
		}
		return printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Printf("No %s found.\n", noun)
		return nil
	}
	for i, m := range matches {
		fmt.Printf("%3d. %-40s %-14s %.3f\n", i+1, m.Title, m.Category, m.Score)
	}
	return nil
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
