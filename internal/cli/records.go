package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"skillmatch/internal/domain"
	"skillmatch/internal/usecase"
)

var (
	recTitle          string
	recDescription    string
	recCategory       string
	updOldTitle       string
	updOldDescription string
	updNewCategory    string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Embed a title and description into a category",
	Long: `Embed a title and description and append it to a category store.
An entry whose normalized text is already stored is left unchanged.

Examples:
  skillmatch add --title "Welding" --category Professional
  skillmatch add -t "Go" --description "backend services" -c IT`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), GetConfig(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		return recordOutcome(a.matcher.Add(cmd.Context(), recTitle, recDescription, domain.Category(recCategory), reporter()))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a title and description from a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), GetConfig(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		return recordOutcome(a.matcher.Delete(cmd.Context(), recTitle, recDescription, domain.Category(recCategory), reporter()))
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace a stored entry with a new title and description",
	Long: `Delete the old entry and add the new one. The two steps are not atomic:
if the add fails the old entry stays deleted.

Example:
  skillmatch update --old-title "English" -t "English C1" -c Soft --new-category Language`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), GetConfig(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		return recordOutcome(a.matcher.Update(cmd.Context(),
			updOldTitle, updOldDescription, recTitle, recDescription,
			domain.Category(recCategory), domain.Category(updNewCategory), reporter()))
	},
}

// recordOutcome treats an entry that is already stored, or already gone, as
// success: the reporter has said so and the store is unchanged.
func recordOutcome(err error) error {
	if errors.Is(err, usecase.ErrDuplicate) || errors.Is(err, usecase.ErrNotFound) {
		return nil
	}
	return err
}

func init() {
	for _, c := range []*cobra.Command{addCmd, deleteCmd, updateCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&recTitle, "title", "t", "", "title (required)")
		c.Flags().StringVar(&recDescription, "description", "", "description")
		c.Flags().StringVarP(&recCategory, "category", "c", "", "category key (required)")
		c.MarkFlagRequired("title")
		c.MarkFlagRequired("category")
	}
	updateCmd.Flags().StringVar(&updOldTitle, "old-title", "", "title of the stored entry (required)")
	updateCmd.Flags().StringVar(&updOldDescription, "old-description", "", "description of the stored entry")
	updateCmd.Flags().StringVar(&updNewCategory, "new-category", "", "move the entry to this category")
	updateCmd.MarkFlagRequired("old-title")
}
