package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/audit"
)

func newImportCategoriesCommand() *cobra.Command {
	var bookDir string

	cmd := &cobra.Command{
		Use:   "import-categories <file>",
		Short: "Import category names from a CSV file",
		Long: `Import-categories reads a CSV with a "name" column and an optional
"parent_name" column. Unknown categories are created, known ones are moved
under the given parent. Rows that cannot be applied are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := b.cats.ImportNames(f)
			if err != nil {
				return fmt.Errorf("importing categories: %w", err)
			}
			if err := b.cats.Save(b.root); err != nil {
				return err
			}

			summary := fmt.Sprintf("%s: %d created, %d updated, %d skipped", filepath.Base(args[0]), res.Created, res.Updated, len(res.Errors))
			outcome := audit.OutcomeSuccess
			if len(res.Errors) > 0 {
				outcome = audit.OutcomeRejected
			}
			if err := b.audit.Record(audit.Entry{Action: "import-categories", Outcome: outcome, Details: summary}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summary)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}

			hash, err := b.commit("import categories: " + summary)
			if err != nil {
				return err
			}
			if hash != "" {
				fmt.Fprintf(out, "Committed %s\n", hash)
			}
			return nil
		},
	}

	bookFlag(cmd, &bookDir)
	return cmd
}
