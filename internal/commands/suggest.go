package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSuggestCommand() *cobra.Command {
	var bookDir string

	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest a category for a transaction description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}
			desc := strings.Join(args, " ")
			s, ok, err := b.rules.Suggest(desc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "No suggestion for %q\n", desc)
				return nil
			}
			if s.SubcategoryID != 0 {
				fmt.Fprintf(out, "%s > %s (%d%% match on %q)\n", s.CategoryName, s.SubcategoryName, s.Score, s.Pattern)
			} else {
				fmt.Fprintf(out, "%s (%d%% match on %q)\n", s.CategoryName, s.Score, s.Pattern)
			}
			return nil
		},
	}

	bookFlag(cmd, &bookDir)
	return cmd
}
