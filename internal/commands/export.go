package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/transactions"
)

func newExportCommand() *cobra.Command {
	var bookDir, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}
			txns, err := b.txns.All()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}

			name := func(id int) (string, bool) {
				c, ok := b.cats.Get(id)
				return c.Name, ok
			}
			if err := transactions.Export(w, txns, b.cfg.Book.Currency, name); err != nil {
				return fmt.Errorf("exporting transactions: %w", err)
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txns), outPath)
			}
			return nil
		},
	}

	bookFlag(cmd, &bookDir)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}
