package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFundsCommand() *cobra.Command {
	var bookDir string

	cmd := &cobra.Command{
		Use:   "funds",
		Short: "Show fund balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(bookDir)
			if err != nil {
				return err
			}
			balances, err := b.ledger.Balances()
			if err != nil {
				return err
			}
			if len(balances) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fund movements yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ID\tFund\tAllocated\tDebited\tBalance\t")
			for _, bal := range balances {
				name := "?"
				if c, ok := b.cats.Get(bal.CategoryID); ok {
					name = c.Name
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", bal.CategoryID, name,
					bal.Allocated.StringFixed(2), bal.Debited.StringFixed(2), bal.Balance.StringFixed(2))
			}
			return w.Flush()
		},
	}

	bookFlag(cmd, &bookDir)
	return cmd
}
