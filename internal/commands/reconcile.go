package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/budgetbox/budgetbox/internal/allocation"
)

// errUnbalanced is returned when the lines cannot be submitted, so the
// process exits non-zero.
var errUnbalanced = errors.New("allocation cannot be submitted")

func newReconcileCommand() *cobra.Command {
	var (
		target    string
		policy    string
		tolerance string
		lines     []string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check a set of lines against a target amount",
		Long: `Reconcile adds each --line in order and reports the balance.

A line is category:amount, optionally followed by :deleted to soft-delete it.`,
		Example: `  budgetbox reconcile --target 100 --line 10:60 --line 11:40
  budgetbox reconcile --target 300 --policy at-most --line 50:200 --line 51:50:deleted`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.OutOrStdout(), target, policy, tolerance, lines)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "amount to distribute (required)")
	cmd.Flags().StringVar(&policy, "policy", string(allocation.PolicyExact), "submission policy: exact or at-most")
	cmd.Flags().StringVar(&tolerance, "tolerance", allocation.DefaultTolerance.String(), "balance tolerance")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "line as category:amount[:deleted] (repeatable)")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runReconcile(out io.Writer, target, policyName, tolerance string, raw []string) error {
	tgt, err := decimal.NewFromString(target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", target, err)
	}
	tol, err := decimal.NewFromString(tolerance)
	if err != nil || !tol.IsPositive() {
		return fmt.Errorf("invalid tolerance %q", tolerance)
	}
	policy, ok := allocation.ParsePolicy(policyName)
	if !ok {
		return fmt.Errorf("unknown policy %q", policyName)
	}

	r := allocation.New(tgt, allocation.Config{Policy: policy, Tolerance: tol})
	for _, s := range raw {
		l, deleted, err := parseLine(s)
		if err != nil {
			return err
		}
		added := r.AddLine(l)
		if deleted {
			r.SoftDeleteLine(added.ID)
		}
	}

	v := r.Validate(policy)
	st := v.State
	fmt.Fprintf(out, "Target:    %s\n", st.Target.StringFixed(2))
	fmt.Fprintf(out, "Allocated: %s\n", st.Allocated.StringFixed(2))
	fmt.Fprintf(out, "Remaining: %s\n", st.Remaining.StringFixed(2))
	fmt.Fprintf(out, "Status:    %s (%d of %d lines active)\n", st.Status, st.ActiveLines, st.TotalLines)

	if v.Valid {
		fmt.Fprintln(out, "OK: ready to submit")
		return nil
	}
	for _, reason := range v.Reasons {
		fmt.Fprintf(out, "  - %s\n", reason)
	}
	return errUnbalanced
}

func parseLine(s string) (allocation.Line, bool, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return allocation.Line{}, false, fmt.Errorf("invalid line %q: want category:amount[:deleted]", s)
	}

	l := allocation.Line{CategoryRef: strings.TrimSpace(parts[0])}
	if amount := strings.TrimSpace(parts[1]); amount != "" {
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return allocation.Line{}, false, fmt.Errorf("invalid amount in line %q: %w", s, err)
		}
		l.Amount = amt
	}

	deleted := false
	if len(parts) == 3 {
		if parts[2] != "deleted" {
			return allocation.Line{}, false, fmt.Errorf("invalid line flag %q", parts[2])
		}
		deleted = true
	}
	return l, deleted, nil
}
