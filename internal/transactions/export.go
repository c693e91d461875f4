package transactions

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/budgetbox/budgetbox/internal/model"
)

// ExportHeader is the first row of a transaction export.
var ExportHeader = []string{"date", "description", "amount", "currency", "account", "category", "type"}

// Uncategorized is exported for transactions without a category.
const Uncategorized = "Uncategorized"

var typeLabels = map[model.TransactionType]string{
	model.TransactionIncome:   "Income",
	model.TransactionExpense:  "Expense",
	model.TransactionTransfer: "Transfer",
}

// Export writes txns as a human-readable CSV, newest first. categoryName
// resolves a category ID; it returns false for unknown IDs.
func Export(w io.Writer, txns []model.Transaction, currency string, categoryName func(id int) (string, bool)) error {
	sorted := slices.Clone(txns)
	slices.SortStableFunc(sorted, func(a, b model.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range sorted {
		cat := Uncategorized
		if t.CategoryID != 0 {
			if name, ok := categoryName(t.CategoryID); ok {
				cat = name
			} else {
				cat = fmt.Sprintf("#%d", t.CategoryID)
			}
		}
		typ, ok := typeLabels[t.Type]
		if !ok {
			typ = string(t.Type)
		}
		rec := []string{
			t.Date.Format(dateFormat),
			t.Description,
			t.Amount.StringFixed(2),
			currency,
			t.Account,
			cat,
			typ,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
