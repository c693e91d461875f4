package funds

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Rules checked before a record is posted.
const (
	RuleUnknownCategory   = "unknown_category"
	RuleNotFundManaged    = "not_fund_managed"
	RuleDuplicateCategory = "duplicate_category"
	RuleAmount            = "amount"
	RuleOverTarget        = "over_target"
	RuleDuplicateRecord   = "duplicate_record"
	RuleEmpty             = "empty"
)

// ValidationError describes a single rule violation. Line is the positional
// index of the offending line, or -1 when the whole record is at fault.
type ValidationError struct {
	Rule        string
	Line        int
	Description string
}

func (e ValidationError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("%s: %s", e.Rule, e.Description)
	}
	return fmt.Sprintf("%s [line %d]: %s", e.Rule, e.Line+1, e.Description)
}

// ValidationErrors is returned by Post when a record is rejected.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// CategoryLookup resolves category IDs.
type CategoryLookup interface {
	Get(id int) (model.Category, bool)
}

var hundred = decimal.NewFromInt(100)

// ValidateRecord checks rec against the catalog and the movements already
// in the ledger.
func ValidateRecord(rec Record, existing []model.FundMovement, cats CategoryLookup, tolerance decimal.Decimal) []ValidationError {
	var errs []ValidationError

	if len(rec.Lines) == 0 {
		errs = append(errs, ValidationError{Rule: RuleEmpty, Line: -1, Description: "record has no lines"})
	}

	seen := make(map[int]int)
	total := decimal.Zero
	for _, l := range rec.Lines {
		c, ok := cats.Get(l.CategoryID)
		switch {
		case !ok:
			errs = append(errs, ValidationError{Rule: RuleUnknownCategory, Line: l.Index,
				Description: fmt.Sprintf("unknown category %d", l.CategoryID)})
		case !c.FundManaged:
			errs = append(errs, ValidationError{Rule: RuleNotFundManaged, Line: l.Index,
				Description: fmt.Sprintf("%s is not a fund-managed category", c.Name)})
		}

		if first, dup := seen[l.CategoryID]; dup {
			errs = append(errs, ValidationError{Rule: RuleDuplicateCategory, Line: l.Index,
				Description: fmt.Sprintf("category %d already used on line %d", l.CategoryID, first+1)})
		} else {
			seen[l.CategoryID] = l.Index
		}

		if !l.Amount.IsPositive() {
			errs = append(errs, ValidationError{Rule: RuleAmount, Line: l.Index,
				Description: fmt.Sprintf("amount %s must be positive", l.Amount)})
		} else if !l.Amount.Mul(hundred).Equal(l.Amount.Mul(hundred).Floor()) {
			errs = append(errs, ValidationError{Rule: RuleAmount, Line: l.Index,
				Description: fmt.Sprintf("amount %s has more than 2 decimal places", l.Amount)})
		}
		total = total.Add(l.Amount)
	}

	target := rec.Target.Abs()
	if total.GreaterThan(target.Add(tolerance)) {
		errs = append(errs, ValidationError{Rule: RuleOverTarget, Line: -1,
			Description: fmt.Sprintf("total %s exceeds transaction amount %s", total.StringFixed(2), target.StringFixed(2))})
	}

	for _, m := range existing {
		if m.TransactionID == rec.TransactionID && m.Kind == rec.Kind {
			errs = append(errs, ValidationError{Rule: RuleDuplicateRecord, Line: -1,
				Description: fmt.Sprintf("transaction %d already has %s record %s", rec.TransactionID, rec.Kind, m.RecordID)})
			break
		}
	}

	return errs
}
