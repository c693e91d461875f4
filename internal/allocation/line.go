// Package allocation reconciles the lines of a split, fund allocation or
// fund debit form against the amount of one transaction.
package allocation

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names usable in Config.RequiredFields. Category and amount are always
// required; the others are opt-in per form.
const (
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldNotes       = "notes"
)

// Line is one row of a split, allocation or debit form.
type Line struct {
	ID          uuid.UUID
	Index       int // positional slot in the submitted form
	CategoryRef string
	Amount      decimal.Decimal
	Notes       string
	Description string
	Deleted     bool
}

// Contribution is what the line adds to the allocated sum. Deleted lines and
// non-positive amounts contribute nothing.
func (l Line) Contribution() decimal.Decimal {
	if l.Deleted || !l.Amount.IsPositive() {
		return decimal.Zero
	}
	return l.Amount
}

// Missing returns the required fields the line has not filled in, in a
// stable order: category, amount, then extra fields as configured.
func (l Line) Missing(required []string) []string {
	var missing []string
	if strings.TrimSpace(l.CategoryRef) == "" {
		missing = append(missing, FieldCategory)
	}
	if !l.Amount.IsPositive() {
		missing = append(missing, FieldAmount)
	}
	for _, f := range required {
		switch f {
		case FieldDescription:
			if strings.TrimSpace(l.Description) == "" {
				missing = append(missing, FieldDescription)
			}
		case FieldNotes:
			if strings.TrimSpace(l.Notes) == "" {
				missing = append(missing, FieldNotes)
			}
		}
	}
	return missing
}

// Complete reports whether every required field is populated.
func (l Line) Complete(required []string) bool {
	return len(l.Missing(required)) == 0
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Amount      *decimal.Decimal
	CategoryRef *string
	Notes       *string
	Description *string
}

func (p Patch) apply(l *Line) {
	if p.Amount != nil {
		l.Amount = *p.Amount
	}
	if p.CategoryRef != nil {
		l.CategoryRef = *p.CategoryRef
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
}

// SetAmount returns a Patch updating only the amount.
func SetAmount(d decimal.Decimal) Patch { return Patch{Amount: &d} }

// SetCategory returns a Patch updating only the category.
func SetCategory(ref string) Patch { return Patch{CategoryRef: &ref} }
