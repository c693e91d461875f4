// Package formset encodes form lines in the positional prefix-N-field layout
// used by the budget forms, and decodes submitted values back into rows.
package formset

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/allocation"
)

// Management form keys.
const (
	TotalForms   = "TOTAL_FORMS"
	InitialForms = "INITIAL_FORMS"
	MinNumForms  = "MIN_NUM_FORMS"
	MaxNumForms  = "MAX_NUM_FORMS"
)

// Per-slot field names.
const (
	FieldCategory     = "category"
	FieldMainCategory = "main_category"
	FieldSubcategory  = "subcategory"
	FieldAmount       = "amount"
	FieldNotes        = "notes"
	FieldDescription  = "description"
	FieldDelete       = "DELETE"
)

// MaxForms caps TOTAL_FORMS to keep a hostile submission from allocating
// unbounded rows.
const MaxForms = 1000

// FieldError reports a malformed submitted field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Row is one decoded slot.
type Row struct {
	Index        int
	Category     string
	MainCategory string
	Subcategory  string
	Amount       decimal.Decimal
	Notes        string
	Description  string
	Deleted      bool
}

// FinalCategory is the subcategory when given, else the main category, else
// the plain category field.
func (r Row) FinalCategory() string {
	switch {
	case r.Subcategory != "":
		return r.Subcategory
	case r.MainCategory != "":
		return r.MainCategory
	default:
		return r.Category
	}
}

// Line converts the row into a reconciler line.
func (r Row) Line() allocation.Line {
	return allocation.Line{
		Index:       r.Index,
		CategoryRef: r.FinalCategory(),
		Amount:      r.Amount,
		Notes:       r.Notes,
		Description: r.Description,
		Deleted:     r.Deleted,
	}
}

// Lines converts rows in order.
func Lines(rows []Row) []allocation.Line {
	out := make([]allocation.Line, len(rows))
	for i, r := range rows {
		out[i] = r.Line()
	}
	return out
}

// Key returns the wire name of field in slot n.
func Key(prefix string, n int, field string) string {
	return prefix + "-" + strconv.Itoa(n) + "-" + field
}

// ManagementKey returns the wire name of a management form field.
func ManagementKey(prefix, field string) string {
	return prefix + "-" + field
}

// Encode renders lines slot by slot. Deleted lines keep their slot and carry
// DELETE=on so indexes are never skipped.
func Encode(prefix string, lines []allocation.Line) url.Values {
	v := url.Values{}
	v.Set(ManagementKey(prefix, TotalForms), strconv.Itoa(len(lines)))
	v.Set(ManagementKey(prefix, InitialForms), "0")
	v.Set(ManagementKey(prefix, MinNumForms), "0")
	v.Set(ManagementKey(prefix, MaxNumForms), strconv.Itoa(MaxForms))
	for n, l := range lines {
		v.Set(Key(prefix, n, FieldCategory), l.CategoryRef)
		amount := ""
		if !l.Amount.IsZero() {
			amount = l.Amount.StringFixed(2)
		}
		v.Set(Key(prefix, n, FieldAmount), amount)
		v.Set(Key(prefix, n, FieldNotes), l.Notes)
		v.Set(Key(prefix, n, FieldDescription), l.Description)
		if l.Deleted {
			v.Set(Key(prefix, n, FieldDelete), "on")
		}
	}
	return v
}

// Decode reads TOTAL_FORMS and then every slot 0..N-1. A blank amount
// decodes as zero.
func Decode(prefix string, values url.Values) ([]Row, error) {
	totalKey := ManagementKey(prefix, TotalForms)
	raw := strings.TrimSpace(values.Get(totalKey))
	if raw == "" {
		return nil, FieldError{Field: totalKey, Message: "management form data is missing"}
	}
	total, err := strconv.Atoi(raw)
	if err != nil || total < 0 {
		return nil, FieldError{Field: totalKey, Message: fmt.Sprintf("invalid form count %q", raw)}
	}
	if total > MaxForms {
		return nil, FieldError{Field: totalKey, Message: fmt.Sprintf("at most %d forms are accepted", MaxForms)}
	}

	rows := make([]Row, 0, total)
	for n := 0; n < total; n++ {
		get := func(field string) string {
			return strings.TrimSpace(values.Get(Key(prefix, n, field)))
		}
		row := Row{
			Index:        n,
			Category:     get(FieldCategory),
			MainCategory: get(FieldMainCategory),
			Subcategory:  get(FieldSubcategory),
			Notes:        get(FieldNotes),
			Description:  get(FieldDescription),
			Deleted:      checked(get(FieldDelete)),
		}
		if s := get(FieldAmount); s != "" {
			amt, err := decimal.NewFromString(s)
			if err != nil {
				return nil, FieldError{Field: Key(prefix, n, FieldAmount), Message: fmt.Sprintf("invalid amount %q", s)}
			}
			row.Amount = amt
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checked(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
