package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// NoColumn marks an optional column as absent.
const NoColumn = -1

// CSVLayout describes a bank CSV export by column position.
type CSVLayout struct {
	Delimiter         rune
	HeaderRows        int
	DateColumn        int
	DescriptionColumn int
	AmountColumn      int
	TypeColumn        int    // NoColumn derives the type from the amount sign
	DateFormat        string // Go time layout
	DecimalComma      bool   // "1.234,56" instead of "1,234.56"
}

// Validate checks the layout can address a row.
func (l CSVLayout) Validate() error {
	if l.HeaderRows < 0 {
		return errors.New("header rows must not be negative")
	}
	for name, col := range map[string]int{
		"date":        l.DateColumn,
		"description": l.DescriptionColumn,
		"amount":      l.AmountColumn,
	} {
		if col < 0 {
			return fmt.Errorf("%s column must not be negative", name)
		}
	}
	if l.TypeColumn < NoColumn {
		return fmt.Errorf("type column must be %d or a column index", NoColumn)
	}
	if l.DateFormat == "" {
		return errors.New("date format is required")
	}
	return nil
}

func (l CSVLayout) width() int {
	return max(l.DateColumn, l.DescriptionColumn, l.AmountColumn, l.TypeColumn) + 1
}

// GenericParser parses any CSV export described by a CSVLayout.
type GenericParser struct {
	Name    string
	Account string // defaults to Name
	Layout  CSVLayout
}

// NewGenericParser creates a parser registered under name.
func NewGenericParser(name string, layout CSVLayout) *GenericParser {
	return &GenericParser{Name: name, Layout: layout}
}

// NewRaiffeisenParser returns a parser for Raiffeisen CSV exports:
// semicolon separated, one header row, dd.mm.yyyy dates, decimal comma.
func NewRaiffeisenParser() *GenericParser {
	return NewGenericParser("raiffeisen", CSVLayout{
		Delimiter:         ';',
		HeaderRows:        1,
		DateColumn:        0,
		DescriptionColumn: 5,
		AmountColumn:      3,
		TypeColumn:        NoColumn,
		DateFormat:        "02.01.2006",
		DecimalComma:      true,
	})
}

// Format returns the parser name.
func (p *GenericParser) Format() string { return p.Name }

// SetAccount sets the account imported rows belong to.
func (p *GenericParser) SetAccount(name string) { p.Account = name }

// Parse reads the export. Blank rows are skipped; any other bad row fails
// the whole file.
func (p *GenericParser) Parse(r io.Reader) ([]model.Transaction, error) {
	if err := p.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("%s layout: %w", p.Name, err)
	}

	cr := csv.NewReader(r)
	if p.Layout.Delimiter != 0 {
		cr.Comma = p.Layout.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", p.Name, err)
	}

	account := p.Account
	if account == "" {
		account = p.Name
	}

	var txns []model.Transaction
	for i, rec := range records {
		if i < p.Layout.HeaderRows || blankRow(rec) {
			continue
		}
		txn, err := p.parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		txn.Account = account
		txns = append(txns, txn)
	}
	return txns, nil
}

func (p *GenericParser) parseRow(rec []string) (model.Transaction, error) {
	l := p.Layout
	if len(rec) < l.width() {
		return model.Transaction{}, fmt.Errorf("expected at least %d columns, got %d", l.width(), len(rec))
	}

	raw := strings.TrimSpace(rec[l.DateColumn])
	date, err := time.Parse(l.DateFormat, raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}

	amount, err := ParseAmount(rec[l.AmountColumn], l.DecimalComma)
	if err != nil {
		return model.Transaction{}, err
	}

	typ := model.TypeForAmount(amount)
	if l.TypeColumn != NoColumn {
		t, ok := parseType(rec[l.TypeColumn])
		if !ok {
			return model.Transaction{}, fmt.Errorf("unknown transaction type %q", rec[l.TypeColumn])
		}
		typ = t
		amount = model.SignFor(typ, amount)
	}

	desc := strings.TrimSpace(rec[l.DescriptionColumn])
	return model.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Reference:   makeRef(p.Name, date, desc, amount),
	}, nil
}

// ParseAmount reads a bank amount. Thousands separators (including the
// apostrophe) are dropped; with decimalComma the comma is the decimal point.
func ParseAmount(s string, decimalComma bool) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "'", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if decimalComma {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func parseType(s string) (model.TransactionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN", "INCOME", "CREDIT":
		return model.TransactionIncome, true
	case "OUT", "EXPENSE", "DEBIT":
		return model.TransactionExpense, true
	}
	return "", false
}

func blankRow(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
