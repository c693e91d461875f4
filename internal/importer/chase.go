package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// ChaseParser parses Chase checking CSV exports.
type ChaseParser struct {
	// Account names the book account the export belongs to. Defaults to "chase".
	Account string
}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// SetAccount sets the account imported rows belong to.
func (p *ChaseParser) SetAccount(name string) { p.Account = name }

// Parse reads a Chase CSV. The sign of the amount decides the type.
func (p *ChaseParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	account := p.Account
	if account == "" {
		account = "chase"
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txn.Account = account
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseChaseRow(rec []string) (model.Transaction, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	desc := strings.TrimSpace(rec[chaseColDesc])
	return model.Transaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        model.TypeForAmount(amount),
		Reference:   makeRef("chase", date, desc, amount),
	}, nil
}

// makeRef creates a reference like chase_20250103_WHOLEFOODS_8417.
func makeRef(source string, date time.Time, desc string, amount decimal.Decimal) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	cents := amount.Abs().Mul(decimal.NewFromInt(100)).Truncate(0).String()
	return fmt.Sprintf("%s_%s_%s_%s", source, date.Format("20060102"), prefix, cents)
}
