package transactions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Header is the first row of transactions.csv.
var Header = []string{"transaction_id", "date", "description", "amount", "type", "category_id", "account", "reference"}

const (
	numFields  = 8
	dateFormat = "2006-01-02"
	colID      = 0
	colDate    = 1
	colDesc    = 2
	colAmount  = 3
	colType    = 4
	colCat     = 5
	colAccount = 6
	colRef     = 7
)

// ReadTransactions reads transactions.csv.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var out []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// WriteTransactions writes transactions.csv including the header.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = strconv.Itoa(t.ID)
	row[colDate] = t.Date.Format(dateFormat)
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colType] = string(t.Type)
	if t.CategoryID != 0 {
		row[colCat] = strconv.Itoa(t.CategoryID)
	}
	row[colAccount] = t.Account
	row[colRef] = t.Reference
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.Atoi(record[colID])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing transaction_id %q: %w", record[colID], err)
	}
	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	typ := model.TransactionType(record[colType])
	switch typ {
	case model.TransactionIncome, model.TransactionExpense, model.TransactionTransfer:
	default:
		return model.Transaction{}, fmt.Errorf("unknown type %q", record[colType])
	}

	var catID int
	if record[colCat] != "" {
		catID, err = strconv.Atoi(record[colCat])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing category_id %q: %w", record[colCat], err)
		}
	}

	return model.Transaction{
		ID:          id,
		Date:        date,
		Description: record[colDesc],
		Amount:      amount,
		Type:        typ,
		CategoryID:  catID,
		Account:     record[colAccount],
		Reference:   record[colRef],
	}, nil
}
