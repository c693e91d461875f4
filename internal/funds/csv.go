package funds

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Header is the CSV header for movements.csv.
const Header = "record_id,date,transaction_id,category_id,kind,amount,notes"

const (
	numFields  = 7
	dateFormat = "2006-01-02"
	colRecord  = 0
	colDate    = 1
	colTx      = 2
	colCat     = 3
	colKind    = 4
	colAmount  = 5
	colNotes   = 6
)

// ReadMovements reads every movement from a movements.csv reader.
func ReadMovements(r io.Reader) ([]model.FundMovement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading movements CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var out []model.FundMovement
	for i, rec := range records[1:] {
		m, err := UnmarshalMovement(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// WriteMovements writes movements including the header.
func WriteMovements(w io.Writer, ms []model.FundMovement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, m := range ms {
		if err := cw.Write(MarshalMovement(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendMovements appends rows to an existing movements.csv (no header).
func AppendMovements(w io.Writer, ms []model.FundMovement) error {
	cw := csv.NewWriter(w)
	for i, m := range ms {
		if err := cw.Write(MarshalMovement(m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalMovement converts a FundMovement to a CSV row.
func MarshalMovement(m model.FundMovement) []string {
	row := make([]string, numFields)
	row[colRecord] = m.RecordID
	row[colDate] = m.Date.Format(dateFormat)
	row[colTx] = strconv.Itoa(m.TransactionID)
	row[colCat] = strconv.Itoa(m.CategoryID)
	row[colKind] = string(m.Kind)
	row[colAmount] = m.Amount.StringFixed(2)
	row[colNotes] = m.Notes
	return row
}

// UnmarshalMovement converts a CSV row to a FundMovement.
func UnmarshalMovement(record []string) (model.FundMovement, error) {
	if len(record) != numFields {
		return model.FundMovement{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.FundMovement{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	txID, err := strconv.Atoi(record[colTx])
	if err != nil {
		return model.FundMovement{}, fmt.Errorf("parsing transaction_id %q: %w", record[colTx], err)
	}
	catID, err := strconv.Atoi(record[colCat])
	if err != nil {
		return model.FundMovement{}, fmt.Errorf("parsing category_id %q: %w", record[colCat], err)
	}
	kind := model.MovementKind(record[colKind])
	if kind != model.MovementAllocation && kind != model.MovementDebit {
		return model.FundMovement{}, fmt.Errorf("unknown kind %q", record[colKind])
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.FundMovement{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.FundMovement{
		RecordID:      record[colRecord],
		Date:          date,
		TransactionID: txID,
		CategoryID:    catID,
		Kind:          kind,
		Amount:        amount,
		Notes:         record[colNotes],
	}, nil
}
