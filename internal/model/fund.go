package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind distinguishes money entering a fund from money leaving it.
type MovementKind string

const (
	MovementAllocation MovementKind = "allocation"
	MovementDebit      MovementKind = "debit"
)

// FundMovement is a single row in the fund ledger. Rows sharing a RecordID
// belong to the same allocation or debit operation.
type FundMovement struct {
	RecordID      string // "AL-2025-01-001" or "DB-2025-01-001"
	Date          time.Time
	TransactionID int
	CategoryID    int
	Kind          MovementKind
	Amount        decimal.Decimal // always positive; Kind decides the direction
	Notes         string
}

// Signed returns the movement's effect on the fund balance.
func (m FundMovement) Signed() decimal.Decimal {
	if m.Kind == MovementDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}
