package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction's direction.
type TransactionType string

const (
	TransactionIncome   TransactionType = "IN"
	TransactionExpense  TransactionType = "OUT"
	TransactionTransfer TransactionType = "TRF"
)

// Transaction is one row of the transaction book.
type Transaction struct {
	ID          int
	Date        time.Time
	Description string
	Amount      decimal.Decimal // negative = expense, positive = income
	Type        TransactionType
	CategoryID  int // 0 = uncategorized
	Account     string
	Reference   string
}

// Magnitude returns the unsigned amount, the target of any split or allocation.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// TypeForAmount derives the transaction type from the sign of an amount.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionExpense
	}
	return TransactionIncome
}

// SignFor returns amount with the sign convention of the given type:
// expenses negative, income positive, transfers untouched.
func SignFor(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionExpense:
		return amount.Abs().Neg()
	case TransactionIncome:
		return amount.Abs()
	default:
		return amount
	}
}
