package transactions

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbox/budgetbox/internal/model"
)

func TestExport(t *testing.T) {
	payroll := model.Transaction{ID: 2, Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), Description: "ACME CORP PAYROLL", Amount: dec("3500"), Type: model.TransactionIncome, CategoryID: 10, Account: "chase"}
	g := groceries()
	g.ID = 1
	sameDay := model.Transaction{ID: 3, Date: g.Date, Description: "GONE", Amount: dec("-1"), Type: model.TransactionExpense, CategoryID: 99}

	names := map[int]string{10: "Salary"}
	var buf bytes.Buffer
	err := Export(&buf, []model.Transaction{g, payroll, sameDay}, "USD", func(id int) (string, bool) {
		n, ok := names[id]
		return n, ok
	})
	require.NoError(t, err)

	want := "date,description,amount,currency,account,category,type\n" +
		"2025-01-15,ACME CORP PAYROLL,3500.00,USD,chase,Salary,Income\n" +
		"2025-01-03,GONE,-1.00,USD,,#99,Expense\n" +
		"2025-01-03,WHOLE FOODS MKT,-84.17,USD,chase,Uncategorized,Expense\n"
	assert.Equal(t, want, buf.String())
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, "CHF", func(int) (string, bool) { return "", false }))
	assert.Equal(t, "date,description,amount,currency,account,category,type\n", buf.String())
}
