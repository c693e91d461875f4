package submission

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/audit"
	"github.com/budgetbox/budgetbox/internal/catalog"
	"github.com/budgetbox/budgetbox/internal/config"
	"github.com/budgetbox/budgetbox/internal/funds"
	"github.com/budgetbox/budgetbox/internal/model"
	"github.com/budgetbox/budgetbox/internal/suggest"
	"github.com/budgetbox/budgetbox/internal/transactions"
)

const (
	groceriesID = 1
	payrollID   = 2
	utilitiesID = 3
)

type fixture struct {
	svc    *Service
	store  *transactions.Store
	ledger *funds.Service
	rules  *suggest.Service
	audit  *audit.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cats := catalog.NewService(catalog.DefaultCatalog())
	f := &fixture{
		store:  transactions.NewStore(dir, allocation.DefaultTolerance),
		ledger: funds.NewService(dir, cats, allocation.DefaultTolerance),
		rules:  suggest.NewService(dir, cats),
		audit:  audit.NewLog(dir),
	}

	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := f.store.Add(
		model.Transaction{Date: day, Description: "WHOLE FOODS MKT", Amount: decimal.RequireFromString("-84.17"), Type: model.TransactionExpense, Account: "chase"},
		model.Transaction{Date: day, Description: "ACME PAYROLL", Amount: decimal.RequireFromString("3500"), Type: model.TransactionIncome, Account: "chase"},
		model.Transaction{Date: day, Description: "CITY UTILITIES", Amount: decimal.RequireFromString("-120"), Type: model.TransactionExpense, Account: "chase"},
	)
	require.NoError(t, err)

	f.svc = NewService(config.Default("Test"), Deps{
		Transactions: f.store,
		Ledger:       f.ledger,
		Catalog:      cats,
		Rules:        f.rules,
		Audit:        f.audit,
	})
	return f
}

// form builds formset values; each row maps field name to value.
func form(rows ...map[string]string) url.Values {
	v := url.Values{}
	v.Set(Prefix+"-TOTAL_FORMS", strconv.Itoa(len(rows)))
	v.Set(Prefix+"-INITIAL_FORMS", "0")
	for i, row := range rows {
		for k, val := range row {
			v.Set(Prefix+"-"+strconv.Itoa(i)+"-"+k, val)
		}
	}
	return v
}

func (f *fixture) lastAudit(t *testing.T) audit.Entry {
	t.Helper()
	entries, err := f.audit.Entries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}

func TestSplit_Success(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Split(context.Background(), groceriesID, form(
		map[string]string{"main_category": "3", "subcategory": "30", "amount": "60.00", "description": "WHOLE FOODS MKT"},
		map[string]string{"main_category": "2", "subcategory": "21", "amount": "24.17", "description": "WHOLE FOODS HOME"},
	))

	require.True(t, res.Success, "%+v", res.Errors)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []int{4, 5}, res.CreatedIDs)
	assert.Equal(t, "Transaction split into 2 lines.", res.Message)

	all, err := f.store.All()
	require.NoError(t, err)
	assert.Len(t, all, 4)
	child, err := f.store.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 30, child.CategoryID)
	assert.True(t, child.Amount.Equal(decimal.RequireFromString("-60")))

	rules, err := f.rules.Rules()
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	last := f.lastAudit(t)
	assert.Equal(t, "split", last.Action)
	assert.Equal(t, audit.OutcomeSuccess, last.Outcome)
	assert.Equal(t, groceriesID, last.TransactionID)
}

func TestSplit_DeletedLinesIgnored(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Split(context.Background(), groceriesID, form(
		map[string]string{"category": "30", "amount": "84.17", "description": "food"},
		map[string]string{"category": "", "amount": "500", "DELETE": "on"},
	))
	require.True(t, res.Success, "%+v", res.Errors)
	assert.Len(t, res.CreatedIDs, 1)
}

func TestSplit_Under(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Split(context.Background(), groceriesID, form(
		map[string]string{"category": "30", "amount": "60", "description": "food"},
	))
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	require.Len(t, res.Errors[FormKey], 1)
	assert.Contains(t, res.Errors[FormKey][0], "24.17 remaining to allocate")

	_, err := f.store.Get(groceriesID)
	assert.NoError(t, err, "rejected split leaves the original in place")

	last := f.lastAudit(t)
	assert.Equal(t, audit.OutcomeRejected, last.Outcome)
	assert.Contains(t, last.Details, "form: ")
}

func TestSplit_LineErrors(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Split(context.Background(), groceriesID, form(
		map[string]string{"main_category": "3", "subcategory": "21", "amount": "40", "description": "x"},
		map[string]string{"category": "30", "amount": "44.17"},
		map[string]string{"amount": "0"},
	))
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[LineKey(0)][0], "does not belong")
	assert.Equal(t, []string{"description: this field is required"}, res.Errors[LineKey(1)])
	assert.Equal(t, []string{
		"category: this field is required",
		"amount: this field is required",
		"description: this field is required",
	}, res.Errors[LineKey(2)])
	assert.Empty(t, res.Errors[FormKey], "lines balance even though some are incomplete")
}

func TestSubmit_BadManagementForm(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Split(context.Background(), groceriesID, url.Values{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, Prefix+"-TOTAL_FORMS")

	v := form(map[string]string{"category": "30", "amount": "abc"})
	res = f.svc.Split(context.Background(), groceriesID, v)
	assert.Contains(t, res.Errors, Prefix+"-0-amount")
}

func TestSubmit_NotFound(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Debit(context.Background(), 99, form())
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.False(t, res.Success)
}

func TestAllocate_Success(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "300", "notes": "buffer"},
		map[string]string{"category": "51", "amount": "200"},
	))
	require.True(t, res.Success, "%+v", res.Errors)
	assert.Equal(t, "AL-2025-01-001", res.RecordID)
	assert.Equal(t, "Allocated 500.00 across 2 funds (AL-2025-01-001).", res.Message)

	bs, err := f.ledger.Balances()
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.True(t, bs[0].Balance.Equal(decimal.NewFromInt(300)))

	assert.Equal(t, "AL-2025-01-001", f.lastAudit(t).RecordID)

	again := f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "1"},
	))
	assert.Equal(t, http.StatusConflict, again.Status)
}

func TestAllocate_Over(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "3600"},
	))
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors[FormKey])
	assert.Contains(t, res.Errors[FormKey][0], "over-allocated by 100.00")
}

func TestAllocate_WrongType(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Allocate(context.Background(), groceriesID, form(
		map[string]string{"category": "50", "amount": "10"},
	))
	assert.False(t, res.Success)
	assert.Equal(t, "Only income transactions can be allocated to funds.", res.Message)
}

func TestDebit_Rules(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Debit(context.Background(), utilitiesID, form(
		map[string]string{"category": "30", "amount": "20"},
	))
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[LineKey(0)][0], "not a fund-managed category")

	res = f.svc.Debit(context.Background(), utilitiesID, form(
		map[string]string{"category": "52", "amount": "20"},
		map[string]string{"category": "52", "amount": "30"},
	))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"category 52 already used on line 1"}, res.Errors[LineKey(1)])

	res = f.svc.Debit(context.Background(), utilitiesID, form(
		map[string]string{"category": "52", "amount": "120"},
	))
	require.True(t, res.Success, "%+v", res.Errors)
	assert.Equal(t, "DB-2025-01-001", res.RecordID)

	res = f.svc.Debit(context.Background(), payrollID, form())
	assert.Equal(t, "Only expense transactions can debit funds.", res.Message)
}

type brokenStore struct{}

func (brokenStore) Get(id int) (model.Transaction, error) {
	return model.Transaction{}, errors.New("disk on fire")
}

func (brokenStore) Split(int, []transactions.Part) ([]model.Transaction, error) {
	return nil, errors.New("disk on fire")
}

func TestSubmit_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.deps.Transactions = brokenStore{}

	res := f.svc.Split(context.Background(), groceriesID, form())
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, retryMessage, res.Message)
	assert.Equal(t, audit.OutcomeError, f.lastAudit(t).Outcome)
}

type recordingHistory struct {
	messages []string
	err      error
}

func (h *recordingHistory) Commit(message string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	h.messages = append(h.messages, message)
	return "abc1234", nil
}

func TestSubmit_CommitsOnSuccessOnly(t *testing.T) {
	f := newFixture(t)
	h := &recordingHistory{}
	f.svc.deps.History = h

	res := f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "3600"},
	))
	require.False(t, res.Success)
	assert.Empty(t, h.messages)

	res = f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "100"},
	))
	require.True(t, res.Success, "%+v", res.Errors)
	require.Len(t, h.messages, 1)
	assert.Equal(t, "allocate: transaction 2: Allocated 100.00 across 1 funds (AL-2025-01-001).", h.messages[0])
}

func TestSubmit_CommitFailureKeepsSuccess(t *testing.T) {
	f := newFixture(t)
	f.svc.deps.History = &recordingHistory{err: errors.New("git: index.lock exists")}

	res := f.svc.Allocate(context.Background(), payrollID, form(
		map[string]string{"category": "50", "amount": "100"},
	))
	assert.True(t, res.Success)
	assert.Equal(t, audit.OutcomeSuccess, f.lastAudit(t).Outcome)
}

func TestForm(t *testing.T) {
	f := newFixture(t)

	fv, res, ok := f.svc.Form(context.Background(), KindSplit, groceriesID)
	require.True(t, ok, res.Message)
	assert.Equal(t, "84.17", fv.State.Target)
	assert.Equal(t, "84.17", fv.State.Remaining)
	assert.Equal(t, "under", fv.State.Status)
	assert.Equal(t, "1", fv.Initial["lines-TOTAL_FORMS"])
	assert.Equal(t, "WHOLE FOODS MKT", fv.Initial["lines-0-description"])
	assert.Equal(t, []string{"category", "amount", "description"}, fv.Config.RequiredFields)
	assert.True(t, fv.Config.AutoAppend)
	assert.Equal(t, "-84.17", fv.Transaction.Amount)
	assert.Len(t, fv.Categories, len(catalog.DefaultCatalog()))

	fv, _, ok = f.svc.Form(context.Background(), KindAllocate, payrollID)
	require.True(t, ok)
	assert.Equal(t, "at-most", fv.Config.Policy)
	assert.Len(t, fv.Categories, 3)

	_, res, ok = f.svc.Form(context.Background(), KindAllocate, groceriesID)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("debit")
	assert.True(t, ok)
	assert.Equal(t, KindDebit, k)

	_, ok = ParseKind("transfer")
	assert.False(t, ok)
}
