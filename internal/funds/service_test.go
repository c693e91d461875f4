package funds

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbox/budgetbox/internal/allocation"
	"github.com/budgetbox/budgetbox/internal/model"
)

func TestPost_NewLedger(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, cats, allocation.DefaultTolerance)

	recordID, err := svc.Post(allocationRecord("100",
		Line{CategoryID: 50, Amount: dec("60"), Notes: "rainy day"},
		Line{CategoryID: 51, Amount: dec("40")},
	))
	require.NoError(t, err)
	assert.Equal(t, "AL-2025-01-001", recordID)

	_, err = os.Stat(Path(dir))
	require.NoError(t, err)

	ms, err := svc.Movements()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, recordID, ms[1].RecordID)
	assert.Equal(t, "rainy day", ms[0].Notes)
}

func TestPost_SequencesPerPrefixAndMonth(t *testing.T) {
	svc := NewService(t.TempDir(), cats, allocation.DefaultTolerance)

	rec := allocationRecord("100", Line{CategoryID: 50, Amount: dec("10")})
	first, err := svc.Post(rec)
	require.NoError(t, err)

	rec.TransactionID = 2
	second, err := svc.Post(rec)
	require.NoError(t, err)

	debit := allocationRecord("30", Line{CategoryID: 50, Amount: dec("30")})
	debit.Kind = model.MovementDebit
	debit.TransactionID = 3
	third, err := svc.Post(debit)
	require.NoError(t, err)

	rec.TransactionID = 4
	rec.Date = date(2025, 2, 1)
	fourth, err := svc.Post(rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"AL-2025-01-001", "AL-2025-01-002", "DB-2025-01-001", "AL-2025-02-001"},
		[]string{first, second, third, fourth})
}

func TestPost_Rejected(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, cats, allocation.DefaultTolerance)

	_, err := svc.Post(allocationRecord("50", Line{CategoryID: 50, Amount: dec("55")}))
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, RuleOverTarget, verrs[0].Rule)

	_, statErr := os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(statErr), "rejected record must not create the ledger")
}

func TestPost_OneRecordPerTransactionAndKind(t *testing.T) {
	svc := NewService(t.TempDir(), cats, allocation.DefaultTolerance)
	rec := allocationRecord("100", Line{CategoryID: 50, Amount: dec("10")})

	_, err := svc.Post(rec)
	require.NoError(t, err)

	has, err := svc.HasRecord(1, model.MovementAllocation)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = svc.HasRecord(1, model.MovementDebit)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = svc.Post(rec)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, RuleDuplicateRecord, verrs[0].Rule)
}

func TestBalances(t *testing.T) {
	svc := NewService(t.TempDir(), cats, allocation.DefaultTolerance)

	_, err := svc.Post(allocationRecord("200",
		Line{CategoryID: 52, Amount: dec("150")},
		Line{CategoryID: 50, Amount: dec("50")},
	))
	require.NoError(t, err)

	debit := allocationRecord("80.25", Line{CategoryID: 52, Amount: dec("80.25")})
	debit.Kind = model.MovementDebit
	debit.TransactionID = 9
	_, err = svc.Post(debit)
	require.NoError(t, err)

	bs, err := svc.Balances()
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.Equal(t, 50, bs[0].CategoryID)
	assert.True(t, bs[0].Balance.Equal(dec("50")))
	assert.Equal(t, 52, bs[1].CategoryID)
	assert.True(t, bs[1].Allocated.Equal(dec("150")))
	assert.True(t, bs[1].Debited.Equal(dec("80.25")))
	assert.True(t, bs[1].Balance.Equal(dec("69.75")))
}

func TestBalances_EmptyLedger(t *testing.T) {
	svc := NewService(t.TempDir(), cats, allocation.DefaultTolerance)
	bs, err := svc.Balances()
	require.NoError(t, err)
	assert.Empty(t, bs)
}
