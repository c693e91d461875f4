package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:     testTime,
		Action:        "allocate",
		TransactionID: 4,
		RecordID:      "AL-2025-01-001",
		Outcome:       OutcomeSuccess,
		Details:       "2 lines, 100.00 allocated",
	}
}

func TestAppend_NewAndExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Action = "debit"
	e2.Outcome = OutcomeRejected
	e2.RecordID = ""
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "allocate", entries[0].Action)
	assert.Equal(t, OutcomeRejected, entries[1].Outcome)
	assert.Empty(t, entries[1].RecordID)
}

func TestMarshalUnmarshal(t *testing.T) {
	e := testEntry()
	row := MarshalEntry(e)
	assert.Equal(t, "2025-01-15T10:30:00Z", row[colTimestamp])

	got, err := UnmarshalEntry(row)
	require.NoError(t, err)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
	e.Timestamp = got.Timestamp
	assert.Equal(t, e, got)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 6 fields")

	_, err = UnmarshalEntry([]string{"yesterday", "split", "", "", "", ""})
	assert.ErrorContains(t, err, "parsing timestamp")

	_, err = UnmarshalEntry([]string{"2025-01-15T10:30:00Z", "split", "x", "", "", ""})
	assert.ErrorContains(t, err, "parsing transaction_id")
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "audit.csv"), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLog_StampsTime(t *testing.T) {
	l := NewLog(t.TempDir())
	l.now = func() time.Time { return testTime }

	require.NoError(t, l.Record(Entry{Action: "split", TransactionID: 1, Outcome: OutcomeError}))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, testTime.Equal(entries[0].Timestamp))
}
