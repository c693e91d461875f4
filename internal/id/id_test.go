package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRecordID(t *testing.T) {
	assert.Equal(t, "AL-2025-01-001", FormatRecordID(PrefixAllocation, 2025, 1, 1))
	assert.Equal(t, "DB-2025-12-042", FormatRecordID(PrefixDebit, 2025, 12, 42))
	assert.Equal(t, "AL-2025-03-1000", FormatRecordID(PrefixAllocation, 2025, 3, 1000))
}

func TestParseRecordID(t *testing.T) {
	prefix, year, month, seq, err := ParseRecordID("DB-2025-07-015")
	require.NoError(t, err)
	assert.Equal(t, PrefixDebit, prefix)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 7, month)
	assert.Equal(t, 15, seq)
}

func TestParseRecordID_RoundTrip(t *testing.T) {
	for _, p := range []string{PrefixAllocation, PrefixDebit} {
		formatted := FormatRecordID(p, 2024, 11, 7)
		prefix, year, month, seq, err := ParseRecordID(formatted)
		require.NoError(t, err, formatted)
		assert.Equal(t, p, prefix)
		assert.Equal(t, 2024, year)
		assert.Equal(t, 11, month)
		assert.Equal(t, 7, seq)
	}
}

func TestParseRecordID_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"2025-01-001",
		"XX-2025-01-001",
		"AL-abcd-01-001",
		"AL-2025-13-001",
		"AL-2025-01-xyz",
	} {
		_, _, _, _, err := ParseRecordID(input)
		assert.Error(t, err, "input %q", input)
	}
}
