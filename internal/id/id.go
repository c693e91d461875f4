package id

import (
	"fmt"
	"strconv"
	"strings"
)

// Record ID prefixes for fund ledger operations.
const (
	PrefixAllocation = "AL"
	PrefixDebit      = "DB"
)

// FormatRecordID returns a record ID like "AL-2025-01-001".
func FormatRecordID(prefix string, year, month, seq int) string {
	return fmt.Sprintf("%s-%04d-%02d-%03d", prefix, year, month, seq)
}

// ParseRecordID parses "AL-2025-01-001" into prefix, year, month, seq.
func ParseRecordID(id string) (prefix string, year, month, seq int, err error) {
	parts := strings.SplitN(id, "-", 4)
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("invalid record ID format: %q", id)
	}

	prefix = parts[0]
	if prefix != PrefixAllocation && prefix != PrefixDebit {
		return "", 0, 0, 0, fmt.Errorf("unknown record prefix in %q", id)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid year in record ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid month in record ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return "", 0, 0, 0, fmt.Errorf("month out of range in record ID %q", id)
	}

	seq, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid sequence in record ID %q: %w", id, err)
	}

	return prefix, year, month, seq, nil
}
