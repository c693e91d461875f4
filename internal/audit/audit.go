// Package audit keeps an append-only CSV trail of form submissions.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Outcomes recorded for a submission.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp     time.Time
	Action        string // split, allocate, debit, import
	TransactionID int
	RecordID      string
	Outcome       string
	Details       string
}

// Header is the CSV header for audit.csv.
const Header = "timestamp,action,transaction_id,record_id,outcome,details"

const (
	numFields    = 6
	logDir       = "logs"
	logFile      = "logs/audit.csv"
	colTimestamp = 0
	colAction    = 1
	colTx        = 2
	colRecord    = 3
	colOutcome   = 4
	colDetails   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colAction] = e.Action
	if e.TransactionID != 0 {
		row[colTx] = strconv.Itoa(e.TransactionID)
	}
	row[colRecord] = e.RecordID
	row[colOutcome] = e.Outcome
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	var txID int
	if record[colTx] != "" {
		txID, err = strconv.Atoi(record[colTx])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing transaction_id %q: %w", record[colTx], err)
		}
	}

	return Entry{
		Timestamp:     ts,
		Action:        record[colAction],
		TransactionID: txID,
		RecordID:      record[colRecord],
		Outcome:       record[colOutcome],
		Details:       record[colDetails],
	}, nil
}

// Log appends entries to <bookRoot>/logs/audit.csv.
type Log struct {
	bookRoot string
	now      func() time.Time

	mu sync.Mutex
}

// NewLog creates a Log for a book.
func NewLog(bookRoot string) *Log {
	return &Log{bookRoot: bookRoot, now: time.Now}
}

// Record appends one entry, stamping it with the current time when it has none.
func (l *Log) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Append(l.bookRoot, []Entry{e})
}

// Entries returns everything logged so far.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Read(l.bookRoot)
}

// Append writes entries to <bookRoot>/logs/audit.csv, creating the file and
// header if needed.
func Append(bookRoot string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Join(bookRoot, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(bookRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <bookRoot>/logs/audit.csv, or nil if the
// file does not exist.
func Read(bookRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(bookRoot, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
