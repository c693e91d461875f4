package funds

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/id"
	"github.com/budgetbox/budgetbox/internal/model"
)

// Line is one category amount within a record.
type Line struct {
	Index      int
	CategoryID int
	Amount     decimal.Decimal
	Notes      string
}

// Record is one allocation or debit operation against a transaction.
type Record struct {
	Kind          model.MovementKind
	Date          time.Time
	TransactionID int
	Target        decimal.Decimal // transaction magnitude; lines may not exceed it
	Lines         []Line
}

// Balance is the running total of one fund.
type Balance struct {
	CategoryID int
	Allocated  decimal.Decimal
	Debited    decimal.Decimal
	Balance    decimal.Decimal
}

// Service posts records to the fund ledger.
type Service struct {
	bookRoot  string
	cats      CategoryLookup
	tolerance decimal.Decimal

	mu sync.Mutex
}

// NewService creates a fund ledger Service.
func NewService(bookRoot string, cats CategoryLookup, tolerance decimal.Decimal) *Service {
	return &Service{bookRoot: bookRoot, cats: cats, tolerance: tolerance}
}

// Path returns the location of movements.csv inside a book.
func Path(bookRoot string) string {
	return filepath.Join(bookRoot, "funds", "movements.csv")
}

// Post validates rec and appends its movements. Returns the record ID.
// Rejections are returned as ValidationErrors.
func (s *Service) Post(rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readAll()
	if err != nil {
		return "", err
	}

	if verrs := ValidateRecord(rec, existing, s.cats, s.tolerance); len(verrs) > 0 {
		return "", ValidationErrors(verrs)
	}

	prefix := id.PrefixAllocation
	if rec.Kind == model.MovementDebit {
		prefix = id.PrefixDebit
	}
	year, month := rec.Date.Year(), int(rec.Date.Month())
	recordID := id.FormatRecordID(prefix, year, month, nextSeq(existing, prefix, year, month))

	rows := make([]model.FundMovement, len(rec.Lines))
	for i, l := range rec.Lines {
		rows[i] = model.FundMovement{
			RecordID:      recordID,
			Date:          rec.Date,
			TransactionID: rec.TransactionID,
			CategoryID:    l.CategoryID,
			Kind:          rec.Kind,
			Amount:        l.Amount,
			Notes:         l.Notes,
		}
	}

	path := Path(s.bookRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating funds dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening movements: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return "", fmt.Errorf("writing header: %w", err)
		}
	}
	if err := AppendMovements(f, rows); err != nil {
		return "", fmt.Errorf("appending movements: %w", err)
	}
	return recordID, nil
}

// Movements returns every ledger row in file order.
func (s *Service) Movements() ([]model.FundMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// HasRecord reports whether the transaction already has a record of kind.
func (s *Service) HasRecord(txID int, kind model.MovementKind) (bool, error) {
	ms, err := s.Movements()
	if err != nil {
		return false, err
	}
	for _, m := range ms {
		if m.TransactionID == txID && m.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// Balances sums the ledger per fund, ordered by category ID. Allocations add
// to a fund and debits subtract from it.
func (s *Service) Balances() ([]Balance, error) {
	ms, err := s.Movements()
	if err != nil {
		return nil, err
	}

	byCat := make(map[int]*Balance)
	for _, m := range ms {
		b, ok := byCat[m.CategoryID]
		if !ok {
			b = &Balance{CategoryID: m.CategoryID}
			byCat[m.CategoryID] = b
		}
		if m.Kind == model.MovementDebit {
			b.Debited = b.Debited.Add(m.Amount)
		} else {
			b.Allocated = b.Allocated.Add(m.Amount)
		}
		b.Balance = b.Balance.Add(m.Signed())
	}

	out := make([]Balance, 0, len(byCat))
	for _, b := range byCat {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Service) readAll() ([]model.FundMovement, error) {
	path := Path(s.bookRoot)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening movements %s: %w", path, err)
	}
	defer f.Close()

	ms, err := ReadMovements(f)
	if err != nil {
		return nil, fmt.Errorf("reading movements %s: %w", path, err)
	}
	return ms, nil
}

func nextSeq(existing []model.FundMovement, prefix string, year, month int) int {
	maxSeq := 0
	for _, m := range existing {
		p, y, mo, seq, err := id.ParseRecordID(m.RecordID)
		if err != nil || p != prefix || y != year || mo != month {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
