// Package transactions persists the transaction book and splits
// transactions into categorized children.
package transactions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/budgetbox/budgetbox/internal/model"
)

var (
	// ErrNotFound is returned for an unknown transaction ID.
	ErrNotFound = errors.New("transaction not found")
	// ErrSplitMismatch is returned when split parts do not add up to the
	// original amount.
	ErrSplitMismatch = errors.New("split amounts do not match transaction amount")
)

// Part is one child of a split. Amount is a magnitude; the child's sign
// follows the original's type.
type Part struct {
	CategoryID  int
	Amount      decimal.Decimal
	Description string
}

// Store reads and writes transactions/transactions.csv.
type Store struct {
	bookRoot  string
	tolerance decimal.Decimal

	mu sync.Mutex
}

// NewStore creates a Store rooted at a book directory.
func NewStore(bookRoot string, tolerance decimal.Decimal) *Store {
	return &Store{bookRoot: bookRoot, tolerance: tolerance}
}

// Path returns the location of transactions.csv inside a book.
func Path(bookRoot string) string {
	return filepath.Join(bookRoot, "transactions", "transactions.csv")
}

// All returns every transaction in file order.
func (s *Store) All() ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns one transaction.
func (s *Store) Get(id int) (model.Transaction, error) {
	txns, err := s.All()
	if err != nil {
		return model.Transaction{}, err
	}
	for _, t := range txns {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Transaction{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Add appends transactions, assigning sequential IDs. The returned slice
// carries the assigned IDs.
func (s *Store) Add(txns ...model.Transaction) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return nil, err
	}
	next := maxID(existing) + 1
	added := make([]model.Transaction, len(txns))
	for i, t := range txns {
		t.ID = next
		next++
		added[i] = t
	}
	if err := s.write(append(existing, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// References returns the import references present in the book. Split
// children report their original's reference.
func (s *Store) References() (map[string]bool, error) {
	txns, err := s.All()
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(txns))
	for _, t := range txns {
		if t.Reference == "" {
			continue
		}
		base, _, _ := strings.Cut(t.Reference, "#")
		refs[base] = true
	}
	return refs, nil
}

// Split replaces the original transaction with one child per part. Children
// inherit date, type and account. The parts must add up to the original's
// magnitude within the store's tolerance.
func (s *Store) Split(originalID int, parts []Part) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns, err := s.read()
	if err != nil {
		return nil, err
	}

	pos := -1
	for i, t := range txns {
		if t.ID == originalID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, originalID)
	}
	orig := txns[pos]

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts", ErrSplitMismatch)
	}
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p.Amount.Abs())
	}
	if total.Sub(orig.Magnitude()).Abs().GreaterThan(s.tolerance) {
		return nil, fmt.Errorf("%w: parts total %s, transaction %s",
			ErrSplitMismatch, total.StringFixed(2), orig.Magnitude().StringFixed(2))
	}

	next := maxID(txns) + 1
	children := make([]model.Transaction, len(parts))
	for i, p := range parts {
		desc := p.Description
		if desc == "" {
			desc = orig.Description
		}
		ref := ""
		if orig.Reference != "" {
			ref = orig.Reference + "#" + strconv.Itoa(i+1)
		}
		children[i] = model.Transaction{
			ID:          next + i,
			Date:        orig.Date,
			Description: desc,
			Amount:      model.SignFor(orig.Type, p.Amount),
			Type:        orig.Type,
			CategoryID:  p.CategoryID,
			Account:     orig.Account,
			Reference:   ref,
		}
	}

	out := make([]model.Transaction, 0, len(txns)-1+len(children))
	out = append(out, txns[:pos]...)
	out = append(out, children...)
	out = append(out, txns[pos+1:]...)
	if err := s.write(out); err != nil {
		return nil, err
	}
	return children, nil
}

func (s *Store) read() ([]model.Transaction, error) {
	path := Path(s.bookRoot)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening transactions %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading transactions %s: %w", path, err)
	}
	return txns, nil
}

// write replaces the file through a temp file so a failed write never
// truncates the book.
func (s *Store) write(txns []model.Transaction) error {
	path := Path(s.bookRoot)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating transactions dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".transactions-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteTransactions(tmp, txns); err != nil {
		tmp.Close()
		return fmt.Errorf("writing transactions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing transactions: %w", err)
	}
	return nil
}

func maxID(txns []model.Transaction) int {
	m := 0
	for _, t := range txns {
		if t.ID > m {
			m = t.ID
		}
	}
	return m
}
