// Package importer reads bank exports into transactions for the book.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Parser converts a bank export into Transactions. Parsed transactions have
// no ID; the store assigns one.
type Parser interface {
	Parse(r io.Reader) ([]model.Transaction, error)
	Format() string
}

// Sink receives imported transactions.
type Sink interface {
	Add(txns ...model.Transaction) ([]model.Transaction, error)
	References() (map[string]bool, error)
}

// AccountSetter is implemented by parsers that stamp an account name on
// the rows they read.
type AccountSetter interface {
	SetAccount(name string)
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes an export file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Summary reports the outcome of one import.
type Summary struct {
	Parsed  int
	Added   int
	Skipped int // already present by reference
	FirstID int
	LastID  int
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names in order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(NewRaiffeisenParser())
	r.Register(&MT940Parser{})
	r.Register(&CamtParser{})
	return r
}

// Import parses r and adds every transaction whose reference the sink does
// not know yet.
func Import(p Parser, r io.Reader, sink Sink) (Summary, error) {
	txns, err := p.Parse(r)
	if err != nil {
		return Summary{}, fmt.Errorf("parsing %s export: %w", p.Format(), err)
	}

	known, err := sink.References()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Parsed: len(txns)}
	var fresh []model.Transaction
	for _, t := range txns {
		if t.Reference != "" && known[t.Reference] {
			sum.Skipped++
			continue
		}
		known[t.Reference] = true
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return sum, nil
	}

	added, err := sink.Add(fresh...)
	if err != nil {
		return Summary{}, fmt.Errorf("adding transactions: %w", err)
	}
	sum.Added = len(added)
	sum.FirstID = added[0].ID
	sum.LastID = added[len(added)-1].ID
	return sum, nil
}

// ImportFile opens path and imports it.
func ImportFile(p Parser, path string, sink Sink) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Import(p, f, sink)
}

// importDir is the subdirectory for bank exports.
const importDir = "import"

// processedDir is the subdirectory for processed exports.
const processedDir = "import/processed"

// importExtensions are the file kinds Scan picks up.
var importExtensions = []string{".csv", ".sta", ".mt940", ".940", ".xml"}

// Scan returns the bank exports in <bookRoot>/import/.
func Scan(bookRoot string) ([]FileInfo, error) {
	dir := filepath.Join(bookRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(importExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(bookRoot, fileName string) error {
	dstDir := filepath.Join(bookRoot, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(bookRoot, importDir, fileName)
	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
