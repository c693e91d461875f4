// Package suggest proposes a category for a transaction description from
// rules learned on earlier splits.
package suggest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Threshold is the minimum fuzzy score (0-100) for a rule to apply.
const Threshold = 85

// Rule maps a description pattern to a category.
type Rule struct {
	Pattern     string
	CategoryID  int
	HitCount    int
	LastApplied time.Time // zero until first hit
}

// Suggestion is the category proposed for a description. When the rule's
// category is a subcategory, CategoryID is its parent.
type Suggestion struct {
	CategoryID      int    `json:"category_id"`
	CategoryName    string `json:"category_name"`
	SubcategoryID   int    `json:"subcategory_id,omitempty"`
	SubcategoryName string `json:"subcategory_name,omitempty"`
	Pattern         string `json:"pattern"`
	Score           int    `json:"score"`
}

// CategoryLookup resolves category IDs.
type CategoryLookup interface {
	Get(id int) (model.Category, bool)
}

// Service reads and updates rules/rules.csv.
type Service struct {
	bookRoot string
	cats     CategoryLookup
	now      func() time.Time

	mu sync.Mutex
}

// NewService creates a suggestion Service.
func NewService(bookRoot string, cats CategoryLookup) *Service {
	return &Service{bookRoot: bookRoot, cats: cats, now: time.Now}
}

// Path returns the location of rules.csv inside a book.
func Path(bookRoot string) string {
	return filepath.Join(bookRoot, "rules", "rules.csv")
}

// Score is the similarity of a and b on a 0-100 scale.
func Score(a, b string) int {
	a, b = strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(100 * (1 - float64(dist)/float64(longest)))
}

// Suggest returns the category for description. An exact pattern wins;
// otherwise the best fuzzy match at or above Threshold. The applied rule's
// hit count is incremented.
func (s *Service) Suggest(description string) (Suggestion, bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Suggestion{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.read()
	if err != nil {
		return Suggestion{}, false, err
	}

	best, bestScore := -1, -1
	for i, r := range rules {
		if r.Pattern == description {
			best, bestScore = i, 100
			break
		}
		if sc := Score(description, r.Pattern); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	if best < 0 || bestScore < Threshold {
		return Suggestion{}, false, nil
	}

	rule := rules[best]
	sug, ok := s.describe(rule)
	if !ok {
		return Suggestion{}, false, nil
	}
	sug.Score = bestScore

	rules[best].HitCount++
	rules[best].LastApplied = s.now().UTC()
	if err := s.write(rules); err != nil {
		return Suggestion{}, false, err
	}
	return sug, true, nil
}

// Learn records that description was booked against categoryID, replacing
// any earlier rule with the same pattern.
func (s *Service) Learn(description string, categoryID int) error {
	description = strings.TrimSpace(description)
	if description == "" || categoryID == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.read()
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].Pattern == description {
			if rules[i].CategoryID == categoryID {
				return nil
			}
			rules[i].CategoryID = categoryID
			return s.write(rules)
		}
	}
	return s.write(append(rules, Rule{Pattern: description, CategoryID: categoryID}))
}

// Rules returns every stored rule.
func (s *Service) Rules() ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Service) describe(r Rule) (Suggestion, bool) {
	c, ok := s.cats.Get(r.CategoryID)
	if !ok {
		return Suggestion{}, false
	}
	sug := Suggestion{CategoryID: c.ID, CategoryName: c.Name, Pattern: r.Pattern}
	if c.IsRoot() {
		return sug, true
	}
	if parent, ok := s.cats.Get(c.ParentID); ok {
		sug = Suggestion{
			CategoryID:      parent.ID,
			CategoryName:    parent.Name,
			SubcategoryID:   c.ID,
			SubcategoryName: c.Name,
			Pattern:         r.Pattern,
		}
	}
	return sug, true
}

var header = []string{"pattern", "category_id", "hit_count", "last_applied_at"}

const numFields = 4

func (s *Service) read() ([]Rule, error) {
	f, err := os.Open(Path(s.bookRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return readRules(f)
}

func readRules(r io.Reader) ([]Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rules CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rules := make([]Rule, 0, len(records)-1)
	for i, rec := range records[1:] {
		catID, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing category_id %q: %w", i+2, rec[1], err)
		}
		hits, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing hit_count %q: %w", i+2, rec[2], err)
		}
		var last time.Time
		if rec[3] != "" {
			last, err = time.Parse(time.RFC3339, rec[3])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing last_applied_at %q: %w", i+2, rec[3], err)
			}
		}
		rules = append(rules, Rule{Pattern: rec[0], CategoryID: catID, HitCount: hits, LastApplied: last})
	}
	return rules, nil
}

func (s *Service) write(rules []Rule) error {
	path := Path(s.bookRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating rules file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rules {
		last := ""
		if !r.LastApplied.IsZero() {
			last = r.LastApplied.Format(time.RFC3339)
		}
		if err := cw.Write([]string{r.Pattern, strconv.Itoa(r.CategoryID), strconv.Itoa(r.HitCount), last}); err != nil {
			return fmt.Errorf("writing rule %q: %w", r.Pattern, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
