package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/budgetbox/budgetbox/internal/model"
)

var (
	// ErrUnknownCategory is returned when a reference names no category.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNotChild is returned when a subcategory does not belong to the
	// selected main category.
	ErrNotChild = errors.New("subcategory does not belong to main category")
)

// Filter narrows Descriptors. Zero value matches everything.
type Filter struct {
	FundManaged bool
	RootsOnly   bool
}

// Service provides in-memory lookup over the category tree.
type Service struct {
	cats []model.Category
	byID map[int]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(cats []model.Category) *Service {
	byID := make(map[int]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return &Service{cats: cats, byID: byID}
}

// Path returns the location of categories.csv inside a book.
func Path(bookRoot string) string {
	return filepath.Join(bookRoot, "categories", "categories.csv")
}

// Load reads categories.csv from a book root and returns a Service.
func Load(bookRoot string) (*Service, error) {
	f, err := os.Open(Path(bookRoot))
	if err != nil {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	return NewService(cats), nil
}

// Save writes the catalog to categories/categories.csv.
func (s *Service) Save(bookRoot string) error {
	path := Path(bookRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating categories file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}

// All returns every category.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by ID.
func (s *Service) Get(id int) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id int) bool {
	_, ok := s.byID[id]
	return ok
}

// Lookup resolves a form reference (a decimal category id).
func (s *Service) Lookup(ref string) (model.Category, error) {
	id, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil {
		return model.Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, ref)
	}
	c, ok := s.byID[id]
	if !ok {
		return model.Category{}, fmt.Errorf("%w: %d", ErrUnknownCategory, id)
	}
	return c, nil
}

// Roots returns the top-level categories.
func (s *Service) Roots() []model.Category {
	var out []model.Category
	for _, c := range s.cats {
		if c.IsRoot() {
			out = append(out, c)
		}
	}
	return out
}

// Children returns the direct subcategories of parent.
func (s *Service) Children(parent int) []model.Category {
	var out []model.Category
	for _, c := range s.cats {
		if c.ParentID == parent && parent != 0 {
			out = append(out, c)
		}
	}
	return out
}

// FundManaged returns the categories tracked as funds.
func (s *Service) FundManaged() []model.Category {
	var out []model.Category
	for _, c := range s.cats {
		if c.FundManaged {
			out = append(out, c)
		}
	}
	return out
}

// Descriptors returns the categories matching f in their serializable form.
func (s *Service) Descriptors(f Filter) []model.Descriptor {
	out := make([]model.Descriptor, 0, len(s.cats))
	for _, c := range s.cats {
		if f.FundManaged && !c.FundManaged {
			continue
		}
		if f.RootsOnly && !c.IsRoot() {
			continue
		}
		out = append(out, c.Descriptor())
	}
	return out
}

// ResolveFinal returns the category a split line is booked against: the
// subcategory when given, else the main category. A subcategory must be a
// child of main.
func (s *Service) ResolveFinal(main, sub string) (model.Category, error) {
	m, err := s.Lookup(main)
	if err != nil {
		return model.Category{}, err
	}
	if strings.TrimSpace(sub) == "" {
		return m, nil
	}
	c, err := s.Lookup(sub)
	if err != nil {
		return model.Category{}, err
	}
	if c.ParentID != m.ID {
		return model.Category{}, fmt.Errorf("%w: %s is not under %s", ErrNotChild, c.Name, m.Name)
	}
	return c, nil
}
