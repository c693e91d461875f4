package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/budgetbox/budgetbox/internal/model"
)

// Columns read by ImportNames.
const (
	NameColumn   = "name"
	ParentColumn = "parent_name"
)

// NameImport reports the outcome of ImportNames. Rows listed in Errors
// were skipped; the others were applied.
type NameImport struct {
	Created int
	Updated int
	Errors  []string
}

// ImportNames reads a CSV with a name column and an optional parent_name
// column. Categories are matched by name, case-insensitively. A missing
// category is created; a missing parent is created as a root. The tree stays
// two levels deep, so a parent must be a root and a category that has
// subcategories cannot be moved under another one.
func (s *Service) ImportNames(r io.Reader) (NameImport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NameImport{}, nil
	}
	if err != nil {
		return NameImport{}, fmt.Errorf("reading header: %w", err)
	}
	nameCol, parentCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case NameColumn:
			nameCol = i
		case ParentColumn:
			parentCol = i
		}
	}
	if nameCol < 0 {
		return NameImport{}, fmt.Errorf("missing %q column", NameColumn)
	}

	var res NameImport
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("row %d: %w", row, err)
		}

		name := field(rec, nameCol)
		parent := field(rec, parentCol)
		if name == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: name is required", row))
			continue
		}
		if err := s.importName(name, parent, &res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", row, name, err))
		}
	}
	return res, nil
}

func (s *Service) importName(name, parent string, res *NameImport) error {
	if parent != "" && strings.EqualFold(name, parent) {
		return errors.New("category cannot be its own parent")
	}

	c, found := s.byName(name)
	if parent == "" {
		if !found {
			s.put(model.Category{ID: s.nextID(), Name: name})
			res.Created++
		} else {
			res.Updated++
		}
		return nil
	}

	p, ok := s.byName(parent)
	if ok && !p.IsRoot() {
		return fmt.Errorf("parent %q is itself a subcategory", parent)
	}
	if found && len(s.Children(c.ID)) > 0 && c.ParentID != p.ID {
		return errors.New("has subcategories and cannot be moved")
	}
	if !ok {
		p = model.Category{ID: s.nextID(), Name: parent}
		s.put(p)
		res.Created++
	}

	if !found {
		s.put(model.Category{ID: s.nextID(), Name: name, ParentID: p.ID})
		res.Created++
		return nil
	}
	c.ParentID = p.ID
	s.put(c)
	res.Updated++
	return nil
}

func (s *Service) byName(name string) (model.Category, bool) {
	for _, c := range s.cats {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return model.Category{}, false
}

func (s *Service) nextID() int {
	next := 1
	for _, c := range s.cats {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next
}

// put inserts c or replaces the category with the same ID.
func (s *Service) put(c model.Category) {
	s.byID[c.ID] = c
	for i := range s.cats {
		if s.cats[i].ID == c.ID {
			s.cats[i] = c
			return
		}
	}
	s.cats = append(s.cats, c)
}

func field(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}
