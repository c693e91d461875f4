package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/budgetbox/budgetbox/internal/model"
)

const (
	numFields   = 7
	colID       = 0
	colName     = 1
	colParent   = 2
	colDesc     = 3
	colFund     = 4
	colBudgeted = 5
	colGoal     = 6
)

// Header is the first row of categories.csv.
var Header = []string{"category_id", "name", "parent_id", "description", "is_fund_managed", "is_budgeted", "is_goal_linked"}

// ReadCategories reads categories.csv.
func ReadCategories(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var cats []model.Category
	for i, rec := range records[1:] {
		c, err := UnmarshalCategory(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// WriteCategories writes categories.csv.
func WriteCategories(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range cats {
		if err := cw.Write(MarshalCategory(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c model.Category) []string {
	row := make([]string, numFields)
	row[colID] = strconv.Itoa(c.ID)
	row[colName] = c.Name
	if c.ParentID != 0 {
		row[colParent] = strconv.Itoa(c.ParentID)
	}
	row[colDesc] = c.Description
	row[colFund] = strconv.FormatBool(c.FundManaged)
	row[colBudgeted] = strconv.FormatBool(c.Budgeted)
	row[colGoal] = strconv.FormatBool(c.GoalLinked)
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (model.Category, error) {
	if len(record) != numFields {
		return model.Category{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.Atoi(record[colID])
	if err != nil {
		return model.Category{}, fmt.Errorf("parsing category_id %q: %w", record[colID], err)
	}

	var parentID int
	if record[colParent] != "" {
		parentID, err = strconv.Atoi(record[colParent])
		if err != nil {
			return model.Category{}, fmt.Errorf("parsing parent_id %q: %w", record[colParent], err)
		}
	}

	flags := make([]bool, 3)
	for i, col := range []int{colFund, colBudgeted, colGoal} {
		if record[col] == "" {
			continue
		}
		flags[i], err = strconv.ParseBool(record[col])
		if err != nil {
			return model.Category{}, fmt.Errorf("parsing %s %q: %w", Header[col], record[col], err)
		}
	}

	return model.Category{
		ID:          id,
		Name:        record[colName],
		ParentID:    parentID,
		Description: record[colDesc],
		FundManaged: flags[0],
		Budgeted:    flags[1],
		GoalLinked:  flags[2],
	}, nil
}
