package model

// Category is a node in the two-level category tree. Subcategories point at
// their parent through ParentID; top-level categories have ParentID 0.
type Category struct {
	ID          int
	Name        string
	ParentID    int // 0 = top-level
	Description string
	FundManaged bool // balance tracked as a fund (envelope)
	Budgeted    bool
	GoalLinked  bool
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == 0
}

// Descriptor is the typed shape of a category handed to selection controls.
type Descriptor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Parent      int    `json:"parent,omitempty"`
	FundManaged bool   `json:"is_fund_managed"`
	Budgeted    bool   `json:"is_budgeted"`
	GoalLinked  bool   `json:"is_goal_linked"`
}

// Descriptor converts a Category for serialization.
func (c Category) Descriptor() Descriptor {
	return Descriptor{
		ID:          c.ID,
		Name:        c.Name,
		Parent:      c.ParentID,
		FundManaged: c.FundManaged,
		Budgeted:    c.Budgeted,
		GoalLinked:  c.GoalLinked,
	}
}
