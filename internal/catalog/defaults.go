package catalog

import "github.com/budgetbox/budgetbox/internal/model"

// DefaultCatalog returns the starter category tree written by init.
func DefaultCatalog() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Income"},
		{ID: 10, Name: "Salary", ParentID: 1},
		{ID: 11, Name: "Other Income", ParentID: 1},
		{ID: 2, Name: "Housing"},
		{ID: 20, Name: "Rent", ParentID: 2, Budgeted: true},
		{ID: 21, Name: "Utilities", ParentID: 2, Budgeted: true},
		{ID: 3, Name: "Food"},
		{ID: 30, Name: "Groceries", ParentID: 3, Budgeted: true},
		{ID: 31, Name: "Restaurants", ParentID: 3, Budgeted: true},
		{ID: 4, Name: "Transport"},
		{ID: 40, Name: "Fuel", ParentID: 4, Budgeted: true},
		{ID: 41, Name: "Public Transport", ParentID: 4, Budgeted: true},
		{ID: 5, Name: "Funds", Description: "Money set aside for later"},
		{ID: 50, Name: "Emergency Fund", ParentID: 5, FundManaged: true},
		{ID: 51, Name: "Vacation", ParentID: 5, FundManaged: true, GoalLinked: true},
		{ID: 52, Name: "Car Maintenance", ParentID: 5, FundManaged: true, Budgeted: true},
	}
}
