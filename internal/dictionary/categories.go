package dictionary

import "github.com/splitkhata/splitkhata/internal/split"

// CategoryDef is one curated expense category exposed to clients.
type CategoryDef struct {
	Code  split.Category `json:"code"`
	Label string         `json:"label"`
}

var curated = []CategoryDef{
	{Code: split.CategoryUncategorized, Label: "Uncategorized"},
	{Code: split.CategoryGeneral, Label: "General"},
	{Code: split.CategoryEatingOut, Label: "Eating Out"},
	{Code: split.CategoryGroceries, Label: "Groceries"},
	{Code: split.CategoryTransport, Label: "Transport"},
	{Code: split.CategoryShopping, Label: "Shopping"},
	{Code: split.CategoryEntertainment, Label: "Entertainment"},
	{Code: split.CategoryBills, Label: "Bills"},
	{Code: split.CategoryRent, Label: "Rent"},
	{Code: split.CategoryTravel, Label: "Travel"},
	{Code: split.CategoryOther, Label: "Other"},
}

// Categories returns the curated category list.
func Categories() []CategoryDef {
	out := make([]CategoryDef, len(curated))
	copy(out, curated)
	return out
}

// IsKnown reports whether c is one of the curated categories.
func IsKnown(c split.Category) bool {
	for _, def := range curated {
		if def.Code == c {
			return true
		}
	}
	return false
}
