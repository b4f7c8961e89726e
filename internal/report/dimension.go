package report

import (
	"fmt"
	"strings"
)

// Dimension is a journal grouping used by single, grouped and time keys.
type Dimension string

const (
	DimNone          Dimension = "none"
	DimAccount       Dimension = "account"
	DimAccountGroup  Dimension = "accountGroup"
	DimAccountType   Dimension = "accountType"
	DimTag           Dimension = "tag"
	DimTagGroup      Dimension = "tagGroup"
	DimCategory      Dimension = "category"
	DimCategoryGroup Dimension = "categoryGroup"
	DimBill          Dimension = "bill"
	DimBudget        Dimension = "budget"
	DimPayee         Dimension = "payee"
)

// AllTitle is the group title of an ungrouped result.
const AllTitle = "All"

type dimension struct {
	column     string
	emptyTitle string
}

var dimensions = map[Dimension]dimension{
	DimNone:          {"", AllTitle},
	DimAccount:       {"account_title", "No Account"},
	DimAccountGroup:  {"account_group", "Ungrouped"},
	DimAccountType:   {"account_type", "No Type"},
	DimTag:           {"tag_title", "No Tag"},
	DimTagGroup:      {"tag_group", "Ungrouped"},
	DimCategory:      {"category_title", "No Category"},
	DimCategoryGroup: {"category_group", "Ungrouped"},
	DimBill:          {"bill_title", "No Bill"},
	DimBudget:        {"budget_title", "No Budget"},
	DimPayee:         {"payee_title", "No Payee"},
}

// ParseDimension returns the dimension named s, case-insensitively. An empty
// name is DimNone.
func ParseDimension(s string) (Dimension, error) {
	if s == "" {
		return DimNone, nil
	}
	for d := range dimensions {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// EmptyTitle is the title given to rows without a value for d.
func (d Dimension) EmptyTitle() string {
	if info, ok := dimensions[d]; ok {
		return info.emptyTitle
	}
	return AllTitle
}

func (d Dimension) column() string {
	return dimensions[d].column
}

// title maps a raw grouping value to its display title.
func (d Dimension) title(raw string) string {
	if d == DimNone || d == "" {
		return AllTitle
	}
	if strings.TrimSpace(raw) == "" {
		return d.EmptyTitle()
	}
	return raw
}
