package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// AssociatedInfoFilter selects the records that attach files and notes to
// other entities.
type AssociatedInfoFilter struct {
	TextFilter string `json:"textFilter,omitempty"`
	IDTitleFilter
	LinkFilter
	AccountIDArray         []string `json:"accountIdArray,omitempty"`
	ExcludeAccountIDArray  []string `json:"excludeAccountIdArray,omitempty"`
	BillIDArray            []string `json:"billIdArray,omitempty"`
	ExcludeBillIDArray     []string `json:"excludeBillIdArray,omitempty"`
	BudgetIDArray          []string `json:"budgetIdArray,omitempty"`
	ExcludeBudgetIDArray   []string `json:"excludeBudgetIdArray,omitempty"`
	CategoryIDArray        []string `json:"categoryIdArray,omitempty"`
	ExcludeCategoryIDArray []string `json:"excludeCategoryIdArray,omitempty"`
	TagIDArray             []string `json:"tagIdArray,omitempty"`
	ExcludeTagIDArray      []string `json:"excludeTagIdArray,omitempty"`
	LabelIDArray           []string `json:"labelIdArray,omitempty"`
	ExcludeLabelIDArray    []string `json:"excludeLabelIdArray,omitempty"`
	JournalIDArray         []string `json:"journalIdArray,omitempty"`
	ExcludeJournalIDArray  []string `json:"excludeJournalIdArray,omitempty"`
}

type linkedEntity struct {
	entity  Entity
	name    string
	ids     func(*AssociatedInfoFilter) *[]string
	exclude func(*AssociatedInfoFilter) *[]string
}

var associatedEntities = []linkedEntity{
	{EntityAccount, "Account",
		func(f *AssociatedInfoFilter) *[]string { return &f.AccountIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeAccountIDArray }},
	{EntityBill, "Bill",
		func(f *AssociatedInfoFilter) *[]string { return &f.BillIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeBillIDArray }},
	{EntityBudget, "Budget",
		func(f *AssociatedInfoFilter) *[]string { return &f.BudgetIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeBudgetIDArray }},
	{EntityCategory, "Category",
		func(f *AssociatedInfoFilter) *[]string { return &f.CategoryIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeCategoryIDArray }},
	{EntityTag, "Tag",
		func(f *AssociatedInfoFilter) *[]string { return &f.TagIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeTagIDArray }},
	{EntityLabel, "Label",
		func(f *AssociatedInfoFilter) *[]string { return &f.LabelIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeLabelIDArray }},
	{EntityJournal, "Journal",
		func(f *AssociatedInfoFilter) *[]string { return &f.JournalIDArray },
		func(f *AssociatedInfoFilter) *[]string { return &f.ExcludeJournalIDArray }},
}

func associatedRules() []textfilter.Rule[AssociatedInfoFilter] {
	rules := make([]textfilter.Rule[AssociatedInfoFilter], 0, 2*len(associatedEntities))
	for _, le := range associatedEntities {
		ids, exclude := le.ids, le.exclude
		key := string(le.entity)
		rules = append(rules,
			textfilter.Rule[AssociatedInfoFilter]{
				Keys:   []string{key + "id:", key + ":"},
				Update: func(f *AssociatedInfoFilter, v string) { textfilter.AddToArray(ids(f), v) },
			},
			textfilter.Rule[AssociatedInfoFilter]{
				Keys:   []string{"!" + key + "id:", "!" + key + ":"},
				Update: func(f *AssociatedInfoFilter, v string) { textfilter.AddToArray(exclude(f), v) },
			},
		)
	}
	return rules
}

var associatedHandler = textfilter.NewHandler(
	func(f *AssociatedInfoFilter) *string { return &f.TextFilter },
	func(f *AssociatedInfoFilter, v string) { textfilter.AddToArray(&f.TitleArray, v) },
	func(f *AssociatedInfoFilter, v string) { textfilter.AddToArray(&f.ExcludeTitleArray, v) },
	idTitleRules(func(f *AssociatedInfoFilter) *IDTitleFilter { return &f.IDTitleFilter }),
	associatedRules(),
	linkRules(func(f *AssociatedInfoFilter) *LinkFilter { return &f.LinkFilter }),
)

// ProcessAssociatedInfoTextFilter folds the text filter into structured fields.
func ProcessAssociatedInfoTextFilter(f AssociatedInfoFilter) AssociatedInfoFilter {
	return associatedHandler.Process(f)
}

// AssociatedInfoFilterToQuery compiles an associated info filter into
// predicate fragments.
func AssociatedInfoFilterToQuery(f AssociatedInfoFilter, target Target) []sqlq.Fragment {
	f = ProcessAssociatedInfoTextFilter(f)
	rel := Relation(EntityAssociatedInfo, target)

	var q sqlq.Builder
	f.IDTitleFilter.query(&q, rel)
	for _, le := range associatedEntities {
		col := rel.Col(string(le.entity) + "_id")
		sqlq.In(&q, col, *le.ids(&f))
		sqlq.NotIn(&q, col, *le.exclude(&f))
	}
	f.LinkFilter.query(&q, rel)
	return q.Fragments()
}

// AssociatedInfoFilterToText describes an associated info filter.
func AssociatedInfoFilterToText(ctx context.Context, lookup TitleLookup, f AssociatedInfoFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) {
		f = ProcessAssociatedInfoTextFilter(f)
		f.IDTitleFilter.text(d, EntityAssociatedInfo)
		for _, le := range associatedEntities {
			d.ids(le.name, le.entity, *le.ids(&f), false)
			d.ids(le.name, le.entity, *le.exclude(&f), true)
		}
		f.LinkFilter.text(d)
	})
}
