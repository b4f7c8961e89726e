package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
)

// BillFilter selects bills.
type BillFilter struct {
	BasicFilter
}

// BudgetFilter selects budgets.
type BudgetFilter struct {
	BasicFilter
}

// LabelFilter selects labels.
type LabelFilter struct {
	BasicFilter
}

// CategoryFilter selects categories. Titles are "group: single".
type CategoryFilter struct {
	BasicFilter
	GroupFilter
}

// TagFilter selects tags. Titles are "group: single".
type TagFilter struct {
	BasicFilter
	GroupFilter
}

var (
	billHandler   = basicHandler(func(f *BillFilter) *BasicFilter { return &f.BasicFilter })
	budgetHandler = basicHandler(func(f *BudgetFilter) *BasicFilter { return &f.BasicFilter })
	labelHandler  = basicHandler(func(f *LabelFilter) *BasicFilter { return &f.BasicFilter })

	categoryHandler = basicHandler(
		func(f *CategoryFilter) *BasicFilter { return &f.BasicFilter },
		groupRules(func(f *CategoryFilter) *GroupFilter { return &f.GroupFilter }),
	)
	tagHandler = basicHandler(
		func(f *TagFilter) *BasicFilter { return &f.BasicFilter },
		groupRules(func(f *TagFilter) *GroupFilter { return &f.GroupFilter }),
	)
)

// ProcessBillTextFilter folds the text filter into structured fields.
func ProcessBillTextFilter(f BillFilter) BillFilter { return billHandler.Process(f) }

// ProcessBudgetTextFilter folds the text filter into structured fields.
func ProcessBudgetTextFilter(f BudgetFilter) BudgetFilter { return budgetHandler.Process(f) }

// ProcessLabelTextFilter folds the text filter into structured fields.
func ProcessLabelTextFilter(f LabelFilter) LabelFilter { return labelHandler.Process(f) }

// ProcessCategoryTextFilter folds the text filter into structured fields.
func ProcessCategoryTextFilter(f CategoryFilter) CategoryFilter { return categoryHandler.Process(f) }

// ProcessTagTextFilter folds the text filter into structured fields.
func ProcessTagTextFilter(f TagFilter) TagFilter { return tagHandler.Process(f) }

func basicQuery(e Entity, target Target, b BasicFilter, extra ...func(*sqlq.Builder, sqlq.Relation)) []sqlq.Fragment {
	rel := Relation(e, target)
	var q sqlq.Builder
	b.query(&q, rel)
	for _, fn := range extra {
		fn(&q, rel)
	}
	return q.Fragments()
}

// BillFilterToQuery compiles a bill filter into predicate fragments.
func BillFilterToQuery(f BillFilter, target Target) []sqlq.Fragment {
	return basicQuery(EntityBill, target, ProcessBillTextFilter(f).BasicFilter)
}

// BudgetFilterToQuery compiles a budget filter into predicate fragments.
func BudgetFilterToQuery(f BudgetFilter, target Target) []sqlq.Fragment {
	return basicQuery(EntityBudget, target, ProcessBudgetTextFilter(f).BasicFilter)
}

// LabelFilterToQuery compiles a label filter into predicate fragments.
func LabelFilterToQuery(f LabelFilter, target Target) []sqlq.Fragment {
	return basicQuery(EntityLabel, target, ProcessLabelTextFilter(f).BasicFilter)
}

// CategoryFilterToQuery compiles a category filter into predicate fragments.
func CategoryFilterToQuery(f CategoryFilter, target Target) []sqlq.Fragment {
	f = ProcessCategoryTextFilter(f)
	return basicQuery(EntityCategory, target, f.BasicFilter, f.GroupFilter.query)
}

// TagFilterToQuery compiles a tag filter into predicate fragments.
func TagFilterToQuery(f TagFilter, target Target) []sqlq.Fragment {
	f = ProcessTagTextFilter(f)
	return basicQuery(EntityTag, target, f.BasicFilter, f.GroupFilter.query)
}

// BillFilterToText describes a bill filter.
func BillFilterToText(ctx context.Context, lookup TitleLookup, f BillFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeBill(d, f) })
}

// BudgetFilterToText describes a budget filter.
func BudgetFilterToText(ctx context.Context, lookup TitleLookup, f BudgetFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeBudget(d, f) })
}

// LabelFilterToText describes a label filter.
func LabelFilterToText(ctx context.Context, lookup TitleLookup, f LabelFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeLabel(d, f) })
}

// CategoryFilterToText describes a category filter.
func CategoryFilterToText(ctx context.Context, lookup TitleLookup, f CategoryFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeCategory(d, f) })
}

// TagFilterToText describes a tag filter.
func TagFilterToText(ctx context.Context, lookup TitleLookup, f TagFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeTag(d, f) })
}

func describeBill(d *describer, f BillFilter) {
	ProcessBillTextFilter(f).BasicFilter.text(d, EntityBill)
}

func describeBudget(d *describer, f BudgetFilter) {
	ProcessBudgetTextFilter(f).BasicFilter.text(d, EntityBudget)
}

func describeLabel(d *describer, f LabelFilter) {
	ProcessLabelTextFilter(f).BasicFilter.text(d, EntityLabel)
}

func describeCategory(d *describer, f CategoryFilter) {
	f = ProcessCategoryTextFilter(f)
	f.BasicFilter.text(d, EntityCategory)
	f.GroupFilter.text(d)
}

func describeTag(d *describer, f TagFilter) {
	f = ProcessTagTextFilter(f)
	f.BasicFilter.text(d, EntityTag)
	f.GroupFilter.text(d)
}
