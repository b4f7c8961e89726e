package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// QueryLogFilter selects recorded query executions. The title of a log row
// is the text filter that was run.
type QueryLogFilter struct {
	TextFilter string `json:"textFilter,omitempty"`
	IDTitleFilter
	EntityArray   []string `json:"entityArray,omitempty"`
	ContainsArray []string `json:"containsArray,omitempty"`
	After         string   `json:"after,omitempty"`
	Before        string   `json:"before,omitempty"`
	DurationMax   *float64 `json:"durationMax,omitempty"`
	DurationMin   *float64 `json:"durationMin,omitempty"`
	SizeMax       *float64 `json:"sizeMax,omitempty"`
	SizeMin       *float64 `json:"sizeMin,omitempty"`
}

var queryLogHandler = textfilter.NewHandler(
	func(f *QueryLogFilter) *string { return &f.TextFilter },
	func(f *QueryLogFilter, v string) { textfilter.AddToArray(&f.TitleArray, v) },
	func(f *QueryLogFilter, v string) { textfilter.AddToArray(&f.ExcludeTitleArray, v) },
	idTitleRules(func(f *QueryLogFilter) *IDTitleFilter { return &f.IDTitleFilter }),
	[]textfilter.Rule[QueryLogFilter]{
		{Keys: []string{"entity:"}, Update: func(f *QueryLogFilter, v string) { textfilter.AddToArray(&f.EntityArray, v) }},
		{Keys: []string{"contains:"}, Update: func(f *QueryLogFilter, v string) { textfilter.AddToArray(&f.ContainsArray, v) }},
		{Keys: []string{"after:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextDate(&f.After, v, textfilter.Max) }},
		{Keys: []string{"before:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextDate(&f.Before, v, textfilter.Min) }},
		{Keys: []string{"durationmax:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextNumber(&f.DurationMax, v, textfilter.Max) }},
		{Keys: []string{"durationmin:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextNumber(&f.DurationMin, v, textfilter.Min) }},
		{Keys: []string{"sizemax:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextNumber(&f.SizeMax, v, textfilter.Max) }},
		{Keys: []string{"sizemin:"}, Update: func(f *QueryLogFilter, v string) { textfilter.CompareTextNumber(&f.SizeMin, v, textfilter.Min) }},
	},
)

// ProcessQueryLogTextFilter folds the text filter into structured fields.
func ProcessQueryLogTextFilter(f QueryLogFilter) QueryLogFilter { return queryLogHandler.Process(f) }

// QueryLogFilterToQuery compiles a query log filter into predicate fragments.
func QueryLogFilterToQuery(f QueryLogFilter, target Target) []sqlq.Fragment {
	f = ProcessQueryLogTextFilter(f)
	rel := Relation(EntityQueryLog, target)

	var q sqlq.Builder
	f.IDTitleFilter.query(&q, rel)
	sqlq.In(&q, rel.Col("entity"), f.EntityArray)
	q.LikeAny(rel.Col("query_sql"), f.ContainsArray)
	q.CmpText("date("+rel.Col("time")+")", ">=", f.After)
	q.CmpText("date("+rel.Col("time")+")", "<=", f.Before)
	q.Cmp(rel.Col("duration_ms"), "<=", f.DurationMax)
	q.Cmp(rel.Col("duration_ms"), ">=", f.DurationMin)
	q.Cmp(rel.Col("row_count"), "<=", f.SizeMax)
	q.Cmp(rel.Col("row_count"), ">=", f.SizeMin)
	return q.Fragments()
}

// QueryLogFilterToText describes a query log filter.
func QueryLogFilterToText(ctx context.Context, lookup TitleLookup, f QueryLogFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) {
		f = ProcessQueryLogTextFilter(f)
		f.IDTitleFilter.text(d, EntityQueryLog)
		values(d, "Entity", f.EntityArray, false)
		values(d, "Query", f.ContainsArray, false)
		d.date("Time", "on or after", f.After)
		d.date("Time", "on or before", f.Before)
		d.number("Duration", "at most", f.DurationMax)
		d.number("Duration", "at least", f.DurationMin)
		d.number("Size", "at most", f.SizeMax)
		d.number("Size", "at least", f.SizeMin)
	})
}
