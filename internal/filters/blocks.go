package filters

import (
	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// IDTitleFilter constrains rows by id and by case-insensitive title match.
type IDTitleFilter struct {
	IDArray           []string `json:"idArray,omitempty"`
	ExcludeIDArray    []string `json:"excludeIdArray,omitempty"`
	TitleArray        []string `json:"titleArray,omitempty"`
	ExcludeTitleArray []string `json:"excludeTitleArray,omitempty"`
}

func idTitleRules[F any](get func(*F) *IDTitleFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"id:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).IDArray, v) }},
		{Keys: []string{"!id:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeIDArray, v) }},
		{Keys: []string{"title:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).TitleArray, v) }},
		{Keys: []string{"!title:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeTitleArray, v) }},
	}
}

func (b IDTitleFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	sqlq.In(q, rel.Col("id"), b.IDArray)
	sqlq.NotIn(q, rel.Col("id"), b.ExcludeIDArray)
	q.LikeAny(rel.Col("title"), b.TitleArray)
	q.NotLikeAny(rel.Col("title"), b.ExcludeTitleArray)
}

func (b IDTitleFilter) text(d *describer, e Entity) {
	d.ids("", e, b.IDArray, false)
	d.ids("", e, b.ExcludeIDArray, true)
	values(d, "Title", b.TitleArray, false)
	values(d, "Title", b.ExcludeTitleArray, true)
}

// StatusValue is the lifecycle status of an entity.
type StatusValue string

const (
	StatusActive   StatusValue = "active"
	StatusDisabled StatusValue = "disabled"
)

// Statuses lists every valid status.
var Statuses = []StatusValue{StatusActive, StatusDisabled}

// StatusFilter constrains rows by status and the derived status flags.
type StatusFilter struct {
	Status             StatusValue   `json:"status,omitempty"`
	StatusArray        []StatusValue `json:"statusArray,omitempty"`
	ExcludeStatusArray []StatusValue `json:"excludeStatusArray,omitempty"`
	Disabled           *bool         `json:"disabled,omitempty"`
	AllowUpdate        *bool         `json:"allowUpdate,omitempty"`
	Active             *bool         `json:"active,omitempty"`
}

func statusRules[F any](get func(*F) *StatusFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"status:"}, Update: func(f *F, v string) { textfilter.AddEnumToArray(&get(f).StatusArray, v, Statuses) }},
		{Keys: []string{"!status:"}, Update: func(f *F, v string) { textfilter.AddEnumToArray(&get(f).ExcludeStatusArray, v, Statuses) }},
		{Keys: []string{"disabled:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).Disabled, true) }},
		{Keys: []string{"!disabled:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).Disabled, false) }},
		{Keys: []string{"allowupdate:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).AllowUpdate, true) }},
		{Keys: []string{"!allowupdate:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).AllowUpdate, false) }},
		{Keys: []string{"active:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).Active, true) }},
		{Keys: []string{"!active:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).Active, false) }},
	}
}

func (b StatusFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	sqlq.Eq(q, rel.Col("status"), b.Status)
	sqlq.In(q, rel.Col("status"), b.StatusArray)
	sqlq.NotIn(q, rel.Col("status"), b.ExcludeStatusArray)
	q.Bool(rel.Col("disabled"), b.Disabled)
	q.Bool(rel.Col("allow_update"), b.AllowUpdate)
	q.Bool(rel.Col("active"), b.Active)
}

func (b StatusFilter) text(d *describer) {
	if b.Status != "" {
		d.add("Status is " + string(b.Status))
	}
	values(d, "Status", b.StatusArray, false)
	values(d, "Status", b.ExcludeStatusArray, true)
	d.flag(b.Disabled, "Is Disabled", "Is Not Disabled")
	d.flag(b.AllowUpdate, "Allows Updates", "Does Not Allow Updates")
	d.flag(b.Active, "Is Active", "Is Not Active")
}

// ImportFilter constrains rows by the import and import detail that created them.
type ImportFilter struct {
	ImportIDArray              []string `json:"importIdArray,omitempty"`
	ExcludeImportIDArray       []string `json:"excludeImportIdArray,omitempty"`
	ImportDetailIDArray        []string `json:"importDetailIdArray,omitempty"`
	ExcludeImportDetailIDArray []string `json:"excludeImportDetailIdArray,omitempty"`
}

func importRules[F any](get func(*F) *ImportFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"importdetailid:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ImportDetailIDArray, v) }},
		{Keys: []string{"!importdetailid:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeImportDetailIDArray, v) }},
		{Keys: []string{"importid:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ImportIDArray, v) }},
		{Keys: []string{"!importid:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeImportIDArray, v) }},
	}
}

func (b ImportFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	sqlq.In(q, rel.Col("import_id"), b.ImportIDArray)
	sqlq.NotIn(q, rel.Col("import_id"), b.ExcludeImportIDArray)
	sqlq.In(q, rel.Col("import_detail_id"), b.ImportDetailIDArray)
	sqlq.NotIn(q, rel.Col("import_detail_id"), b.ExcludeImportDetailIDArray)
}

func (b ImportFilter) text(d *describer) {
	values(d, "Import", b.ImportIDArray, false)
	values(d, "Import", b.ExcludeImportIDArray, true)
	values(d, "Import Detail", b.ImportDetailIDArray, false)
	values(d, "Import Detail", b.ExcludeImportDetailIDArray, true)
}

// SummaryFilter constrains the aggregate columns of a materialized view.
// It has no effect against a plain view.
type SummaryFilter struct {
	CountMax     *float64 `json:"countMax,omitempty"`
	CountMin     *float64 `json:"countMin,omitempty"`
	TotalMax     *float64 `json:"totalMax,omitempty"`
	TotalMin     *float64 `json:"totalMin,omitempty"`
	FirstDateMax string   `json:"firstDateMax,omitempty"`
	FirstDateMin string   `json:"firstDateMin,omitempty"`
	LastDateMax  string   `json:"lastDateMax,omitempty"`
	LastDateMin  string   `json:"lastDateMin,omitempty"`
}

func summaryRules[F any](get func(*F) *SummaryFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"countmax:"}, Update: func(f *F, v string) { textfilter.CompareTextNumber(&get(f).CountMax, v, textfilter.Max) }},
		{Keys: []string{"countmin:"}, Update: func(f *F, v string) { textfilter.CompareTextNumber(&get(f).CountMin, v, textfilter.Min) }},
		{Keys: []string{"max:"}, Update: func(f *F, v string) { textfilter.CompareTextNumber(&get(f).TotalMax, v, textfilter.Max) }},
		{Keys: []string{"min:"}, Update: func(f *F, v string) { textfilter.CompareTextNumber(&get(f).TotalMin, v, textfilter.Min) }},
		{Keys: []string{"firstdatemax:"}, Update: func(f *F, v string) { textfilter.CompareTextDate(&get(f).FirstDateMax, v, textfilter.Max) }},
		{Keys: []string{"firstdatemin:"}, Update: func(f *F, v string) { textfilter.CompareTextDate(&get(f).FirstDateMin, v, textfilter.Min) }},
		{Keys: []string{"lastdatemax:"}, Update: func(f *F, v string) { textfilter.CompareTextDate(&get(f).LastDateMax, v, textfilter.Max) }},
		{Keys: []string{"lastdatemin:"}, Update: func(f *F, v string) { textfilter.CompareTextDate(&get(f).LastDateMin, v, textfilter.Min) }},
	}
}

func (b SummaryFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	if !rel.Summary() {
		return
	}
	q.Cmp(rel.Col("count"), "<=", b.CountMax)
	q.Cmp(rel.Col("count"), ">=", b.CountMin)
	q.Cmp(rel.Col("sum"), "<=", b.TotalMax)
	q.Cmp(rel.Col("sum"), ">=", b.TotalMin)
	q.CmpText(rel.Col("first_date"), "<=", b.FirstDateMax)
	q.CmpText(rel.Col("first_date"), ">=", b.FirstDateMin)
	q.CmpText(rel.Col("last_date"), "<=", b.LastDateMax)
	q.CmpText(rel.Col("last_date"), ">=", b.LastDateMin)
}

func (b SummaryFilter) text(d *describer) {
	d.number("Count", "at most", b.CountMax)
	d.number("Count", "at least", b.CountMin)
	d.number("Total", "at most", b.TotalMax)
	d.number("Total", "at least", b.TotalMin)
	d.date("First Date", "on or before", b.FirstDateMax)
	d.date("First Date", "on or after", b.FirstDateMin)
	d.date("Last Date", "on or before", b.LastDateMax)
	d.date("Last Date", "on or after", b.LastDateMin)
}

// GroupFilter constrains the two halves of a "group: single" title.
type GroupFilter struct {
	GroupArray         []string `json:"groupArray,omitempty"`
	ExcludeGroupArray  []string `json:"excludeGroupArray,omitempty"`
	SingleArray        []string `json:"singleArray,omitempty"`
	ExcludeSingleArray []string `json:"excludeSingleArray,omitempty"`
}

func groupRules[F any](get func(*F) *GroupFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"group:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).GroupArray, v) }},
		{Keys: []string{"!group:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeGroupArray, v) }},
		{Keys: []string{"single:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).SingleArray, v) }},
		{Keys: []string{"!single:"}, Update: func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeSingleArray, v) }},
	}
}

func (b GroupFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	q.LikeAny(rel.Col("group_name"), b.GroupArray)
	q.NotLikeAny(rel.Col("group_name"), b.ExcludeGroupArray)
	q.LikeAny(rel.Col("single_name"), b.SingleArray)
	q.NotLikeAny(rel.Col("single_name"), b.ExcludeSingleArray)
}

func (b GroupFilter) text(d *describer) {
	values(d, "Group", b.GroupArray, false)
	values(d, "Group", b.ExcludeGroupArray, true)
	values(d, "Single", b.SingleArray, false)
	values(d, "Single", b.ExcludeSingleArray, true)
}

// LinkFilter constrains rows by the presence of linked files and notes.
type LinkFilter struct {
	LinkedFile *bool `json:"linkedFile,omitempty"`
	LinkedNote *bool `json:"linkedNote,omitempty"`
}

func linkRules[F any](get func(*F) *LinkFilter) []textfilter.Rule[F] {
	return []textfilter.Rule[F]{
		{Keys: []string{"hasfile:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).LinkedFile, true) }},
		{Keys: []string{"!hasfile:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).LinkedFile, false) }},
		{Keys: []string{"hasnote:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).LinkedNote, true) }},
		{Keys: []string{"!hasnote:"}, Update: func(f *F, _ string) { textfilter.SetBool(&get(f).LinkedNote, false) }},
	}
}

func (b LinkFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	q.Present(rel.LinkCount(sqlq.LinkFile), b.LinkedFile)
	q.Present(rel.LinkCount(sqlq.LinkNote), b.LinkedNote)
}

func (b LinkFilter) text(d *describer) {
	d.flag(b.LinkedFile, "Has Linked Files", "Has No Linked Files")
	d.flag(b.LinkedNote, "Has Linked Notes", "Has No Linked Notes")
}

// BasicFilter is the field set shared by the simple summarised entities.
type BasicFilter struct {
	TextFilter string `json:"textFilter,omitempty"`
	IDTitleFilter
	StatusFilter
	ImportFilter
	SummaryFilter
	LinkFilter
}

func basicRules[F any](get func(*F) *BasicFilter) [][]textfilter.Rule[F] {
	return [][]textfilter.Rule[F]{
		idTitleRules(func(f *F) *IDTitleFilter { return &get(f).IDTitleFilter }),
		statusRules(func(f *F) *StatusFilter { return &get(f).StatusFilter }),
		importRules(func(f *F) *ImportFilter { return &get(f).ImportFilter }),
		summaryRules(func(f *F) *SummaryFilter { return &get(f).SummaryFilter }),
		linkRules(func(f *F) *LinkFilter { return &get(f).LinkFilter }),
	}
}

// basicHandler builds a handler over the basic field set whose bare tokens
// match the title. extra rules are tried before the shared ones.
func basicHandler[F any](get func(*F) *BasicFilter, extra ...[]textfilter.Rule[F]) *textfilter.Handler[F] {
	rules := append(extra, basicRules(get)...)
	return textfilter.NewHandler(
		func(f *F) *string { return &get(f).TextFilter },
		func(f *F, v string) { textfilter.AddToArray(&get(f).TitleArray, v) },
		func(f *F, v string) { textfilter.AddToArray(&get(f).ExcludeTitleArray, v) },
		rules...,
	)
}

func (b BasicFilter) query(q *sqlq.Builder, rel sqlq.Relation) {
	b.IDTitleFilter.query(q, rel)
	b.StatusFilter.query(q, rel)
	b.ImportFilter.query(q, rel)
	b.SummaryFilter.query(q, rel)
	b.LinkFilter.query(q, rel)
}

func (b BasicFilter) text(d *describer, e Entity) {
	b.IDTitleFilter.text(d, e)
	b.StatusFilter.text(d)
	b.ImportFilter.text(d)
	b.SummaryFilter.text(d)
	b.LinkFilter.text(d)
}
