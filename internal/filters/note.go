package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// NoteType classifies a note.
type NoteType string

const (
	NoteInfo     NoteType = "info"
	NoteReminder NoteType = "reminder"
)

// NoteTypes lists every valid note type.
var NoteTypes = []NoteType{NoteInfo, NoteReminder}

// NoteFilter selects notes. Bare words search the note body.
type NoteFilter struct {
	TextFilter string `json:"textFilter,omitempty"`
	IDTitleFilter
	NoteArray        []string   `json:"noteArray,omitempty"`
	ExcludeNoteArray []string   `json:"excludeNoteArray,omitempty"`
	Type             []NoteType `json:"type,omitempty"`
	ExcludeType      []NoteType `json:"excludeType,omitempty"`
	Complete         *bool      `json:"complete,omitempty"`
	Linked           *bool      `json:"linked,omitempty"`
}

var noteHandler = textfilter.NewHandler(
	func(f *NoteFilter) *string { return &f.TextFilter },
	func(f *NoteFilter, v string) { textfilter.AddToArray(&f.NoteArray, v) },
	func(f *NoteFilter, v string) { textfilter.AddToArray(&f.ExcludeNoteArray, v) },
	idTitleRules(func(f *NoteFilter) *IDTitleFilter { return &f.IDTitleFilter }),
	[]textfilter.Rule[NoteFilter]{
		{Keys: []string{"note:"}, Update: func(f *NoteFilter, v string) { textfilter.AddToArray(&f.NoteArray, v) }},
		{Keys: []string{"!note:"}, Update: func(f *NoteFilter, v string) { textfilter.AddToArray(&f.ExcludeNoteArray, v) }},
		{Keys: []string{"type:"}, Update: func(f *NoteFilter, v string) { textfilter.AddEnumToArray(&f.Type, v, NoteTypes) }},
		{Keys: []string{"!type:"}, Update: func(f *NoteFilter, v string) { textfilter.AddEnumToArray(&f.ExcludeType, v, NoteTypes) }},
		{Keys: []string{"complete:"}, Update: func(f *NoteFilter, _ string) { textfilter.SetBool(&f.Complete, true) }},
		{Keys: []string{"!complete:"}, Update: func(f *NoteFilter, _ string) { textfilter.SetBool(&f.Complete, false) }},
		{Keys: []string{"linked:"}, Update: func(f *NoteFilter, _ string) { textfilter.SetBool(&f.Linked, true) }},
		{Keys: []string{"!linked:"}, Update: func(f *NoteFilter, _ string) { textfilter.SetBool(&f.Linked, false) }},
	},
)

// ProcessNoteTextFilter folds the text filter into structured fields.
func ProcessNoteTextFilter(f NoteFilter) NoteFilter { return noteHandler.Process(f) }

// NoteFilterToQuery compiles a note filter into predicate fragments.
func NoteFilterToQuery(f NoteFilter, target Target) []sqlq.Fragment {
	f = ProcessNoteTextFilter(f)
	rel := Relation(EntityNote, target)

	var q sqlq.Builder
	f.IDTitleFilter.query(&q, rel)
	q.LikeAny(rel.Col("note"), f.NoteArray)
	q.NotLikeAny(rel.Col("note"), f.ExcludeNoteArray)
	sqlq.In(&q, rel.Col("type"), f.Type)
	sqlq.NotIn(&q, rel.Col("type"), f.ExcludeType)
	q.Bool(rel.Col("complete"), f.Complete)
	linkedQuery(&q, rel.Col("associated_info_id"), f.Linked)
	return q.Fragments()
}

// NoteFilterToText describes a note filter.
func NoteFilterToText(ctx context.Context, lookup TitleLookup, f NoteFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) {
		f = ProcessNoteTextFilter(f)
		f.IDTitleFilter.text(d, EntityNote)
		values(d, "Note", f.NoteArray, false)
		values(d, "Note", f.ExcludeNoteArray, true)
		values(d, "Type", f.Type, false)
		values(d, "Type", f.ExcludeType, true)
		d.flag(f.Complete, "Is Complete", "Is Not Complete")
		d.flag(f.Linked, "Is Linked", "Is Not Linked")
	})
}
