package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// FileType classifies an uploaded file.
type FileType string

const (
	FilePDF   FileType = "pdf"
	FileImage FileType = "image"
	FileCSV   FileType = "csv"
	FileOther FileType = "other"
)

// FileTypes lists every valid file type.
var FileTypes = []FileType{FilePDF, FileImage, FileCSV, FileOther}

// FileFilter selects uploaded files.
type FileFilter struct {
	TextFilter string `json:"textFilter,omitempty"`
	IDTitleFilter
	StatusFilter
	ImportFilter
	FilenameArray        []string   `json:"filenameArray,omitempty"`
	ExcludeFilenameArray []string   `json:"excludeFilenameArray,omitempty"`
	Type                 []FileType `json:"type,omitempty"`
	ExcludeType          []FileType `json:"excludeType,omitempty"`
	Linked               *bool      `json:"linked,omitempty"`
	SizeMax              *float64   `json:"sizeMax,omitempty"`
	SizeMin              *float64   `json:"sizeMin,omitempty"`
}

var fileHandler = textfilter.NewHandler(
	func(f *FileFilter) *string { return &f.TextFilter },
	func(f *FileFilter, v string) { textfilter.AddToArray(&f.TitleArray, v) },
	func(f *FileFilter, v string) { textfilter.AddToArray(&f.ExcludeTitleArray, v) },
	idTitleRules(func(f *FileFilter) *IDTitleFilter { return &f.IDTitleFilter }),
	[]textfilter.Rule[FileFilter]{
		{Keys: []string{"filename:"}, Update: func(f *FileFilter, v string) { textfilter.AddToArray(&f.FilenameArray, v) }},
		{Keys: []string{"!filename:"}, Update: func(f *FileFilter, v string) { textfilter.AddToArray(&f.ExcludeFilenameArray, v) }},
		{Keys: []string{"type:"}, Update: func(f *FileFilter, v string) { textfilter.AddEnumToArray(&f.Type, v, FileTypes) }},
		{Keys: []string{"!type:"}, Update: func(f *FileFilter, v string) { textfilter.AddEnumToArray(&f.ExcludeType, v, FileTypes) }},
		{Keys: []string{"linked:"}, Update: func(f *FileFilter, _ string) { textfilter.SetBool(&f.Linked, true) }},
		{Keys: []string{"!linked:"}, Update: func(f *FileFilter, _ string) { textfilter.SetBool(&f.Linked, false) }},
		{Keys: []string{"sizemax:"}, Update: func(f *FileFilter, v string) { textfilter.CompareTextNumber(&f.SizeMax, v, textfilter.Max) }},
		{Keys: []string{"sizemin:"}, Update: func(f *FileFilter, v string) { textfilter.CompareTextNumber(&f.SizeMin, v, textfilter.Min) }},
	},
	importRules(func(f *FileFilter) *ImportFilter { return &f.ImportFilter }),
	statusRules(func(f *FileFilter) *StatusFilter { return &f.StatusFilter }),
)

// ProcessFileTextFilter folds the text filter into structured fields.
func ProcessFileTextFilter(f FileFilter) FileFilter { return fileHandler.Process(f) }

func linkedQuery(q *sqlq.Builder, col string, linked *bool) {
	if linked == nil {
		return
	}
	if *linked {
		q.Add(sqlq.Raw(col + " IS NOT NULL"))
		return
	}
	q.Add(sqlq.Raw(col + " IS NULL"))
}

// FileFilterToQuery compiles a file filter into predicate fragments.
func FileFilterToQuery(f FileFilter, target Target) []sqlq.Fragment {
	f = ProcessFileTextFilter(f)
	rel := Relation(EntityFile, target)

	var q sqlq.Builder
	f.IDTitleFilter.query(&q, rel)
	f.StatusFilter.query(&q, rel)
	f.ImportFilter.query(&q, rel)
	q.LikeAny(rel.Col("filename"), f.FilenameArray)
	q.NotLikeAny(rel.Col("filename"), f.ExcludeFilenameArray)
	sqlq.In(&q, rel.Col("type"), f.Type)
	sqlq.NotIn(&q, rel.Col("type"), f.ExcludeType)
	linkedQuery(&q, rel.Col("associated_info_id"), f.Linked)
	q.Cmp(rel.Col("size"), "<=", f.SizeMax)
	q.Cmp(rel.Col("size"), ">=", f.SizeMin)
	return q.Fragments()
}

// FileFilterToText describes a file filter.
func FileFilterToText(ctx context.Context, lookup TitleLookup, f FileFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) {
		f = ProcessFileTextFilter(f)
		f.IDTitleFilter.text(d, EntityFile)
		f.StatusFilter.text(d)
		f.ImportFilter.text(d)
		values(d, "Filename", f.FilenameArray, false)
		values(d, "Filename", f.ExcludeFilenameArray, true)
		values(d, "Type", f.Type, false)
		values(d, "Type", f.ExcludeType, true)
		d.flag(f.Linked, "Is Linked", "Is Not Linked")
		d.number("Size", "at most", f.SizeMax)
		d.number("Size", "at least", f.SizeMin)
	})
}
