package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"ledgerlens/internal/filters"
	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
)

// ElementType is the kind of a report element.
type ElementType string

const (
	ElementMath     ElementType = "math"
	ElementString   ElementType = "string"
	ElementTimeline ElementType = "timeline"
	ElementGrouped  ElementType = "grouped"
)

// FilterRef is an inline text filter or the id of a saved journal filter.
type FilterRef struct {
	Text  string `yaml:"text,omitempty" json:"text,omitempty"`
	Saved string `yaml:"saved,omitempty" json:"saved,omitempty"`
}

// Element is one configured report element.
type Element struct {
	Title        string         `yaml:"title" json:"title"`
	Type         ElementType    `yaml:"type" json:"type"`
	MathConfig   string         `yaml:"mathConfig,omitempty" json:"mathConfig,omitempty"`
	Template     string         `yaml:"template,omitempty" json:"template,omitempty"`
	Display      format.Display `yaml:"display,omitempty" json:"display,omitempty"`
	TimeGrouping TimeGrouping   `yaml:"timeGrouping,omitempty" json:"timeGrouping,omitempty"`
	Groupings    []Dimension    `yaml:"groupings,omitempty" json:"groupings,omitempty"`
	RetainBlank  bool           `yaml:"retainBlank,omitempty" json:"retainBlank,omitempty"`
	TopN         int            `yaml:"topN,omitempty" json:"topN,omitempty"`
}

// Definition is a saved report.
type Definition struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	// Filters apply to every key.
	Filters []FilterRef `yaml:"filters,omitempty" json:"filters,omitempty"`
	// ReportFilters are addressed as filter1, filter2, ... in keys.
	ReportFilters []FilterRef `yaml:"reportFilters,omitempty" json:"reportFilters,omitempty"`
	Range         *DateRange  `yaml:"range,omitempty" json:"range,omitempty"`
	Elements      []Element   `yaml:"elements" json:"elements"`
}

// ParseDefinition decodes a YAML report definition, normalises enum casing
// and validates it.
func ParseDefinition(data []byte) (Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Definition{}, fmt.Errorf("decode report definition: %w", err)
	}
	if err := d.normalise(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// Marshal encodes the definition as YAML.
func (d Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *Definition) normalise() error {
	var errs []error
	for i := range d.Elements {
		el := &d.Elements[i]
		name := el.Title
		if name == "" {
			name = fmt.Sprintf("element %d", i+1)
		}

		disp, err := format.ParseDisplay(string(el.Display))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		el.Display = disp

		tg, err := ParseTimeGrouping(string(el.TimeGrouping))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		el.TimeGrouping = tg

		for j, g := range el.Groupings {
			dim, err := ParseDimension(string(g))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			el.Groupings[j] = dim
		}
	}
	if err := d.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate reports every structural problem in the definition.
func (d Definition) Validate() error {
	var errs []error
	if len(d.Elements) == 0 {
		errs = append(errs, errors.New("report has no elements"))
	}
	for _, refs := range [][]FilterRef{d.Filters, d.ReportFilters} {
		for i, ref := range refs {
			if (ref.Text == "") == (ref.Saved == "") {
				errs = append(errs, fmt.Errorf("filter %d must set exactly one of text or saved", i+1))
			}
		}
	}
	for i, el := range d.Elements {
		name := el.Title
		if name == "" {
			name = fmt.Sprintf("element %d", i+1)
		}
		switch el.Type {
		case ElementMath, ElementTimeline, ElementGrouped:
			if el.MathConfig == "" {
				errs = append(errs, fmt.Errorf("%s: mathConfig is required for %s elements", name, el.Type))
			}
		case ElementString:
			if el.Template == "" {
				errs = append(errs, fmt.Errorf("%s: template is required for string elements", name))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown element type %q", name, el.Type))
		}
		if len(el.Groupings) > 4 {
			errs = append(errs, fmt.Errorf("%s: at most four groupings are supported", name))
		}
		if el.TopN < 0 {
			errs = append(errs, fmt.Errorf("%s: topN must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// SavedFilters loads saved journal filters by id.
type SavedFilters interface {
	SavedFilter(ctx context.Context, id string) (filters.JournalFilter, error)
}

// EvalConfig carries the collaborators of a report evaluation.
type EvalConfig struct {
	Source AggregateSource
	Saved  SavedFilters
	Format *format.Formatter
	Sink   log.Sink
	Now    time.Time
}

// ElementOutput is the evaluated form of one element. Exactly one of the
// result fields is set, matching Type.
type ElementOutput struct {
	Title    string          `json:"title"`
	Type     ElementType     `json:"type"`
	Number   *NumberResult   `json:"number,omitempty"`
	Text     *StringResult   `json:"text,omitempty"`
	Timeline *TimelineResult `json:"timeline,omitempty"`
	Grouped  *GroupedResult  `json:"grouped,omitempty"`
}

// Failed reports whether the element evaluated to an error.
func (o ElementOutput) Failed() (bool, string) {
	switch {
	case o.Number != nil:
		return o.Number.Error, o.Number.ErrorMessage
	case o.Text != nil:
		return o.Text.Error, o.Text.ErrorMessage
	case o.Timeline != nil:
		return o.Timeline.Error, o.Timeline.ErrorMessage
	case o.Grouped != nil:
		return o.Grouped.Error, o.Grouped.ErrorMessage
	}
	return false, ""
}

// Evaluation is an evaluated report.
type Evaluation struct {
	ReportID string          `json:"reportId"`
	Title    string          `json:"title"`
	Range    DateRange       `json:"range"`
	Elements []ElementOutput `json:"elements"`
}

func (cfg EvalConfig) journalFilter(ctx context.Context, ref FilterRef) (filters.JournalFilter, error) {
	if ref.Saved == "" {
		return filters.JournalFilter{TextFilter: ref.Text}, nil
	}
	if cfg.Saved == nil {
		return filters.JournalFilter{}, fmt.Errorf("saved filter %s: no saved filter store", ref.Saved)
	}
	f, err := cfg.Saved.SavedFilter(ctx, ref.Saved)
	if err != nil {
		return filters.JournalFilter{}, fmt.Errorf("load saved filter %s: %w", ref.Saved, err)
	}
	return f, nil
}

// EvaluateDefinition evaluates every element of a report. Element failures
// are reported inside the outputs; the returned error covers loading saved
// filters and reading the data bounds only.
func EvaluateDefinition(ctx context.Context, def Definition, cfg EvalConfig) (Evaluation, error) {
	var cc CombinedConfig
	for _, ref := range def.Filters {
		f, err := cfg.journalFilter(ctx, ref)
		if err != nil {
			return Evaluation{}, err
		}
		cc.Common = append(cc.Common, f)
	}
	for i, ref := range def.ReportFilters {
		f, err := cfg.journalFilter(ctx, ref)
		if err != nil {
			return Evaluation{}, err
		}
		cc.Filters = append(cc.Filters, ConfigFilter{Order: i + 1, Filter: f})
	}
	cc.Range = def.Range
	cc.Now = cfg.Now
	cc.Sink = cfg.Sink

	combined, err := CombinedFilters(ctx, cfg.Source, cc)
	if err != nil {
		return Evaluation{}, err
	}
	ev := &Evaluator{Resolver: combined, Format: cfg.Format, Sink: cfg.Sink}

	out := Evaluation{ReportID: def.ID, Title: def.Title, Range: combined.Range()}
	for _, el := range def.Elements {
		out.Elements = append(out.Elements, ev.Element(ctx, el))
	}
	return out, nil
}

// Element evaluates one element.
func (e *Evaluator) Element(ctx context.Context, el Element) ElementOutput {
	opts := Options{Groupings: el.Groupings, TimeGrouping: el.TimeGrouping}
	out := ElementOutput{Title: el.Title, Type: el.Type}
	switch el.Type {
	case ElementString:
		r := e.StringConfigToString(ctx, el.Template, el.Display, opts)
		out.Text = &r
	case ElementTimeline:
		r := e.TimelineConfigToData(ctx, TimelineConfig{
			MathConfig:  el.MathConfig,
			Options:     opts,
			RetainBlank: el.RetainBlank,
			TopN:        el.TopN,
		})
		out.Timeline = &r
	case ElementGrouped:
		r := e.GroupedMathConfigToNumber(ctx, el.MathConfig, opts)
		out.Grouped = &r
	default:
		r := e.MathConfigToNumber(ctx, el.MathConfig, opts)
		out.Number = &r
	}
	return out
}
