package filters

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"ledgerlens/internal/cache"
)

// TitleLookup resolves an entity id to its display title. found is false when
// no such record exists.
type TitleLookup interface {
	Title(ctx context.Context, entity Entity, id string) (title string, found bool, err error)
}

// TextOption configures a FilterToText call.
type TextOption func(*textOptions)

type textOptions struct {
	prefix    string
	allText   bool
	cacheSize int
}

// WithPrefix prepends prefix and a space to every sentence.
func WithPrefix(prefix string) TextOption {
	return func(o *textOptions) { o.prefix = prefix }
}

// WithoutAllText suppresses the "Showing All" sentence for empty filters.
func WithoutAllText() TextOption {
	return func(o *textOptions) { o.allText = false }
}

// WithTitleCacheSize bounds the number of titles remembered during one call.
func WithTitleCacheSize(n int) TextOption {
	return func(o *textOptions) { o.cacheSize = n }
}

// ShowingAll is emitted for a filter without constraints.
const ShowingAll = "Showing All"

// ManyThreshold is the array length from which values are counted rather
// than listed.
const ManyThreshold = 5

// describer accumulates sentences for one FilterToText call. The first lookup
// error is kept and later sentences are skipped.
type describer struct {
	ctx    context.Context
	lookup TitleLookup
	titles *cache.LRUCache[string]
	out    []string
	err    error
}

func newDescriber(ctx context.Context, lookup TitleLookup, size int) *describer {
	if size <= 0 {
		size = 256
	}
	return &describer{ctx: ctx, lookup: lookup, titles: cache.NewLRUCache[string](size, 0)}
}

func buildOptions(opts []TextOption) textOptions {
	o := textOptions{allText: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// describe runs fill against a fresh describer and applies the output rules.
func describe(ctx context.Context, lookup TitleLookup, opts []TextOption, fill func(d *describer)) ([]string, error) {
	o := buildOptions(opts)
	d := newDescriber(ctx, lookup, o.cacheSize)
	fill(d)
	if d.err != nil {
		return nil, d.err
	}
	return finish(d.out, o), nil
}

func finish(sentences []string, o textOptions) []string {
	if len(sentences) == 0 {
		if !o.allText {
			return []string{}
		}
		sentences = []string{ShowingAll}
	}
	if o.prefix == "" {
		return sentences
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = o.prefix + " " + s
	}
	return out
}

func (d *describer) add(s string) {
	if d.err != nil || s == "" {
		return
	}
	d.out = append(d.out, s)
}

// nested appends the sentences of a sub-filter, each prefixed with name.
func (d *describer) nested(name string, fill func(d *describer)) {
	if d.err != nil {
		return
	}
	sub := &describer{ctx: d.ctx, lookup: d.lookup, titles: d.titles}
	fill(sub)
	if sub.err != nil {
		d.err = sub.err
		return
	}
	for _, s := range sub.out {
		d.add(name + " " + s)
	}
}

func (d *describer) title(e Entity, id string) (string, error) {
	if d.lookup == nil {
		return id, nil
	}
	return cache.GetOrLoad[string](d.ctx, d.titles, string(e)+":"+id, func(ctx context.Context, _ string) (string, error) {
		title, found, err := d.lookup.Title(ctx, e, id)
		if err != nil {
			return "", fmt.Errorf("lookup %s %s: %w", e, id, err)
		}
		if !found {
			return id, nil
		}
		return title, nil
	})
}

// ids describes an id array, resolving each id to its title.
func (d *describer) ids(name string, e Entity, values []string, negate bool) {
	if d.err != nil {
		return
	}
	s, err := arrayText(name, values, negate, func(id string) (string, error) { return d.title(e, id) })
	if err != nil {
		d.err = err
		return
	}
	d.add(s)
}

// values describes an array of literal values.
func values[T ~string](d *describer, name string, vals []T, negate bool) {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = string(v)
	}
	s, _ := arrayText(name, strs, negate, nil)
	d.add(s)
}

func (d *describer) flag(v *bool, yes, no string) {
	if v == nil {
		return
	}
	if *v {
		d.add(yes)
		return
	}
	d.add(no)
}

func (d *describer) number(name, relation string, v *float64) {
	if v == nil {
		return
	}
	d.add(name + " is " + relation + " " + strconv.FormatFloat(*v, 'f', -1, 64))
}

func (d *describer) date(name, relation, v string) {
	if v == "" {
		return
	}
	d.add(name + " is " + relation + " " + v)
}

// ArrayToText renders an array constraint as a sentence. resolve, which may be
// nil, maps each value to its display form and is not called for five or
// more values.
func ArrayToText(name string, vals []string, resolve func(string) (string, error)) (string, error) {
	return arrayText(name, vals, false, resolve)
}

// ExcludedArrayToText is ArrayToText for a negative constraint.
func ExcludedArrayToText(name string, vals []string, resolve func(string) (string, error)) (string, error) {
	return arrayText(name, vals, true, resolve)
}

func arrayText(name string, vals []string, negate bool, resolve func(string) (string, error)) (string, error) {
	if len(vals) == 0 {
		return "", nil
	}
	verb := "is"
	if negate {
		verb = "is not"
	}
	lead := strings.TrimSpace(name + " " + verb)

	if len(vals) >= ManyThreshold {
		return capitalise(fmt.Sprintf("%s one of %d values", lead, len(vals))), nil
	}

	shown := make([]string, len(vals))
	for i, v := range vals {
		shown[i] = v
		if resolve != nil {
			t, err := resolve(v)
			if err != nil {
				return "", err
			}
			shown[i] = t
		}
	}
	if len(shown) == 1 {
		return capitalise(lead + " " + shown[0]), nil
	}
	return capitalise(lead + " one of " + strings.Join(shown, ", ")), nil
}

func capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
