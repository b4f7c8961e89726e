package report

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
	"ledgerlens/internal/mathexpr"
)

var (
	mathPlaceholder   = regexp.MustCompile(`\{([^{}]*)\}`)
	stringPlaceholder = regexp.MustCompile(`\|([^|]*)\|`)
)

// OtherItems is the synthetic group holding everything outside the top N.
const OtherItems = "Other Items"

// Evaluator evaluates report elements against a resolver.
type Evaluator struct {
	Resolver Resolver
	Format   *format.Formatter
	Sink     log.Sink
}

// NumberResult is the outcome of a math element.
type NumberResult struct {
	Value        float64 `json:"value"`
	Error        bool    `json:"error,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// StringResult is the outcome of a string element.
type StringResult struct {
	Value        string `json:"value"`
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Point is one bucket of a timeline series.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Series is the timeline of one group.
type Series struct {
	Group  string  `json:"group"`
	Points []Point `json:"points"`
}

// TimelineConfig configures a timeline element.
type TimelineConfig struct {
	MathConfig  string
	Options     Options
	RetainBlank bool
	// TopN keeps the N groups with the largest peak magnitude and sums the
	// rest into OtherItems. Zero keeps every group.
	TopN int
}

// TimelineResult is the outcome of a timeline element.
type TimelineResult struct {
	Series       []Series `json:"series"`
	Error        bool     `json:"error,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// GroupedResult is the outcome of a grouped element.
type GroupedResult struct {
	Rows         []GroupedValue `json:"rows"`
	Error        bool           `json:"error,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// placeholderKeys returns the distinct trimmed keys of every {key} in expr,
// in order of first appearance.
func placeholderKeys(expr string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range mathPlaceholder.FindAllStringSubmatch(expr, -1) {
		k := strings.TrimSpace(m[1])
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// resolveKeys resolves every key concurrently. When keys fail, the failure of
// the earliest key in placeholder order is returned, whatever order the
// lookups finish in.
func (e *Evaluator) resolveKeys(ctx context.Context, keys []string, opts Options) (map[string]Result, *Result) {
	results := make([]Result, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		g.Go(func() error {
			results[i] = e.Resolver.Resolve(ctx, key, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(keys))
	for i, key := range keys {
		if results[i].Error {
			failed := results[i]
			return nil, &failed
		}
		out[key] = results[i]
	}
	return out, nil
}

// numberLiteral renders v as an arithmetic literal. Negative values are
// parenthesised so they compose with any surrounding operator.
func numberLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

func substitute(expr string, value func(key string) float64) string {
	return mathPlaceholder.ReplaceAllStringFunc(expr, func(m string) string {
		key := strings.TrimSpace(m[1 : len(m)-1])
		return numberLiteral(value(key))
	})
}

func malformedMessage(expr string) string {
	return "Math Request Malformed. Query = " + expr
}

func (e *Evaluator) evaluate(ctx context.Context, expr string) (float64, error) {
	v, err := mathexpr.Evaluate(expr)
	if err != nil {
		log.OrDiscard(e.Sink).Record(ctx, slog.LevelWarn, log.Record{
			Code:   "MATH_MALFORMED",
			Title:  "math request malformed",
			Fields: map[string]any{log.FieldExpression: expr, log.FieldError: err.Error()},
		})
		return 0, err
	}
	return v, nil
}

func wrongShape(key string, kind Kind, accepted string) string {
	return fmt.Sprintf("Key %q returns %s data; %s", key, kind, accepted)
}

// MathConfigToNumber resolves every {key} placeholder as a single value,
// substitutes the values and evaluates the arithmetic.
func (e *Evaluator) MathConfigToNumber(ctx context.Context, mathConfig string, opts Options) NumberResult {
	keys := placeholderKeys(mathConfig)
	results, failed := e.resolveKeys(ctx, keys, opts)
	if failed != nil {
		return NumberResult{Error: true, ErrorMessage: failed.ErrorMessage}
	}

	values := make(map[string]float64, len(keys))
	for _, k := range keys {
		res := results[k]
		if res.Kind != KindSingle {
			return NumberResult{Error: true, ErrorMessage: wrongShape(k, res.Kind, "only single keys can be used in a math element")}
		}
		values[k] = res.Total()
	}

	expr := substitute(mathConfig, func(k string) float64 { return values[k] })
	v, err := e.evaluate(ctx, expr)
	if err != nil {
		return NumberResult{Error: true, ErrorMessage: malformedMessage(expr)}
	}
	return NumberResult{Value: v}
}

// StringConfigToString replaces every |...| placeholder with a formatted
// number. The inside is a math expression when it holds a {key}, and a bare
// key otherwise.
func (e *Evaluator) StringConfigToString(ctx context.Context, template string, display format.Display, opts Options) StringResult {
	matches := stringPlaceholder.FindAllStringSubmatch(template, -1)
	formatted := make([]string, len(matches))
	for i, m := range matches {
		expr := m[1]
		if !strings.Contains(expr, "{") {
			expr = "{" + strings.TrimSpace(expr) + "}"
		}
		nr := e.MathConfigToNumber(ctx, expr, opts)
		if nr.Error {
			return StringResult{Error: true, ErrorMessage: nr.ErrorMessage}
		}
		formatted[i] = e.formatNumber(nr.Value, display)
	}

	i := 0
	out := stringPlaceholder.ReplaceAllStringFunc(template, func(string) string {
		s := formatted[i]
		i++
		return s
	})
	return StringResult{Value: out}
}

func (e *Evaluator) formatNumber(v float64, display format.Display) string {
	if e.Format == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return e.Format.Format(v, display)
}

// TimelineConfigToData evaluates the math config once per group and time
// bucket. Time keys are looked up by group and bucket; single keys are
// broadcast across every bucket of their group.
func (e *Evaluator) TimelineConfigToData(ctx context.Context, cfg TimelineConfig) TimelineResult {
	keys := placeholderKeys(cfg.MathConfig)
	results, failed := e.resolveKeys(ctx, keys, cfg.Options)
	if failed != nil {
		return TimelineResult{Error: true, ErrorMessage: failed.ErrorMessage}
	}

	timeVals := map[string]map[string]float64{}
	singleVals := map[string]map[string]float64{}
	timeGroups := map[string]bool{}
	singleGroups := map[string]bool{}
	for _, k := range keys {
		res := results[k]
		switch res.Kind {
		case KindTime:
			m := make(map[string]float64, len(res.TimeSeriesData))
			for _, tv := range res.TimeSeriesData {
				m[tv.Group+"-"+tv.Time] = tv.Value
				timeGroups[tv.Group] = true
			}
			timeVals[k] = m
		case KindSingle:
			m := make(map[string]float64, len(res.SingleValue))
			for _, sv := range res.SingleValue {
				m[sv.Group] = sv.Value
				singleGroups[sv.Group] = true
			}
			singleVals[k] = m
		default:
			return TimelineResult{Error: true, ErrorMessage: wrongShape(k, res.Kind, "timeline elements accept time and single keys")}
		}
	}

	groupSet := timeGroups
	if len(groupSet) == 0 {
		groupSet = singleGroups
	}
	if len(groupSet) == 0 {
		groupSet = map[string]bool{AllTitle: true}
	}
	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	tg := cfg.Options.TimeGrouping
	if tg == "" {
		tg = TimeMonth
	}
	buckets := tg.Buckets(e.Resolver.Range())

	series := make([]Series, 0, len(groups))
	for _, g := range groups {
		s := Series{Group: g, Points: make([]Point, 0, len(buckets))}
		for _, b := range buckets {
			expr := substitute(cfg.MathConfig, func(k string) float64 {
				if m, ok := timeVals[k]; ok {
					return m[g+"-"+b]
				}
				m := singleVals[k]
				if v, ok := m[g]; ok {
					return v
				}
				if len(m) == 1 {
					if v, ok := m[AllTitle]; ok {
						return v
					}
				}
				return 0
			})
			v, err := e.evaluate(ctx, expr)
			if err != nil {
				return TimelineResult{Error: true, ErrorMessage: malformedMessage(expr)}
			}
			s.Points = append(s.Points, Point{Time: b, Value: v})
		}
		series = append(series, s)
	}

	if !cfg.RetainBlank {
		series = dropBlank(series)
	}
	if cfg.TopN > 0 {
		series = topN(series, cfg.TopN)
	}
	return TimelineResult{Series: series}
}

func dropBlank(series []Series) []Series {
	out := series[:0:0]
	for _, s := range series {
		for _, p := range s.Points {
			if p.Value != 0 {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func peak(s Series) float64 {
	var p float64
	for _, pt := range s.Points {
		p = max(p, abs(pt.Value))
	}
	return p
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// topN keeps the n series with the largest peak magnitude, in their original
// order, followed by one OtherItems series summing the rest.
func topN(series []Series, n int) []Series {
	if len(series) <= n {
		return series
	}
	ranked := make([]int, len(series))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return peak(series[ranked[a]]) > peak(series[ranked[b]])
	})
	keep := make(map[int]bool, n)
	for _, i := range ranked[:n] {
		keep[i] = true
	}

	out := make([]Series, 0, n+1)
	other := Series{Group: OtherItems}
	for i, s := range series {
		if keep[i] {
			out = append(out, s)
			continue
		}
		if other.Points == nil {
			other.Points = make([]Point, len(s.Points))
			for j, p := range s.Points {
				other.Points[j] = Point{Time: p.Time}
			}
		}
		for j, p := range s.Points {
			other.Points[j].Value += p.Value
		}
	}
	return append(out, other)
}

// GroupedMathConfigToNumber evaluates the math config once per distinct
// grouping tuple. Single keys are broadcast to every tuple.
func (e *Evaluator) GroupedMathConfigToNumber(ctx context.Context, mathConfig string, opts Options) GroupedResult {
	keys := placeholderKeys(mathConfig)
	results, failed := e.resolveKeys(ctx, keys, opts)
	if failed != nil {
		return GroupedResult{Error: true, ErrorMessage: failed.ErrorMessage}
	}

	var tuples [][4]string
	seen := map[[4]string]bool{}
	grouped := map[string]map[[4]string]float64{}
	singles := map[string]float64{}
	for _, k := range keys {
		res := results[k]
		switch res.Kind {
		case KindGrouped:
			m := make(map[[4]string]float64, len(res.GroupedData))
			for _, gv := range res.GroupedData {
				t := gv.tuple()
				m[t] = gv.Value
				if !seen[t] {
					seen[t] = true
					tuples = append(tuples, t)
				}
			}
			grouped[k] = m
		case KindSingle:
			singles[k] = res.Total()
		default:
			return GroupedResult{Error: true, ErrorMessage: wrongShape(k, res.Kind, "grouped elements accept grouped and single keys")}
		}
	}
	if len(tuples) == 0 {
		return GroupedResult{Error: true, ErrorMessage: NoDataMessage}
	}

	rows := make([]GroupedValue, 0, len(tuples))
	for _, t := range tuples {
		expr := substitute(mathConfig, func(k string) float64 {
			if m, ok := grouped[k]; ok {
				return m[t]
			}
			return singles[k]
		})
		v, err := e.evaluate(ctx, expr)
		if err != nil {
			return GroupedResult{Error: true, ErrorMessage: malformedMessage(expr)}
		}
		rows = append(rows, GroupedValue{Group1: t[0], Group2: t[1], Group3: t[2], Group4: t[3], Value: v})
	}
	return GroupedResult{Rows: rows}
}
