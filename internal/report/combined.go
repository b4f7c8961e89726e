package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"ledgerlens/internal/filters"
	"ledgerlens/internal/log"
	"ledgerlens/internal/sqlq"
)

// DateRange is an inclusive range of YYYY-MM-DD dates.
type DateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// ConfigFilter is a report filter addressed by filter<Order> keys.
type ConfigFilter struct {
	Order  int
	Filter filters.JournalFilter
}

// Options shapes the grouping of a resolved key. Single and time keys use
// the first grouping; grouped keys use up to four.
type Options struct {
	Groupings    []Dimension
	TimeGrouping TimeGrouping
}

func (o Options) first() Dimension {
	if len(o.Groupings) == 0 || o.Groupings[0] == "" {
		return DimNone
	}
	return o.Groupings[0]
}

// Resolver resolves report keys within a date range.
type Resolver interface {
	Resolve(ctx context.Context, key string, opts Options) Result
	Range() DateRange
}

// CombinedConfig holds the filters and range of one report evaluation.
type CombinedConfig struct {
	// Common filters apply to every key.
	Common []filters.JournalFilter
	// Filters are combined with the common filters by filter<N> keys.
	Filters []ConfigFilter
	// Range fixes the date range. When nil the range is folded from the
	// data bounds and every filter's dates.
	Range *DateRange
	Now   time.Time
	Sink  log.Sink
}

// Combined resolves keys for one report. It is safe for concurrent use.
type Combined struct {
	src    AggregateSource
	common []sqlq.Fragment
	byNum  map[int][]sqlq.Fragment
	rng    DateRange
	sink   log.Sink
}

// CombinedFilters compiles the report filters and settles the date range.
// The only error is a failure to read the data bounds.
func CombinedFilters(ctx context.Context, src AggregateSource, cfg CombinedConfig) (*Combined, error) {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	c := &Combined{
		src:   src,
		byNum: make(map[int][]sqlq.Fragment, len(cfg.Filters)),
		sink:  log.OrDiscard(cfg.Sink),
	}

	var all []filters.JournalFilter
	for _, f := range cfg.Common {
		c.common = append(c.common, filters.JournalFilterToQuery(f, filters.WithNow(now))...)
		all = append(all, f)
	}
	for _, cf := range cfg.Filters {
		c.byNum[cf.Order] = filters.JournalFilterToQuery(cf.Filter, filters.WithNow(now))
		all = append(all, cf.Filter)
	}

	if cfg.Range != nil {
		c.rng = *cfg.Range
		return c, nil
	}

	first, last, err := src.DateBounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal date bounds: %w", err)
	}
	c.rng = foldRange(first, last, all, now)
	return c, nil
}

// foldRange narrows the data bounds to the latest start and earliest end of
// every filter.
func foldRange(first, last string, all []filters.JournalFilter, now time.Time) DateRange {
	today := now.Format(time.DateOnly)
	r := DateRange{Start: first, End: last}
	if r.Start == "" {
		r.Start = today
	}
	if r.End == "" {
		r.End = today
	}
	for _, f := range all {
		after, before := filters.ProcessJournalTextFilter(f).DateBounds(now)
		if after != "" && after > r.Start {
			r.Start = after
		}
		if before != "" && before < r.End {
			r.End = before
		}
	}
	return r
}

// Range returns the settled date range.
func (c *Combined) Range() DateRange { return c.rng }

const dateCol = "journal_view.date"

func (c *Combined) where(filter int) ([]sqlq.Fragment, bool) {
	out := append([]sqlq.Fragment(nil), c.common...)
	if filter == 0 {
		return out, true
	}
	frags, ok := c.byNum[filter]
	if !ok {
		return nil, false
	}
	return append(out, frags...), true
}

func (c *Combined) spanWhere(span Span) []sqlq.Fragment {
	switch span {
	case SpanBeforeRange:
		return []sqlq.Fragment{sqlq.Raw(dateCol+" < ?", c.rng.Start)}
	case SpanUpToRangeEnd, SpanRunningTotal:
		return []sqlq.Fragment{sqlq.Raw(dateCol+" <= ?", c.rng.End)}
	default:
		return []sqlq.Fragment{
			sqlq.Raw(dateCol+" >= ?", c.rng.Start),
			sqlq.Raw(dateCol+" <= ?", c.rng.End),
		}
	}
}

// Resolve resolves one key. Every failure is returned as an error result.
func (c *Combined) Resolve(ctx context.Context, raw string, opts Options) Result {
	k, err := ParseKey(raw)
	if err != nil {
		c.sink.Record(ctx, slog.LevelWarn, log.Record{
			Code:   "REPORT_KEY_INVALID",
			Title:  "invalid report key",
			Fields: map[string]any{log.FieldKey: raw, log.FieldError: err.Error()},
		})
		return errorResult(err.Error())
	}

	where, ok := c.where(k.Filter)
	if !ok {
		return errorResult(fmt.Sprintf("Report key %q references filter%d which is not defined", raw, k.Filter))
	}
	where = append(where, c.spanWhere(k.Span)...)

	var res Result
	switch k.Grouping {
	case GroupingTime:
		res, err = c.timeSeries(ctx, k, where, opts)
	case GroupingGrouped:
		res, err = c.grouped(ctx, k, where, opts)
	default:
		res, err = c.single(ctx, k, where, opts)
	}
	if err != nil {
		c.sink.Record(ctx, slog.LevelError, log.Record{
			Code:   "REPORT_QUERY_FAILED",
			Title:  "report aggregate query failed",
			Fields: map[string]any{log.FieldKey: raw, log.FieldError: err.Error()},
		})
		return errorResult(DatabaseErrorMessage)
	}
	c.sink.Record(ctx, log.LevelTrace, log.Record{
		Code:   "REPORT_KEY_RESOLVED",
		Title:  "report key resolved",
		Fields: map[string]any{log.FieldKey: k.String()},
	})
	return res
}

func groupColumns(dims []Dimension) []string {
	var cols []string
	for _, d := range dims {
		if col := d.column(); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

// titles maps a row's raw group values onto display titles for dims.
func titles(dims []Dimension, raw []string) []string {
	out := make([]string, len(dims))
	j := 0
	for i, d := range dims {
		if d.column() == "" {
			out[i] = AllTitle
			continue
		}
		v := ""
		if j < len(raw) {
			v = raw[j]
		}
		j++
		out[i] = d.title(v)
	}
	return out
}

func (c *Combined) single(ctx context.Context, k Key, where []sqlq.Fragment, opts Options) (Result, error) {
	dims := []Dimension{opts.first()}
	rows, err := c.src.Aggregate(ctx, AggregateQuery{Where: where, GroupBy: groupColumns(dims)})
	if err != nil {
		return Result{}, err
	}

	var order []string
	accs := map[string]*accumulator{}
	for _, r := range rows {
		g := titles(dims, r.Groups)[0]
		a, ok := accs[g]
		if !ok {
			a = &accumulator{}
			accs[g] = a
			order = append(order, g)
		}
		a.add(r)
	}
	if dims[0] == DimNone && len(order) == 0 {
		order = []string{AllTitle}
		accs[AllTitle] = &accumulator{}
	}

	out := Result{Kind: KindSingle, SingleValue: make([]GroupValue, 0, len(order))}
	for _, g := range order {
		out.SingleValue = append(out.SingleValue, GroupValue{Group: g, Value: accs[g].value(k.Result)})
	}
	return out, nil
}

func (c *Combined) grouped(ctx context.Context, k Key, where []sqlq.Fragment, opts Options) (Result, error) {
	dims := opts.Groupings
	if len(dims) > 4 {
		dims = dims[:4]
	}
	if len(dims) == 0 {
		dims = []Dimension{DimNone}
	}
	rows, err := c.src.Aggregate(ctx, AggregateQuery{Where: where, GroupBy: groupColumns(dims)})
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return errorResult(NoDataMessage), nil
	}

	var order [][4]string
	accs := map[[4]string]*accumulator{}
	for _, r := range rows {
		var tuple [4]string
		copy(tuple[:], titles(dims, r.Groups))
		a, ok := accs[tuple]
		if !ok {
			a = &accumulator{}
			accs[tuple] = a
			order = append(order, tuple)
		}
		a.add(r)
	}

	out := Result{Kind: KindGrouped, GroupedData: make([]GroupedValue, 0, len(order))}
	for _, t := range order {
		out.GroupedData = append(out.GroupedData, GroupedValue{
			Group1: t[0], Group2: t[1], Group3: t[2], Group4: t[3],
			Value: accs[t].value(k.Result),
		})
	}
	return out, nil
}

func (c *Combined) timeSeries(ctx context.Context, k Key, where []sqlq.Fragment, opts Options) (Result, error) {
	dims := []Dimension{opts.first()}
	tg := opts.TimeGrouping
	if tg == "" {
		tg = TimeMonth
	}
	rows, err := c.src.Aggregate(ctx, AggregateQuery{Where: where, GroupBy: groupColumns(dims), ByDate: true})
	if err != nil {
		return Result{}, err
	}

	buckets := tg.Buckets(c.rng)
	opening := map[string]*accumulator{}
	cells := map[string]map[string]*accumulator{}
	groups := map[string]bool{}
	if dims[0] == DimNone {
		groups[AllTitle] = true
	}

	for _, r := range rows {
		g := titles(dims, r.Groups)[0]
		groups[g] = true
		if r.Date < c.rng.Start {
			if k.Span != SpanRunningTotal {
				continue
			}
			if opening[g] == nil {
				opening[g] = &accumulator{}
			}
			opening[g].add(r)
			continue
		}
		b, err := tg.Bucket(r.Date)
		if err != nil {
			return Result{}, err
		}
		if cells[g] == nil {
			cells[g] = map[string]*accumulator{}
		}
		if cells[g][b] == nil {
			cells[g][b] = &accumulator{}
		}
		cells[g][b].add(r)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	out := Result{Kind: KindTime, TimeSeriesData: make([]TimeValue, 0, len(names)*len(buckets))}
	for _, g := range names {
		var running accumulator
		if o := opening[g]; o != nil {
			running.merge(*o)
		}
		for _, b := range buckets {
			var cell accumulator
			if a := cells[g][b]; a != nil {
				cell = *a
			}
			v := cell.value(k.Result)
			if k.Span == SpanRunningTotal {
				running.merge(cell)
				v = running.value(k.Result)
			}
			out.TimeSeriesData = append(out.TimeSeriesData, TimeValue{Group: g, Time: b, Value: v})
		}
	}
	return out, nil
}
