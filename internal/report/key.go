// Package report resolves report keys against journal aggregates and
// evaluates the math, string, timeline and grouped report elements built
// from them.
//
// A key has four dot-separated parts, grouping.filter.span.result, for
// example "single.filter1.withinrange.sum" or "time.filterall.runningtotal.count".
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// KeyGrouping is the shape a key resolves to.
type KeyGrouping string

const (
	GroupingSingle  KeyGrouping = "single"
	GroupingTime    KeyGrouping = "time"
	GroupingGrouped KeyGrouping = "grouped"
)

// Span selects the date window of a key.
type Span string

const (
	SpanBeforeRange  Span = "beforerange"
	SpanWithinRange  Span = "withinrange"
	SpanUpToRangeEnd Span = "uptorangeend"
	SpanRunningTotal Span = "runningtotal"
	SpanSingle       Span = "single"
)

// Aggregate is the value computed over matching journal rows.
type Aggregate string

const (
	AggSum   Aggregate = "sum"
	AggCount Aggregate = "count"
	AggMin   Aggregate = "min"
	AggMax   Aggregate = "max"
	AggAvg   Aggregate = "avg"
)

const filterAll = "filterall"

var (
	groupings  = []string{string(GroupingSingle), string(GroupingTime), string(GroupingGrouped)}
	rangeSpans = []string{string(SpanBeforeRange), string(SpanWithinRange), string(SpanUpToRangeEnd)}
	timeSpans  = []string{string(SpanRunningTotal), string(SpanSingle)}
	aggregates = []string{string(AggSum), string(AggCount), string(AggMin), string(AggMax), string(AggAvg)}
)

// Key is a parsed report key. Filter is 0 for filterall and the 1-based
// report filter order otherwise.
type Key struct {
	Grouping KeyGrouping
	Filter   int
	Span     Span
	Result   Aggregate
}

func (k Key) String() string {
	filter := filterAll
	if k.Filter > 0 {
		filter = "filter" + strconv.Itoa(k.Filter)
	}
	return strings.Join([]string{string(k.Grouping), filter, string(k.Span), string(k.Result)}, ".")
}

// ParseKey parses a report key. Matching is case-insensitive and surrounding
// whitespace is ignored.
func ParseKey(raw string) (Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), ".")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("report key %q must have four parts: grouping.filter.span.result", raw)
	}

	var k Key
	if err := oneOf("grouping", parts[0], groupings); err != nil {
		return Key{}, err
	}
	k.Grouping = KeyGrouping(parts[0])

	switch {
	case parts[1] == filterAll:
	case strings.HasPrefix(parts[1], "filter"):
		n, err := strconv.Atoi(strings.TrimPrefix(parts[1], "filter"))
		if err != nil || n < 1 {
			return Key{}, fmt.Errorf("filter %q must be filterall or filter<N> with N from 1", parts[1])
		}
		k.Filter = n
	default:
		return Key{}, fmt.Errorf("filter %q must be filterall or filter<N>%s", parts[1], suggest(parts[1], []string{filterAll}))
	}

	spans := rangeSpans
	if k.Grouping == GroupingTime {
		spans = timeSpans
	}
	if err := oneOf(string(k.Grouping)+" span", parts[2], spans); err != nil {
		return Key{}, err
	}
	k.Span = Span(parts[2])

	if err := oneOf("result", parts[3], aggregates); err != nil {
		return Key{}, err
	}
	k.Result = Aggregate(parts[3])
	return k, nil
}

func oneOf(what, value string, valid []string) error {
	for _, v := range valid {
		if v == value {
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q (valid: %s)%s", what, value, strings.Join(valid, ", "), suggest(value, valid))
}

// suggest returns a "did you mean" hint for the closest valid value within
// two edits.
func suggest(value string, valid []string) string {
	best, bestDist := "", 3
	for _, v := range valid {
		if d := levenshtein.ComputeDistance(value, v); d < bestDist {
			best, bestDist = v, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("; did you mean %q?", best)
}
