package report

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/sqlq"
)

// AggregateQuery asks for journal amounts aggregated per group.
type AggregateQuery struct {
	Where []sqlq.Fragment
	// GroupBy names journal_view columns. Row.Groups follows the same order.
	GroupBy []string
	// ByDate adds the journal date to the grouping.
	ByDate bool
}

// AggregateRow is one group of an aggregate query.
type AggregateRow struct {
	Groups []string
	Date   string
	Sum    float64
	Count  int64
	Min    float64
	Max    float64
}

// AggregateSource runs aggregate queries over journal_view.
type AggregateSource interface {
	// DateBounds returns the first and last journal dates, or empty strings
	// when there are no entries.
	DateBounds(ctx context.Context) (first, last string, err error)
	Aggregate(ctx context.Context, q AggregateQuery) ([]AggregateRow, error)
}

// accumulator merges aggregate rows. Sums are accumulated as decimals.
type accumulator struct {
	sum   decimal.Decimal
	count int64
	min   float64
	max   float64
}

func (a *accumulator) add(r AggregateRow) {
	a.merge(accumulator{sum: decimal.NewFromFloat(r.Sum), count: r.Count, min: r.Min, max: r.Max})
}

func (a *accumulator) merge(b accumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 {
		a.min, a.max = b.min, b.max
	} else {
		a.min = min(a.min, b.min)
		a.max = max(a.max, b.max)
	}
	a.sum = a.sum.Add(b.sum)
	a.count += b.count
}

func (a accumulator) value(kind Aggregate) float64 {
	switch kind {
	case AggCount:
		return float64(a.count)
	case AggMin:
		return a.min
	case AggMax:
		return a.max
	case AggAvg:
		if a.count == 0 {
			return 0
		}
		return a.sum.Div(decimal.NewFromInt(a.count)).InexactFloat64()
	default:
		return a.sum.InexactFloat64()
	}
}
