package filters

import "time"

// DateSpan is a named date window relative to today.
type DateSpan string

const (
	SpanToday        DateSpan = "today"
	SpanThisWeek     DateSpan = "thisWeek"
	SpanLastWeek     DateSpan = "lastWeek"
	SpanThisMonth    DateSpan = "thisMonth"
	SpanLastMonth    DateSpan = "lastMonth"
	SpanThisQuarter  DateSpan = "thisQuarter"
	SpanLastQuarter  DateSpan = "lastQuarter"
	SpanThisYear     DateSpan = "thisYear"
	SpanLastYear     DateSpan = "lastYear"
	SpanLast7Days    DateSpan = "last7Days"
	SpanLast30Days   DateSpan = "last30Days"
	SpanLast90Days   DateSpan = "last90Days"
	SpanLast12Months DateSpan = "last12Months"
)

// DateSpans lists every valid span.
var DateSpans = []DateSpan{
	SpanToday, SpanThisWeek, SpanLastWeek, SpanThisMonth, SpanLastMonth,
	SpanThisQuarter, SpanLastQuarter, SpanThisYear, SpanLastYear,
	SpanLast7Days, SpanLast30Days, SpanLast90Days, SpanLast12Months,
}

var spanLabels = map[DateSpan]string{
	SpanToday:        "Today",
	SpanThisWeek:     "This Week",
	SpanLastWeek:     "Last Week",
	SpanThisMonth:    "This Month",
	SpanLastMonth:    "Last Month",
	SpanThisQuarter:  "This Quarter",
	SpanLastQuarter:  "Last Quarter",
	SpanThisYear:     "This Year",
	SpanLastYear:     "Last Year",
	SpanLast7Days:    "Last 7 Days",
	SpanLast30Days:   "Last 30 Days",
	SpanLast90Days:   "Last 90 Days",
	SpanLast12Months: "Last 12 Months",
}

// Label is the display form of the span.
func (s DateSpan) Label() string {
	if l, ok := spanLabels[s]; ok {
		return l
	}
	return string(s)
}

// Range returns the first and last day of the span, both inclusive, for the
// day containing now. ok is false for an unknown span.
func (s DateSpan) Range(now time.Time) (start, end time.Time, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	quarterStart := time.Date(today.Year(), time.Month((int(today.Month())-1)/3*3+1), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	switch s {
	case SpanToday:
		return today, today, true
	case SpanThisWeek:
		return weekStart, weekStart.AddDate(0, 0, 6), true
	case SpanLastWeek:
		return weekStart.AddDate(0, 0, -7), weekStart.AddDate(0, 0, -1), true
	case SpanThisMonth:
		return monthStart, monthStart.AddDate(0, 1, -1), true
	case SpanLastMonth:
		return monthStart.AddDate(0, -1, 0), monthStart.AddDate(0, 0, -1), true
	case SpanThisQuarter:
		return quarterStart, quarterStart.AddDate(0, 3, -1), true
	case SpanLastQuarter:
		return quarterStart.AddDate(0, -3, 0), quarterStart.AddDate(0, 0, -1), true
	case SpanThisYear:
		return yearStart, yearStart.AddDate(1, 0, -1), true
	case SpanLastYear:
		return yearStart.AddDate(-1, 0, 0), yearStart.AddDate(0, 0, -1), true
	case SpanLast7Days:
		return today.AddDate(0, 0, -6), today, true
	case SpanLast30Days:
		return today.AddDate(0, 0, -29), today, true
	case SpanLast90Days:
		return today.AddDate(0, 0, -89), today, true
	case SpanLast12Months:
		return today.AddDate(-1, 0, 1), today, true
	}
	return time.Time{}, time.Time{}, false
}
