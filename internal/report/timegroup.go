package report

import (
	"fmt"
	"strings"
	"time"
)

// TimeGrouping is the bucket width of a time series.
type TimeGrouping string

const (
	TimeDay     TimeGrouping = "day"
	TimeWeek    TimeGrouping = "week"
	TimeMonth   TimeGrouping = "month"
	TimeQuarter TimeGrouping = "quarter"
	TimeYear    TimeGrouping = "year"
)

var timeGroupings = []TimeGrouping{TimeDay, TimeWeek, TimeMonth, TimeQuarter, TimeYear}

// ParseTimeGrouping returns the time grouping named s. Empty means month.
func ParseTimeGrouping(s string) (TimeGrouping, error) {
	if s == "" {
		return TimeMonth, nil
	}
	for _, g := range timeGroupings {
		if strings.EqualFold(string(g), s) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown time grouping %q", s)
}

// start truncates t to the first day of its bucket. Weeks start on Monday.
func (g TimeGrouping) start(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case TimeDay:
		return t
	case TimeWeek:
		return t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
	case TimeQuarter:
		return time.Date(t.Year(), time.Month((int(t.Month())-1)/3*3+1), 1, 0, 0, 0, 0, time.UTC)
	case TimeYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func (g TimeGrouping) next(t time.Time) time.Time {
	switch g {
	case TimeDay:
		return t.AddDate(0, 0, 1)
	case TimeWeek:
		return t.AddDate(0, 0, 7)
	case TimeQuarter:
		return t.AddDate(0, 3, 0)
	case TimeYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// Bucket returns the label of the bucket holding date, a YYYY-MM-DD string.
func (g TimeGrouping) Bucket(date string) (string, error) {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return g.start(t).Format(time.DateOnly), nil
}

// Buckets lists the labels of every bucket overlapping the range, in order.
func (g TimeGrouping) Buckets(r DateRange) []string {
	start, err := time.Parse(time.DateOnly, r.Start)
	if err != nil {
		return nil
	}
	end, err := time.Parse(time.DateOnly, r.End)
	if err != nil || end.Before(start) {
		return nil
	}
	var out []string
	for b := g.start(start); !b.After(end); b = g.next(b) {
		out = append(out, b.Format(time.DateOnly))
	}
	return out
}
