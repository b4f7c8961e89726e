package textfilter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode selects how a parsed bound combines with an existing one.
type Mode int

const (
	// Max keeps the larger of the existing and parsed values.
	Max Mode = iota
	// Min keeps the smaller of the existing and parsed values.
	Min
)

// AddToArray appends a non-empty value. Duplicates are kept.
//
// The slice is clipped before appending so a filter copied by Process never
// writes into the backing array of the caller's filter.
func AddToArray(dst *[]string, value string) {
	if value == "" {
		return
	}
	cur := *dst
	*dst = append(cur[:len(cur):len(cur)], value)
}

// AddEnumToArray appends value when it is an exact member of valid.
// Anything else is dropped silently.
func AddEnumToArray[T ~string](dst *[]T, value string, valid []T) {
	if value == "" {
		return
	}
	for _, v := range valid {
		if string(v) == value {
			cur := *dst
			*dst = append(cur[:len(cur):len(cur)], v)
			return
		}
	}
}

// SetBool sets a single-valued boolean field. Later calls win.
func SetBool(dst **bool, value bool) {
	v := value
	*dst = &v
}

// CompareTextNumber parses value as a number and folds it into dst using
// mode. Text that is not a number counts as zero.
func CompareTextNumber(dst **float64, value string, mode Mode) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) {
		parsed = 0
	}

	var existing float64
	if *dst != nil {
		existing = **dst
	} else if mode == Max {
		existing = math.Inf(-1)
	} else {
		existing = math.Inf(1)
	}

	next := existing
	switch mode {
	case Max:
		next = math.Max(existing, parsed)
	case Min:
		next = math.Min(existing, parsed)
	}
	*dst = &next
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`),
	regexp.MustCompile(`^(\d{2})-(\d{1,2})-(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`),
}

// ParseTextDate normalises a typed date to YYYY-MM-DD. Two digit years are
// read as 20YY. Calendar-invalid dates are rejected.
func ParseTextDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, p := range datePatterns {
		m := p.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		if len(m[1]) == 2 {
			year += 2000
		}
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Year() != year || int(t.Month()) != month || t.Day() != day {
			return "", false
		}
		return t.Format(time.DateOnly), true
	}
	return "", false
}

// CompareTextDate folds a typed date into dst using mode. Invalid dates
// leave dst untouched.
func CompareTextDate(dst *string, value string, mode Mode) {
	parsed, ok := ParseTextDate(value)
	if !ok {
		return
	}
	if *dst == "" {
		*dst = parsed
		return
	}
	switch mode {
	case Max:
		if parsed > *dst {
			*dst = parsed
		}
	case Min:
		if parsed < *dst {
			*dst = parsed
		}
	}
}

// JoinText appends a clause to a space-separated text filter.
func JoinText(existing, clause string) string {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return existing
	}
	if existing == "" {
		return clause
	}
	return existing + " " + clause
}

// Defer appends clause to the text filter of a nested filter, creating the
// nested filter when absent. The nested text is tokenized later by the nested
// filter's own handler.
func Defer[N any](dst **N, text func(*N) *string, clause string) {
	if strings.TrimSpace(clause) == "" {
		return
	}
	var next N
	if *dst != nil {
		next = **dst
	}
	t := text(&next)
	*t = JoinText(*t, clause)
	*dst = &next
}

// SplitComposite splits "a,b|c" into lower-cased trimmed parts.
func SplitComposite(value string) []string {
	value = strings.ReplaceAll(value, "|", ",")
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
