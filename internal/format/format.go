// Package format renders report numbers for display.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Display is a number display mode.
type Display string

const (
	Number     Display = "number"
	Currency   Display = "currency"
	Percent    Display = "percent"
	Number2DP  Display = "number2dp"
	Percent2DP Display = "percent2dp"
)

// Displays lists every display mode.
var Displays = []Display{Number, Currency, Percent, Number2DP, Percent2DP}

// ParseDisplay returns the display mode named s, defaulting to Number for an
// empty string.
func ParseDisplay(s string) (Display, error) {
	if s == "" {
		return Number, nil
	}
	for _, d := range Displays {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown display %q", s)
}

var symbols = map[string]string{
	"USD": "$",
	"AUD": "$",
	"CAD": "$",
	"NZD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF ",
	"INR": "₹",
}

// Formatter formats numbers for one locale and currency.
type Formatter struct {
	printer  *message.Printer
	symbol   string
	currency int
}

// New builds a formatter. locale is a BCP 47 tag and code an ISO 4217
// currency code.
func New(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	symbol, ok := symbols[unit.String()]
	if !ok {
		symbol = unit.String() + " "
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		symbol:   symbol,
		currency: scale,
	}, nil
}

// Format renders v in display mode d. Unknown modes render as Number.
func (f *Formatter) Format(v float64, d Display) string {
	switch d {
	case Currency:
		s := f.digits(abs(v), f.currency)
		if v < 0 && s != f.digits(0, f.currency) {
			return "-" + f.symbol + s
		}
		return f.symbol + s
	case Percent:
		return f.digits(v*100, 0) + "%"
	case Percent2DP:
		return f.digits(v*100, 2) + "%"
	case Number2DP:
		return f.digits(v, 2)
	default:
		return f.digits(v, 0)
	}
}

func (f *Formatter) digits(v float64, places int) string {
	rounded := decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return f.printer.Sprint(number.Decimal(rounded,
		number.MinFractionDigits(places),
		number.MaxFractionDigits(places),
	))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
