// Package money holds decimal helpers shared by the nexus engine.
// Amounts stay exact through every step; Round is applied once when a value leaves the engine
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of fractional digits kept on output
const Places = 2

// Tolerance is the allowed drift when comparing split amounts
var Tolerance = decimal.New(1, -Places)

// Zero is a readable alias for decimal.Zero
var Zero = decimal.Zero

// Round rounds half away from zero to two places
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(Places) }

// Parse reads a plain decimal string, tolerating a leading $ and thousands separators
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// MustParse is Parse for literals in tests and fixtures
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic("money: bad literal " + s)
	}
	return d
}

// WithinTolerance reports |a-b| <= Tolerance
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Sum adds all values
func Sum(vals ...decimal.Decimal) decimal.Decimal {
	out := decimal.Zero
	for _, v := range vals {
		out = out.Add(v)
	}
	return out
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders a rounded amount with grouping, e.g. 1,234.50
func Format(d decimal.Decimal) string {
	r := Round(d)
	f, _ := r.Float64()
	return printer.Sprintf("%.2f", f)
}
