// Package format renders dashboard figures for display.
package format

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const poundSign = "£"

var (
	printer     = message.NewPrinter(language.BritishEnglish)
	gbpScale, _ = currency.Standard.Rounding(currency.GBP)
)

// Amount formats a monetary value in pounds sterling, e.g. £1,234.50.
// Non-finite values render as an empty string.
func Amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	v = roundHalfUp(v, gbpScale)
	if v < 0 {
		return "-" + poundSign + printer.Sprint(number.Decimal(-v, number.Scale(gbpScale)))
	}
	return poundSign + printer.Sprint(number.Decimal(v, number.Scale(gbpScale)))
}

// Count formats a quantity with thousands grouping, e.g. 1,234. Fractions keep
// up to three digits without padding, e.g. 2.5.
func Count(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return printer.Sprint(number.Decimal(int64(v)))
	}
	return printer.Sprint(number.Decimal(roundHalfUp(v, 3), number.MaxFractionDigits(3)))
}

// roundHalfUp rounds to the given number of decimals with halves away from zero.
func roundHalfUp(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
