package display

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats v as US dollars with thousands separators, e.g. $10,000.00
func Money(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", math.Abs(v))
	}
	return printer.Sprintf("$%.2f", v)
}

// Percent formats a fraction as a percentage, e.g. 0.1234 -> 12.34%
func Percent(v float64) string {
	return printer.Sprintf("%.2f%%", v*100)
}

// Ratio formats a unitless ratio such as Sharpe to two decimals
func Ratio(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Count formats an integer with thousands separators
func Count(n int) string {
	return printer.Sprintf("%d", n)
}
