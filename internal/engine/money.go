package engine

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	v = Round2(v)
	if v < 0 {
		return "-R$ " + brPrinter.Sprintf("%.2f", -v)
	}
	return "R$ " + brPrinter.Sprintf("%.2f", v)
}

// FormatDecimal renders v with two decimals and pt-BR separators, without
// the currency symbol.
func FormatDecimal(v float64) string {
	return brPrinter.Sprintf("%.2f", Round2(v))
}
