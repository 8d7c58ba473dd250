// Package view turns budget data into display strings and row models.
//
// Formatting follows the de-DE conventions of the original budget UI:
// "1.234,50 €" for money and "01.03.2024" for dates.
package view

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"budget/internal/core"
)

const (
	// CurrencySuffix separates amount and symbol with a no-break space.
	CurrencySuffix = "\u00a0€"

	// Placeholder is shown for a missing note.
	Placeholder = "–"

	dateLayout = "02.01.2006"
)

// Locale controls digit grouping and the decimal separator.
var Locale = language.German

// FormatEuro formats d with two decimals, locale grouping and the euro sign.
// Digits come from the decimal itself, so large amounts keep their cents.
func FormatEuro(d decimal.Decimal) string {
	d = d.Round(2)
	intPart, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	group, point := separators()

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(c)
	}
	b.WriteString(point)
	b.WriteString(frac)
	b.WriteString(CurrencySuffix)
	return b.String()
}

// separators returns the grouping and decimal separators of Locale.
func separators() (group, point string) {
	rs := []rune(message.NewPrinter(Locale).Sprintf("%.2f", 1234.5))
	point = string(rs[len(rs)-3])
	if len(rs) > len("1234,50") {
		group = string(rs[1])
	}
	return group, point
}

// FormatSignedEuro prefixes the absolute amount with "+" for income and
// "−" (U+2212) for expenses.
func FormatSignedEuro(t core.TransactionType, d decimal.Decimal) string {
	sign := "+"
	if t == core.Expense {
		sign = "−"
	}
	return sign + " " + FormatEuro(d.Abs())
}

// FormatDate renders d as DD.MM.YYYY, or "" for the zero date.
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// TypeLabel returns the badge text for a transaction type.
func TypeLabel(t core.TransactionType) string {
	if t == core.Income {
		return "Einnahme"
	}
	return "Ausgabe"
}
