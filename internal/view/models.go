package view

import (
	"strconv"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Row is one rendered table line.
type Row struct {
	ID       int64
	Date     string
	Type     core.TransactionType
	Badge    string
	Category string
	Amount   string
	Note     string
}

// Option is an entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// CategoryBar is one line of the expense breakdown.
type CategoryBar struct {
	Name   string
	Amount string
	Width  int // percent of the largest category
}

// Totals is the rendered summary widget.
type Totals struct {
	Income          string
	Expenses        string
	Balance         string
	BalanceNegative bool
	Count           int
	Categories      []CategoryBar
}

var monthNames = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// TransactionRow builds the table row for t.
func TransactionRow(t core.Transaction) Row {
	note := t.Note
	if note == "" {
		note = Placeholder
	}
	return Row{
		ID:       t.ID,
		Date:     FormatDate(t.Date),
		Type:     t.Type,
		Badge:    TypeLabel(t.Type),
		Category: t.Category,
		Amount:   FormatSignedEuro(t.Type, t.Amount),
		Note:     note,
	}
}

// SummaryTotals formats the three totals plus the optional breakdown.
func SummaryTotals(s core.Summary) Totals {
	return Totals{
		Income:          FormatEuro(s.TotalIncome),
		Expenses:        FormatEuro(s.TotalExpenses),
		Balance:         FormatEuro(s.Balance),
		BalanceNegative: s.Balance.IsNegative(),
		Count:           s.TransactionCount,
		Categories:      CategoryBars(s.Categories),
	}
}

// YearOptions lists "Alle Jahre" followed by the distinct years of all,
// newest first. The option matching selected stays selected; if it is gone
// "Alle Jahre" is selected instead.
func YearOptions(all []core.Transaction, selected string) []Option {
	years := core.Years(all)
	opts := make([]Option, 0, len(years)+1)
	opts = append(opts, Option{Value: "", Label: "Alle Jahre"})
	found := false
	for _, y := range years {
		v := strconv.Itoa(y)
		sel := v == selected
		found = found || sel
		opts = append(opts, Option{Value: v, Label: v, Selected: sel})
	}
	if !found {
		opts[0].Selected = true
	}
	return opts
}

// MonthOptions lists "Alle Monate" followed by the twelve months.
func MonthOptions(selected string) []Option {
	opts := make([]Option, 0, len(monthNames)+1)
	opts = append(opts, Option{Value: "", Label: "Alle Monate", Selected: selected == ""})
	for i, name := range monthNames {
		v := strconv.Itoa(i + 1)
		opts = append(opts, Option{Value: v, Label: name, Selected: v == selected})
	}
	return opts
}

// CategoryBars scales each category against the largest one.
func CategoryBars(cats []core.CategoryTotal) []CategoryBar {
	if len(cats) == 0 {
		return nil
	}
	maxTotal := decimal.Zero
	for _, c := range cats {
		if c.Total.GreaterThan(maxTotal) {
			maxTotal = c.Total
		}
	}
	bars := make([]CategoryBar, 0, len(cats))
	hundred := decimal.NewFromInt(100)
	for _, c := range cats {
		width := 0
		if maxTotal.IsPositive() && c.Total.IsPositive() {
			width = int(c.Total.Mul(hundred).Div(maxTotal).Round(0).IntPart())
			if width < 2 { // keep tiny values visible
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		bars = append(bars, CategoryBar{Name: c.Category, Amount: FormatEuro(c.Total), Width: width})
	}
	return bars
}
