package core

import "github.com/shopspring/decimal"

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary holds totals for the transactions matching a filter.
// TransactionCount and Categories are only present on newer services.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transaction_count,omitempty"`
	Categories       []CategoryTotal `json:"categories,omitempty"`
}
