package ui

import (
	"budget/internal/core"
	"budget/internal/view"
)

// SummaryView shows the totals widget.
type SummaryView interface {
	SetTotals(view.Totals)
}

// TableView holds the transaction rows.
type TableView interface {
	Clear()
	AppendRow(view.Row)
}

// EmptyStateView is shown instead of rows when nothing matches.
type EmptyStateView interface {
	SetVisible(bool)
}

// FilterView exposes the raw month and year widget values.
type FilterView interface {
	Month() string
	Year() string
}

// YearSelectView is the year dropdown, repopulated after every load.
type YearSelectView interface {
	Value() string
	SetOptions([]view.Option)
}

// FormValues are the raw field values of the entry form.
type FormValues struct {
	Type     string
	Amount   string
	Category string
	Date     string
	Note     string
}

// FormView is the entry form.
type FormView interface {
	Values() FormValues
	Reset(today core.Date)
}

// Bindings groups the widgets the client renders into. All fields are
// required.
type Bindings struct {
	Summary    SummaryView
	Table      TableView
	EmptyState EmptyStateView
	Filters    FilterView
	YearSelect YearSelectView
	Form       FormView
}

// Dialog is the blocking confirm/alert capability.
type Dialog interface {
	Confirm(msg string) bool
	Notify(msg string)
}
