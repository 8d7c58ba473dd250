package http

import (
	"strconv"

	"budget/internal/core"
	"budget/internal/ui"
	"budget/internal/view"
)

// page is the per-request widget state the ui.Client renders into. Inputs
// come from the request; outputs feed the templates.
type page struct {
	month string
	year  string
	form  ui.FormValues

	totals  view.Totals
	rows    []view.Row
	empty   bool
	years   []view.Option
	loaded  bool
	resetTo core.Date
}

func newPage(month, year string) *page {
	return &page{
		month:  month,
		year:   year,
		totals: view.SummaryTotals(core.Summary{}),
		empty:  true,
		years:  currentYearOptions(year),
	}
}

// currentYearOptions keeps the selected year available until the year list
// has been loaded, so a failed list does not drop the active filter.
func currentYearOptions(year string) []view.Option {
	opts := view.YearOptions(nil, year)
	if y, err := strconv.Atoi(year); err == nil && y > 0 {
		opts[0].Selected = false
		opts = append(opts, view.Option{Value: year, Label: year, Selected: true})
	}
	return opts
}

func (p *page) bindings() ui.Bindings {
	return ui.Bindings{
		Summary:    p,
		Table:      p,
		EmptyState: p,
		Filters:    p,
		YearSelect: p,
		Form:       p,
	}
}

func (p *page) SetTotals(t view.Totals) {
	p.totals = t
	p.loaded = true
}

func (p *page) Clear()                        { p.rows = p.rows[:0] }
func (p *page) AppendRow(r view.Row)          { p.rows = append(p.rows, r) }
func (p *page) SetVisible(v bool)             { p.empty = v }
func (p *page) Month() string                 { return p.month }
func (p *page) Year() string                  { return p.year }
func (p *page) Value() string                 { return p.year }
func (p *page) SetOptions(opts []view.Option) { p.years = opts }
func (p *page) Values() ui.FormValues         { return p.form }

func (p *page) Reset(today core.Date) {
	p.form = ui.FormValues{Date: today.String()}
	p.resetTo = today
}

func (p *page) dashboard() dashboardData {
	return dashboardData{
		Totals:        p.totals,
		Rows:          p.rows,
		Empty:         p.empty,
		MonthOptions:  view.MonthOptions(p.month),
		YearOptions:   p.years,
		ConfirmDelete: ui.ConfirmDelete,
	}
}

// dashboardData feeds the "dashboard" template.
type dashboardData struct {
	Totals        view.Totals
	Rows          []view.Row
	Empty         bool
	MonthOptions  []view.Option
	YearOptions   []view.Option
	ConfirmDelete string
}

// indexData feeds the "index.html" template.
type indexData struct {
	Today     string
	Dashboard dashboardData
}

// htmxDialog answers Confirm from the request and collects Notify
// messages for the show-notification trigger. The browser asks the
// question itself (hx-confirm) and marks confirmed requests with a header.
type htmxDialog struct {
	confirmed bool
	messages  []string
}

func (d *htmxDialog) Confirm(string) bool { return d.confirmed }

func (d *htmxDialog) Notify(msg string) { d.messages = append(d.messages, msg) }

func (d *htmxDialog) message() string {
	if len(d.messages) == 0 {
		return ""
	}
	return d.messages[len(d.messages)-1]
}
