package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/budgetapi"
	"budget/internal/core"
	"budget/internal/view"
)

type fakeAPI struct {
	mu      sync.Mutex
	txs     []core.Transaction
	summary core.Summary
	nextID  int64

	listErr   error
	sumErr    error
	createErr error
	deleteErr error

	listHook func(f core.Filter)

	listFilters []core.Filter
	sumFilters  []core.Filter
	created     []core.TransactionInput
	deleted     []int64
}

func (a *fakeAPI) ListTransactions(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	if a.listHook != nil {
		a.listHook(f)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listFilters = append(a.listFilters, f)
	if a.listErr != nil {
		return nil, a.listErr
	}
	var out []core.Transaction
	for _, t := range a.txs {
		if f.Year != 0 && t.Date.Year() != f.Year {
			continue
		}
		if f.Month != 0 && int(t.Date.Month()) != f.Month {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *fakeAPI) GetSummary(_ context.Context, f core.Filter) (core.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sumFilters = append(a.sumFilters, f)
	return a.summary, a.sumErr
}

func (a *fakeAPI) CreateTransaction(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, in)
	if a.createErr != nil {
		return core.Transaction{}, a.createErr
	}
	a.nextID++
	d, _ := core.ParseDate(in.Date)
	t := core.Transaction{
		ID:       a.nextID,
		Type:     in.Type,
		Amount:   decimal.NewFromFloat(in.Amount),
		Category: in.Category,
		Date:     d,
		Note:     in.Note,
	}
	a.txs = append(a.txs, t)
	return t, nil
}

func (a *fakeAPI) DeleteTransaction(_ context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, id)
	kept := a.txs[:0]
	for _, t := range a.txs {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	a.txs = kept
	return nil
}

type fakeScreen struct {
	month, year string
	form        FormValues

	totals     view.Totals
	rows       []view.Row
	empty      bool
	options    []view.Option
	resetDate  core.Date
	resetCount int
}

func (s *fakeScreen) SetTotals(t view.Totals)       { s.totals = t }
func (s *fakeScreen) Clear()                        { s.rows = nil }
func (s *fakeScreen) AppendRow(r view.Row)          { s.rows = append(s.rows, r) }
func (s *fakeScreen) SetVisible(v bool)             { s.empty = v }
func (s *fakeScreen) Month() string                 { return s.month }
func (s *fakeScreen) Year() string                  { return s.year }
func (s *fakeScreen) Value() string                 { return s.year }
func (s *fakeScreen) SetOptions(opts []view.Option) { s.options = opts }
func (s *fakeScreen) Values() FormValues            { return s.form }
func (s *fakeScreen) Reset(today core.Date) {
	s.form = FormValues{Date: today.String()}
	s.resetDate = today
	s.resetCount++
}

func (s *fakeScreen) bindings() Bindings {
	return Bindings{Summary: s, Table: s, EmptyState: s, Filters: s, YearSelect: s, Form: s}
}

type fakeDialog struct {
	answer   bool
	asked    []string
	notified []string
}

func (d *fakeDialog) Confirm(msg string) bool {
	d.asked = append(d.asked, msg)
	return d.answer
}

func (d *fakeDialog) Notify(msg string) { d.notified = append(d.notified, msg) }

type recordingPublisher struct {
	created []int64
	deleted []int64
	err     error
}

func (p *recordingPublisher) TransactionCreated(_ context.Context, t core.Transaction) error {
	p.created = append(p.created, t.ID)
	return p.err
}

func (p *recordingPublisher) TransactionDeleted(_ context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return p.err
}

func tx(id int64, typ core.TransactionType, amount, category, date string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Type: typ, Amount: decimal.RequireFromString(amount), Category: category, Date: d}
}

func TestLoadData_FilterSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		month string
		year  string
		want  core.Filter
	}{
		{"no filter", "", "", core.Filter{}},
		{"month only", "3", "", core.Filter{Month: 3}},
		{"year only", "", "2024", core.Filter{Year: 2024}},
		{"both", "12", "2023", core.Filter{Month: 12, Year: 2023}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			screen := &fakeScreen{month: tt.month, year: tt.year}
			c := New(api, screen.bindings(), &fakeDialog{})

			if err := c.LoadData(context.Background()); err != nil {
				t.Fatalf("LoadData() error = %v", err)
			}
			if len(api.sumFilters) != 1 || api.sumFilters[0] != tt.want {
				t.Errorf("summary filters = %v, want [%v]", api.sumFilters, tt.want)
			}
			// filtered list, then the unfiltered one for the year selector
			if len(api.listFilters) != 2 {
				t.Fatalf("list calls = %d, want 2", len(api.listFilters))
			}
			if api.listFilters[0] != tt.want {
				t.Errorf("list filter = %v, want %v", api.listFilters[0], tt.want)
			}
			if api.listFilters[1] != (core.Filter{}) {
				t.Errorf("year list filter = %v, want empty", api.listFilters[1])
			}
		})
	}
}

func TestLoadData_EmptyState(t *testing.T) {
	t.Run("empty list shows indicator", func(t *testing.T) {
		screen := &fakeScreen{rows: []view.Row{{ID: 99}}}
		c := New(&fakeAPI{}, screen.bindings(), &fakeDialog{})
		if err := c.LoadData(context.Background()); err != nil {
			t.Fatalf("LoadData() error = %v", err)
		}
		if !screen.empty {
			t.Error("empty state should be visible")
		}
		if len(screen.rows) != 0 {
			t.Errorf("rows = %d, want 0", len(screen.rows))
		}
	})

	t.Run("rows hide indicator and keep service order", func(t *testing.T) {
		api := &fakeAPI{txs: []core.Transaction{
			tx(2, core.Income, "100", "Salary", "2024-03-05"),
			tx(1, core.Expense, "7.5", "Food", "2024-03-01"),
		}}
		screen := &fakeScreen{empty: true}
		c := New(api, screen.bindings(), &fakeDialog{})
		if err := c.LoadData(context.Background()); err != nil {
			t.Fatalf("LoadData() error = %v", err)
		}
		if screen.empty {
			t.Error("empty state should be hidden")
		}
		if len(screen.rows) != 2 || screen.rows[0].ID != 2 || screen.rows[1].ID != 1 {
			t.Errorf("rows = %+v, want ids [2 1]", screen.rows)
		}
	})
}

func TestLoadData_YearOptions(t *testing.T) {
	api := &fakeAPI{txs: []core.Transaction{
		tx(1, core.Expense, "1", "A", "2022-05-01"),
		tx(2, core.Expense, "1", "A", "2023-01-01"),
		tx(3, core.Expense, "1", "A", "2021-12-31"),
	}}
	screen := &fakeScreen{year: "2022"}
	c := New(api, screen.bindings(), &fakeDialog{})

	if err := c.LoadData(context.Background()); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	want := []string{"", "2023", "2022", "2021"}
	if len(screen.options) != len(want) {
		t.Fatalf("options = %+v, want values %v", screen.options, want)
	}
	for i, opt := range screen.options {
		if opt.Value != want[i] {
			t.Errorf("option[%d] = %q, want %q", i, opt.Value, want[i])
		}
		if opt.Selected != (opt.Value == "2022") {
			t.Errorf("option %q selected = %v", opt.Value, opt.Selected)
		}
	}
}

func TestLoadData_SummaryTotals(t *testing.T) {
	api := &fakeAPI{summary: core.Summary{
		TotalIncome:   decimal.RequireFromString("1234.5"),
		TotalExpenses: decimal.RequireFromString("1237.5"),
		Balance:       decimal.RequireFromString("-3"),
	}}
	screen := &fakeScreen{}
	c := New(api, screen.bindings(), &fakeDialog{})

	if err := c.LoadData(context.Background()); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if screen.totals.Income != "1.234,50\u00a0€" {
		t.Errorf("income = %q", screen.totals.Income)
	}
	if screen.totals.Balance != "-3,00\u00a0€" || !screen.totals.BalanceNegative {
		t.Errorf("balance = %q negative=%v", screen.totals.Balance, screen.totals.BalanceNegative)
	}
}

func TestLoadData_FailureLeavesViewUntouched(t *testing.T) {
	prior := []view.Row{{ID: 7, Category: "Rent"}}

	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{"list fails", &fakeAPI{listErr: &budgetapi.NetworkError{Op: "list_transactions", Message: "Failed to fetch transactions"}}},
		{"summary fails", &fakeAPI{sumErr: &budgetapi.NetworkError{Op: "get_summary", Message: "Failed to fetch summary"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := &fakeScreen{rows: append([]view.Row(nil), prior...)}
			dialog := &fakeDialog{}
			c := New(tt.api, screen.bindings(), dialog)

			err := c.LoadData(context.Background())
			if !errors.Is(err, budgetapi.ErrNetwork) {
				t.Fatalf("LoadData() error = %v, want network error", err)
			}
			if len(screen.rows) != 1 || screen.rows[0].ID != 7 {
				t.Errorf("rows changed: %+v", screen.rows)
			}
			if len(dialog.notified) != 0 {
				t.Errorf("load failures must not notify, got %v", dialog.notified)
			}
		})
	}
}

func TestLoadData_InvalidFilter(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{month: "13"}
	c := New(api, screen.bindings(), &fakeDialog{})

	if err := c.LoadData(context.Background()); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("LoadData() error = %v, want ErrInvalidMonth", err)
	}
	if len(api.listFilters) != 0 || len(api.sumFilters) != 0 {
		t.Error("no request should be sent for an invalid filter")
	}
}

func TestLoadData_StaleLoadIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{txs: []core.Transaction{
		tx(1, core.Expense, "5", "January", "2024-01-10"),
		tx(2, core.Expense, "6", "February", "2024-02-10"),
	}}
	api.listHook = func(f core.Filter) {
		if f.Month == 1 {
			close(entered)
			<-release
		}
	}
	screen := &fakeScreen{month: "1"}
	c := New(api, screen.bindings(), &fakeDialog{})

	slow := make(chan error, 1)
	go func() { slow <- c.LoadData(context.Background()) }()
	<-entered

	screen.month = "2"
	if err := c.LoadData(context.Background()); err != nil {
		t.Fatalf("newer LoadData() error = %v", err)
	}
	close(release)

	select {
	case err := <-slow:
		if !errors.Is(err, ErrStale) {
			t.Fatalf("older LoadData() error = %v, want ErrStale", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("older LoadData did not return")
	}

	if len(screen.rows) != 1 || screen.rows[0].Category != "February" {
		t.Errorf("rows = %+v, want only the February row", screen.rows)
	}
}

func TestSubmitForm(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{form: FormValues{Type: "expense", Amount: "12.50", Category: "Food", Date: "2024-03-01"}}
	pub := &recordingPublisher{}
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	c := New(api, screen.bindings(), &fakeDialog{}, WithEvents(pub), WithClock(func() time.Time { return now }))

	created, err := c.SubmitForm(context.Background())
	if err != nil {
		t.Fatalf("SubmitForm() error = %v", err)
	}
	if created.ID != 1 || created.Category != "Food" {
		t.Errorf("SubmitForm() = %+v, want stored transaction 1", created)
	}

	if len(api.created) != 1 {
		t.Fatalf("created = %d, want 1", len(api.created))
	}
	in := api.created[0]
	if in.Type != core.Expense || in.Amount != 12.5 || in.Category != "Food" || in.Date != "2024-03-01" {
		t.Errorf("input = %+v", in)
	}
	if len(screen.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(screen.rows))
	}
	row := screen.rows[0]
	if row.Amount != "− 12,50\u00a0€" {
		t.Errorf("amount = %q, want %q", row.Amount, "− 12,50\u00a0€")
	}
	if row.Category != "Food" {
		t.Errorf("category = %q, want Food", row.Category)
	}
	if screen.resetCount != 1 || screen.resetDate.String() != "2024-06-15" {
		t.Errorf("reset %d times with %s, want once with 2024-06-15", screen.resetCount, screen.resetDate)
	}
	if len(pub.created) != 1 || pub.created[0] != 1 {
		t.Errorf("published created = %v, want [1]", pub.created)
	}
}

func TestSubmitForm_EmptyDateLeftToServer(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{form: FormValues{Type: "income", Amount: "3,5", Category: "Gift"}}
	c := New(api, screen.bindings(), &fakeDialog{})

	if _, err := c.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm() error = %v", err)
	}
	if got := api.created[0]; got.Date != "" || got.Amount != 3.5 {
		t.Errorf("input = %+v, want empty date and amount 3.5", got)
	}
}

func TestSubmitForm_ServerDetail(t *testing.T) {
	api := &fakeAPI{createErr: &budgetapi.ValidationError{StatusCode: 400, Message: "Invalid amount"}}
	screen := &fakeScreen{form: FormValues{Type: "expense", Amount: "1", Category: "Food"}}
	dialog := &fakeDialog{}
	c := New(api, screen.bindings(), dialog)

	_, err := c.SubmitForm(context.Background())
	if !errors.Is(err, budgetapi.ErrValidation) {
		t.Fatalf("SubmitForm() error = %v, want validation error", err)
	}
	if len(dialog.notified) != 1 || dialog.notified[0] != "Fehler: Invalid amount" {
		t.Errorf("notified = %v", dialog.notified)
	}
	if screen.resetCount != 0 {
		t.Error("form must not be reset on failure")
	}
	if len(api.listFilters) != 0 {
		t.Error("no reload expected after a failed create")
	}
}

func TestSubmitForm_UnparseableAmount(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{form: FormValues{Type: "expense", Amount: "abc", Category: "Food"}}
	dialog := &fakeDialog{}
	c := New(api, screen.bindings(), dialog)

	if _, err := c.SubmitForm(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(api.created) != 0 {
		t.Error("nothing should be sent")
	}
	if len(dialog.notified) != 1 || dialog.notified[0] != "Fehler: Ungültiger Betrag" {
		t.Errorf("notified = %v", dialog.notified)
	}
}

func TestSubmitForm_PublishFailureIsIgnored(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{form: FormValues{Type: "expense", Amount: "1", Category: "Food"}}
	dialog := &fakeDialog{}
	c := New(api, screen.bindings(), dialog, WithEvents(&recordingPublisher{err: errors.New("broker down")}))

	if _, err := c.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm() error = %v", err)
	}
	if len(dialog.notified) != 0 {
		t.Errorf("notified = %v, want none", dialog.notified)
	}
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("confirmed removes the row", func(t *testing.T) {
		api := &fakeAPI{txs: []core.Transaction{
			tx(1, core.Expense, "1", "A", "2024-01-01"),
			tx(2, core.Expense, "2", "B", "2024-01-02"),
		}}
		screen := &fakeScreen{}
		dialog := &fakeDialog{answer: true}
		pub := &recordingPublisher{}
		c := New(api, screen.bindings(), dialog, WithEvents(pub))

		if err := c.DeleteTransaction(context.Background(), 1); err != nil {
			t.Fatalf("DeleteTransaction() error = %v", err)
		}
		if len(dialog.asked) != 1 || dialog.asked[0] != ConfirmDelete {
			t.Errorf("asked = %v", dialog.asked)
		}
		if len(screen.rows) != 1 || screen.rows[0].ID != 2 {
			t.Errorf("rows = %+v, want only id 2", screen.rows)
		}
		if len(pub.deleted) != 1 || pub.deleted[0] != 1 {
			t.Errorf("published deleted = %v", pub.deleted)
		}
	})

	t.Run("declined does nothing", func(t *testing.T) {
		api := &fakeAPI{}
		c := New(api, (&fakeScreen{}).bindings(), &fakeDialog{answer: false})

		if err := c.DeleteTransaction(context.Background(), 1); !errors.Is(err, ErrCancelled) {
			t.Fatalf("DeleteTransaction() error = %v, want ErrCancelled", err)
		}
		if len(api.deleted) != 0 || len(api.listFilters) != 0 {
			t.Error("no request expected after declining")
		}
	})

	t.Run("failure keeps rows and notifies", func(t *testing.T) {
		api := &fakeAPI{deleteErr: &budgetapi.NetworkError{Op: "delete_transaction", StatusCode: 500, Message: "Failed to delete transaction"}}
		screen := &fakeScreen{rows: []view.Row{{ID: 1}}}
		dialog := &fakeDialog{answer: true}
		c := New(api, screen.bindings(), dialog)

		if err := c.DeleteTransaction(context.Background(), 1); !errors.Is(err, budgetapi.ErrNetwork) {
			t.Fatalf("DeleteTransaction() error = %v, want network error", err)
		}
		if len(screen.rows) != 1 {
			t.Errorf("rows = %+v, want unchanged", screen.rows)
		}
		if len(dialog.notified) != 1 || dialog.notified[0] != "Fehler beim Löschen: Failed to delete transaction" {
			t.Errorf("notified = %v", dialog.notified)
		}
	})
}

func TestApplyFilter(t *testing.T) {
	api := &fakeAPI{}
	screen := &fakeScreen{month: "4", year: "2024"}
	c := New(api, screen.bindings(), &fakeDialog{})

	if err := c.ApplyFilter(context.Background()); err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}
	if len(api.sumFilters) != 1 || api.sumFilters[0] != (core.Filter{Month: 4, Year: 2024}) {
		t.Errorf("summary filters = %v", api.sumFilters)
	}
}
