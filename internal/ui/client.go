// Package ui drives the budget screen: it loads transactions and totals
// from the budget service and renders them through injected widget
// bindings.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/budgetapi"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/view"
)

// User-facing messages.
const (
	ConfirmDelete      = "Buchung wirklich löschen?"
	createFailedPrefix = "Fehler: "
	deleteFailedPrefix = "Fehler beim Löschen: "
	invalidAmountMsg   = "Ungültiger Betrag"
)

var (
	// ErrCancelled is returned by DeleteTransaction when the user declines.
	ErrCancelled = errors.New("delete cancelled")
	// ErrStale is returned by LoadData when a newer load superseded it.
	ErrStale = errors.New("load superseded by a newer one")
)

// API is the budget service as seen by the client.
type API interface {
	ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	GetSummary(ctx context.Context, f core.Filter) (core.Summary, error)
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// EventPublisher is notified after successful mutations.
type EventPublisher interface {
	TransactionCreated(ctx context.Context, t core.Transaction) error
	TransactionDeleted(ctx context.Context, id int64) error
}

type nopPublisher struct{}

func (nopPublisher) TransactionCreated(context.Context, core.Transaction) error { return nil }
func (nopPublisher) TransactionDeleted(context.Context, int64) error            { return nil }

// Option configures a Client.
type Option func(*Client)

// WithEvents sets the mutation event publisher.
func WithEvents(p EventPublisher) Option {
	return func(c *Client) {
		if p != nil {
			c.events = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(log.ComponentClient)
		}
	}
}

// WithClock sets the source of "today" for form resets.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client is the transaction screen controller. Every user action is a
// full fetch and render cycle; nothing is patched incrementally.
type Client struct {
	api    API
	ui     Bindings
	dialog Dialog
	events EventPublisher
	logger *log.Logger
	sl     *log.StructuredLogger
	now    func() time.Time

	seq      atomic.Uint64
	renderMu sync.Mutex
}

// New creates a Client.
func New(api API, b Bindings, d Dialog, opts ...Option) *Client {
	c := &Client{
		api:    api,
		ui:     b,
		dialog: d,
		events: nopPublisher{},
		logger: log.Default(log.ComponentClient),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sl = log.NewStructuredLogger(c.logger)
	return c
}

// LoadData refreshes summary, table and year selector for the current
// filter widgets. Failures are logged and leave the view as it was. Only
// the most recently started load renders; older ones return ErrStale.
func (c *Client) LoadData(ctx context.Context) error {
	token := c.seq.Add(1)

	f, err := core.ParseFilter(c.ui.Filters.Month(), c.ui.Filters.Year())
	if err != nil {
		c.sl.LogError(ctx, "Invalid filter", err, log.OpLoad, nil)
		return fmt.Errorf("read filter: %w", err)
	}

	var (
		txs     []core.Transaction
		summary core.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = c.api.ListTransactions(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = c.api.GetSummary(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		c.sl.LogError(ctx, "Failed to load data", err, log.OpLoad, log.NewFields().WithFilter(f.Month, f.Year))
		return fmt.Errorf("load data: %w", err)
	}

	if !c.render(token, func() {
		c.ui.Summary.SetTotals(view.SummaryTotals(summary))
		c.ui.Table.Clear()
		for _, t := range txs {
			c.ui.Table.AppendRow(view.TransactionRow(t))
		}
		c.ui.EmptyState.SetVisible(len(txs) == 0)
	}) {
		return ErrStale
	}
	c.logger.DebugContext(ctx, "Data rendered",
		log.FieldCount, len(txs),
		log.FieldMonth, f.Month,
		log.FieldYear, f.Year)

	all, err := c.api.ListTransactions(ctx, core.Filter{})
	if err != nil {
		c.sl.LogError(ctx, "Failed to load year options", err, log.OpList, nil)
		return fmt.Errorf("load years: %w", err)
	}
	if !c.render(token, func() {
		c.ui.YearSelect.SetOptions(view.YearOptions(all, c.ui.YearSelect.Value()))
	}) {
		return ErrStale
	}
	return nil
}

// render runs fn unless a newer load has started since token was taken.
func (c *Client) render(token uint64, fn func()) bool {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.seq.Load() != token {
		return false
	}
	fn()
	return true
}

// SubmitForm creates a transaction from the form, resets the form and
// reloads. It returns the stored transaction. Failures are shown through
// the dialog.
func (c *Client) SubmitForm(ctx context.Context) (core.Transaction, error) {
	v := c.ui.Form.Values()

	amount, err := core.ParseAmount(v.Amount)
	if err != nil {
		c.dialog.Notify(createFailedPrefix + invalidAmountMsg)
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	in := core.TransactionInput{
		Type:     core.TransactionType(strings.TrimSpace(v.Type)),
		Amount:   amount,
		Category: strings.TrimSpace(v.Category),
		Date:     strings.TrimSpace(v.Date),
		Note:     strings.TrimSpace(v.Note),
	}

	t, err := c.api.CreateTransaction(ctx, in)
	if err != nil {
		c.sl.LogError(ctx, "Failed to create transaction", err, log.OpCreate, nil)
		c.dialog.Notify(createFailedPrefix + userMessage(err))
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	c.sl.LogTransactionCreated(ctx, t.ID, string(t.Type), t.Category)

	if err := c.events.TransactionCreated(ctx, t); err != nil {
		c.sl.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish, nil)
	}

	n := c.now()
	c.ui.Form.Reset(core.NewDate(n.Year(), int(n.Month()), n.Day()))

	// the create already happened; a failed reload only leaves a stale view
	_ = c.LoadData(ctx)
	return t, nil
}

// DeleteTransaction asks for confirmation, deletes and reloads.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if !c.dialog.Confirm(ConfirmDelete) {
		return ErrCancelled
	}

	if err := c.api.DeleteTransaction(ctx, id); err != nil {
		c.sl.LogError(ctx, "Failed to delete transaction", err, log.OpDelete,
			log.NewFields().WithTransaction(id, "", ""))
		c.dialog.Notify(deleteFailedPrefix + userMessage(err))
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	c.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)

	if err := c.events.TransactionDeleted(ctx, id); err != nil {
		c.sl.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish, nil)
	}

	_ = c.LoadData(ctx)
	return nil
}

// ApplyFilter reloads with the current filter widgets.
func (c *Client) ApplyFilter(ctx context.Context) error {
	return c.LoadData(ctx)
}

func userMessage(err error) string {
	var netErr *budgetapi.NetworkError
	if errors.As(err, &netErr) {
		return netErr.Message
	}
	var valErr *budgetapi.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	return err.Error()
}
