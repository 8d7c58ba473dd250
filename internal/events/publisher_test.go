package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/log"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestPublisher_TransactionCreated(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "budget.events", testLogger())
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	tx := core.Transaction{ID: 42, Type: core.Expense, Amount: decimal.NewFromInt(12), Category: "Food"}
	if err := p.TransactionCreated(context.Background(), tx); err != nil {
		t.Fatalf("TransactionCreated() error = %v", err)
	}

	if len(ch.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(ch.sent))
	}
	got := ch.sent[0]
	if got.exchange != "budget.events" || got.key != TypeTransactionCreated {
		t.Errorf("exchange/key = %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" || got.msg.DeliveryMode != amqp091.Persistent {
		t.Errorf("publishing = %+v", got.msg)
	}

	var e TransactionEvent
	if err := json.Unmarshal(got.msg.Body, &e); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if e.TransactionID != 42 || e.Kind != core.Expense || e.Category != "Food" || !e.OccurredAt.Equal(fixed) {
		t.Errorf("event = %+v", e)
	}
}

func TestPublisher_TransactionDeleted(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "budget.events", testLogger())

	if err := p.TransactionDeleted(context.Background(), 7); err != nil {
		t.Fatalf("TransactionDeleted() error = %v", err)
	}
	if len(ch.sent) != 1 || ch.sent[0].key != TypeTransactionDeleted {
		t.Fatalf("sent = %+v", ch.sent)
	}
	var e TransactionEvent
	if err := json.Unmarshal(ch.sent[0].msg.Body, &e); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if e.Type != TypeTransactionDeleted || e.TransactionID != 7 || e.Kind != "" {
		t.Errorf("event = %+v", e)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	p := newPublisher(&fakeChannel{err: boom}, "budget.events", testLogger())

	err := p.TransactionDeleted(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "budget.events", testLogger())
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !ch.closed {
		t.Error("channel should be closed")
	}
}

func TestNop(t *testing.T) {
	var n Nop
	if err := n.TransactionCreated(context.Background(), core.Transaction{}); err != nil {
		t.Errorf("TransactionCreated() error = %v", err)
	}
	if err := n.TransactionDeleted(context.Background(), 1); err != nil {
		t.Errorf("TransactionDeleted() error = %v", err)
	}
}
