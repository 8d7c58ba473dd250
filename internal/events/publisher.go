// Package events publishes transaction mutations to an AMQP topic
// exchange.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budget/internal/core"
	"budget/internal/log"
)

const publishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends TransactionEvents to a topic exchange.
type Publisher struct {
	conn         *amqp091.Connection
	ch           channel
	exchangeName string
	logger       *log.Logger
	now          func() time.Time
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchangeName string, logger *log.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := newPublisher(ch, exchangeName, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchangeName string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default(log.ComponentEvents)
	}
	return &Publisher{
		ch:           ch,
		exchangeName: exchangeName,
		logger:       logger.WithComponent(log.ComponentEvents),
		now:          time.Now,
	}
}

// TransactionCreated publishes a transaction.created event.
func (p *Publisher) TransactionCreated(ctx context.Context, t core.Transaction) error {
	return p.publish(ctx, NewCreatedEvent(t, p.now()))
}

// TransactionDeleted publishes a transaction.deleted event.
func (p *Publisher) TransactionDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, NewDeletedEvent(id, p.now()))
}

func (p *Publisher) publish(ctx context.Context, e *TransactionEvent) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		e.Type,         // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         e.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	p.logger.InfoContext(ctx, "Published transaction event",
		log.FieldType, e.Type,
		log.FieldTransactionID, e.TransactionID,
		"exchange", p.exchangeName)
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) TransactionCreated(context.Context, core.Transaction) error { return nil }
func (Nop) TransactionDeleted(context.Context, int64) error            { return nil }
func (Nop) Close() error                                               { return nil }
