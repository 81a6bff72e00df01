// Package amqp publishes expense lifecycle events to RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/event"
)

// Config holds broker settings
type Config struct {
	URL            string
	Exchange       string
	Queue          string
	PublishTimeout time.Duration
}

// Publisher publishes events to a durable direct exchange, routed by event
// type. A single channel is shared, so publishes are serialized.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	cfg     Config
	logger  *zap.Logger
}

// NewPublisher dials the broker and declares the topology
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{conn: conn, channel: channel, cfg: cfg, logger: logger}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.cfg.Exchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if p.cfg.Queue == "" {
		return nil
	}

	if _, err := p.channel.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, t := range []event.Type{
		event.TypeExpenseSubmitted,
		event.TypeExpenseApproved,
		event.TypeExpenseRejected,
		event.TypeExpenseReimbursed,
	} {
		if err := p.channel.QueueBind(p.cfg.Queue, t.String(), p.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", t, err)
		}
	}

	return nil
}

// Publish sends the event as a persistent JSON message
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	body, err := NewExpenseEventMessage(evt).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.cfg.Exchange,    // exchange
		evt.Type.String(), // routing key
		false,             // mandatory
		false,             // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    evt.ID,
			Timestamp:    evt.Timestamp,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Debug("Published expense event",
		zap.String("event_type", evt.Type.String()),
		zap.String("event_id", evt.ID),
		zap.String("exchange", p.cfg.Exchange))

	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, evt *event.Event) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

var (
	_ port.EventPublisher = (*Publisher)(nil)
	_ port.EventPublisher = NoopPublisher{}
)
