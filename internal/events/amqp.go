// Package events publishes import lifecycle events to RabbitMQ.
//
// Events go to a durable topic exchange. The routing key is the event type
// ("import.completed", "import.failed", "content.deleted"); the model UID
// travels in the "model" header so consumers can bind by type and filter
// by model.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: publisher closed")

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher implements core.Publisher on a RabbitMQ topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	closed   bool
}

var _ core.Publisher = (*AMQPPublisher)(nil)

// Dial connects to the broker and declares the exchange.
func Dial(cfg config.EventsConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// Publish sends one event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, evt core.Event) error {
	msg, err := NewMessage(evt)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(evt), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close shuts the channel and connection. It is safe to call more than once.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var result *multierror.Error
	if p.ch != nil {
		result = multierror.Append(result, p.ch.Close())
	}
	if p.conn != nil {
		result = multierror.Append(result, p.conn.Close())
	}
	return result.ErrorOrNil()
}

// RoutingKey returns the topic routing key for an event.
func RoutingKey(evt core.Event) string {
	return string(evt.Type)
}

// NewMessage encodes an event as an AMQP message.
func NewMessage(evt core.Event) (amqp.Publishing, error) {
	body, err := jsonAPI.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}

	headers := amqp.Table{"model": evt.Model}
	if evt.FailedAt != nil {
		headers["failed-at"] = int64(*evt.FailedAt)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ImportID,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Headers:      headers,
		Body:         body,
	}, nil
}
