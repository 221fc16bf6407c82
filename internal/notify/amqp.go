package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the dispatcher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPDispatcher publishes notifications to a RabbitMQ topic exchange,
// routed as notify.<event>.
type AMQPDispatcher struct {
	ch       channel
	exchange string
	now      func() time.Time
}

// DialAMQP connects to RabbitMQ and opens a channel.
func DialAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	return conn, ch, nil
}

// NewAMQPDispatcher declares the exchange and returns a dispatcher publishing to it.
func NewAMQPDispatcher(ch channel, exchange string) (*AMQPDispatcher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &AMQPDispatcher{ch: ch, exchange: exchange, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Send publishes n as a persistent JSON message.
func (d *AMQPDispatcher) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(envelope{Notification: n, SentAt: d.now()})
	if err != nil {
		return Permanent(fmt.Errorf("encode notification: %w", err))
	}
	err = d.ch.PublishWithContext(ctx, d.exchange, "notify."+string(n.Event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    d.now(),
		Type:         string(n.Event),
		Body:         body,
	})
	if err != nil {
		var amqpErr *amqp.Error
		if errors.As(err, &amqpErr) && !amqpErr.Recover {
			return Permanent(fmt.Errorf("publish notification: %w", err))
		}
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close closes the channel.
func (d *AMQPDispatcher) Close() error {
	return d.ch.Close()
}
