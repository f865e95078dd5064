package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"velvetden/internal/domain"
)

const (
	ExchangeName = "notifications"
	ExchangeKind = "topic"
	QueueName    = "velvetden.notifications"
	bindingKey   = "user.*"
)

// Publisher is a NotificationSink publishing each notification as JSON to the
// notifications exchange, routed by its kind.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Deliver(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, ExchangeName, string(n.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Consumer reads notifications from the durable notifications queue.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewConsumer(url string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq %s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fail("exchange declare", err)
	}
	q, err := ch.QueueDeclare(QueueName, true, false, false, false, nil)
	if err != nil {
		return fail("queue declare", err)
	}
	if err := ch.QueueBind(q.Name, bindingKey, ExchangeName, false, nil); err != nil {
		return fail("queue bind", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fail("qos", err)
	}
	return &Consumer{conn: conn, channel: ch}, nil
}

// Consume starts delivery with manual acknowledgement.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Relay hands consumed notifications to a sink, usually an EmailSink.
type Relay struct {
	Sink   domain.NotificationSink
	Logger *slog.Logger
}

// Run processes msgs until the channel closes or ctx is done.
func (r *Relay) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				r.Logger.Info("notification channel closed, stopping relay")
				return
			}
			r.handle(ctx, msg)
		}
	}
}

// handle acks on success, drops malformed messages and requeues once on delivery failure.
func (r *Relay) handle(ctx context.Context, msg amqp.Delivery) {
	var n domain.Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		r.Logger.Error("failed to unmarshal notification", "err", err)
		_ = msg.Nack(false, false)
		return
	}
	if err := r.Sink.Deliver(ctx, n); err != nil {
		r.Logger.Error("notification delivery failed", "kind", n.Kind, "user_id", n.User.ID, "redelivered", msg.Redelivered, "err", err)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
}
