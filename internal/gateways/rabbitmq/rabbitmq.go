// Package rabbitmq publishes event notices to an AMQP exchange and
// consumes them back into a local Dispatcher.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/metrics"
	"github.com/streadway/amqp"
)

const (
	Exchange   = "huddle.notifications"
	RoutingKey = "event.notice"
	Queue      = "huddle.event-notices"
)

type Config struct {
	URL               string `toml:"url"`
	Retries           int    `toml:"retries"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	// Consume makes this process deliver queued notifications itself.
	Consume     bool `toml:"consume"`
	Concurrency int  `toml:"concurrency"`
}

func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	if retries <= 0 {
		retries = 1
	}

	var conn *amqp.Connection
	var err error
	for range retries {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		slog.Warn("RabbitMQ unreachable, retrying",
			slog.String("type", "sys"),
			slog.Any("error", err),
		)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel declares the durable exchange and queue and binds them.
func SetupChannel(conn *amqp.Connection, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}
	if err := ch.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, Queue, err)
	}
	if err := ch.QueueBind(Queue, RoutingKey, Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, Queue, err)
	}
	return ch, nil
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements notify.Dispatcher by publishing persistent JSON.
type Publisher struct {
	mu sync.Mutex
	ch Channel
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

var _ notify.Dispatcher = (*Publisher)(nil)

func (p *Publisher) Dispatch(_ context.Context, n notify.Notice) error {
	const op = "rabbitmq.Publisher.Dispatch"
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	err = p.ch.Publish(Exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    n.EventID.String() + ":" + string(n.Kind),
		Type:         string(n.Kind),
		Timestamp:    time.Now().UTC(),
	})
	p.mu.Unlock()
	if err != nil {
		metrics.Notifications.WithLabelValues("amqp", "failed").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.Notifications.WithLabelValues("amqp", "success").Inc()
	return nil
}

// HandleDelivery decodes one message and hands it to next. Malformed
// messages are reported as permanent so they are not requeued. Messages
// without a kind predate notice kinds and are finalized events.
func HandleDelivery(ctx context.Context, next notify.Dispatcher, body []byte) (requeue bool, err error) {
	var n notify.Notice
	if err := json.Unmarshal(body, &n); err != nil {
		return false, fmt.Errorf("rabbitmq.HandleDelivery: %w", err)
	}
	if n.Kind == "" {
		n.Kind = notify.KindFinalized
	}
	if err := next.Dispatch(ctx, n); err != nil {
		return true, err
	}
	return false, nil
}

// Consume delivers queued notifications to next until ctx is done.
func Consume(ctx context.Context, ch *amqp.Channel, next notify.Dispatcher, concurrency int, timeout time.Duration) error {
	const op = "rabbitmq.Consume"
	deliveries, err := ch.Consume(Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	sem := make(chan struct{}, concurrency)
	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					handle(ctx, next, d, timeout)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func handle(ctx context.Context, next notify.Dispatcher, d amqp.Delivery, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requeue, err := HandleDelivery(ctx, next, d.Body)
	if err != nil {
		slog.Error("Failed to deliver queued notification",
			slog.String("type", "error"),
			slog.String("message_id", d.MessageId),
			slog.Bool("requeue", requeue && !d.Redelivered),
			slog.Any("error", err),
		)
		// one retry, then drop
		if nackErr := d.Nack(false, requeue && !d.Redelivered); nackErr != nil {
			slog.Error("Failed to nack message", slog.String("type", "error"), slog.Any("error", nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		slog.Error("Failed to ack message", slog.String("type", "error"), slog.Any("error", ackErr))
	}
}
