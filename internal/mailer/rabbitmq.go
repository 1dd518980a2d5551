package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQConfig struct {
	URL   string
	Queue string
	// PrefetchCount caps unacked deliveries buffered by this consumer.
	PrefetchCount int
	SendTimeout   time.Duration
}

// RabbitMQQueue publishes messages to a durable queue; Consume feeds them to
// a Sender. Publishing and consuming may run in different processes.
type RabbitMQQueue struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	name        string
	sendTimeout time.Duration
	mu          sync.Mutex
}

func NewRabbitMQQueue(cfg RabbitMQConfig) (*RabbitMQQueue, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	name := strings.TrimSpace(cfg.Queue)
	if name == "" {
		return nil, errors.New("rabbitmq queue name is required")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set prefetch on %s: %w", name, err)
		}
	}

	return &RabbitMQQueue{conn: conn, channel: ch, name: name, sendTimeout: cfg.SendTimeout}, nil
}

func (q *RabbitMQQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	err = q.channel.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(msg.Kind),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish mail message: %w", err)
	}
	return nil
}

// Consume delivers queued messages until ctx is done. Every delivery is acked
// after one send attempt; undecodable payloads are dropped.
func (q *RabbitMQQueue) Consume(ctx context.Context, sender Sender) error {
	consumerTag := "mailer-" + uuid.NewString()

	q.mu.Lock()
	deliveries, err := q.channel.Consume(q.name, consumerTag, false, false, false, false, nil)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.name, err)
	}
	defer func() {
		q.mu.Lock()
		_ = q.channel.Cancel(consumerTag, false)
		q.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}

			var msg Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				slog.ErrorContext(ctx, "dropping undecodable mail message", "message_id", delivery.MessageId, "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			deliver(ctx, sender, msg, q.sendTimeout)
			_ = delivery.Ack(false)
		}
	}
}

func (q *RabbitMQQueue) Close() error {
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
