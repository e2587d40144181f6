// Package rabbitmq carries outgoing mail from the api to the mail worker over
// one durable queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const prefetch = 10

var (
	// ErrNotConfirmed is returned when the broker nacks a published message.
	ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed")

	// ErrMalformed marks a delivery that can never succeed; it is dropped
	// instead of requeued.
	ErrMalformed = errors.New("rabbitmq: malformed message")
)

type MailQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	name    string
}

func New(url, queueName string) (*MailQueue, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: declare %s: %w", op, queueName, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: confirm mode: %w", op, err)
	}

	return &MailQueue{
		conn:    conn,
		channel: ch,
		name:    q.Name,
	}, nil
}

// SendMessage publishes msg and waits for the broker to confirm it.
func (q *MailQueue) SendMessage(ctx context.Context, msg models.Message) error {
	const op = "rabbitmq.SendMessage"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	conf, err := q.channel.PublishWithDeferredConfirmWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         msg.Purpose,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", op, ErrNotConfirmed)
	}

	return nil
}

// StartReading consumes the queue until ctx is done.
func (q *MailQueue) StartReading(ctx context.Context, handle func(body []byte) error) error {
	const op = "rabbitmq.StartReading"

	if err := q.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := q.channel.ConsumeWithContext(ctx, q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}

			if err := dispatch(d, handle); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}
}

// dispatch acks a handled delivery. A failed one is requeued once; malformed
// or already redelivered messages are dropped.
func dispatch(d amqp.Delivery, handle func(body []byte) error) error {
	err := handle(d.Body)
	if err == nil {
		return d.Ack(false)
	}

	requeue := !d.Redelivered && !errors.Is(err, ErrMalformed)

	return d.Nack(false, requeue)
}

func (q *MailQueue) Close() {
	_ = q.channel.Close()
	_ = q.conn.Close()
}
