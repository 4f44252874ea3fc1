package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery body. A returned error rejects the delivery
// without requeueing it.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

type Consumer struct {
	url     string
	dial    func(url string) (*amqp.Connection, error)
	handler Handler

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(url string, dial func(string) (*amqp.Connection, error), h Handler) *Consumer {
	return &Consumer{url: url, dial: dial, handler: h, minBackoff: time.Second, maxBackoff: 30 * time.Second}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker is unreachable or the delivery stream ends.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		conn, err := c.dial(c.url)
		if err != nil {
			log.Printf("decided-consumer: dial failed: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = next(backoff, c.maxBackoff)
			continue
		}
		backoff = c.minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("decided-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("decided-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(LoanDecidedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, LoanDecidedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Printf("decided-consumer: consuming %s", LoanDecidedQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.handler.Handle(ctx, d.Body); err != nil {
		log.Printf("decided-consumer: handle message %s failed: %v", d.MessageId, err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func next(cur, max time.Duration) time.Duration {
	if cur*2 > max {
		return max
	}
	return cur * 2
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
