package queue

import (
	"context"
	"log"
	"sync"

	"loandesk/internal/domain/loan"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends loan.decided events over one lazily opened connection,
// redialing after the broker drops it.
type Publisher struct {
	url  string
	dial func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewPublisher(url string, dial func(string) (*amqp.Connection, error)) *Publisher {
	return &Publisher{url: url, dial: dial}
}

func (p *Publisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *Publisher) PublishLoanDecided(ctx context.Context, ev loan.DecidedEvent) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	conn, err := p.connection()
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(LoanDecidedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", LoanDecidedQueue, false, false, msg)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
