// Package queue moves loan decision events through RabbitMQ and turns them
// into support messages in the borrower's chat.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"loandesk/internal/domain/loan"
	"loandesk/internal/domain/message"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LoanDecidedQueue is durable; every decision is delivered once to the worker.
const LoanDecidedQueue = "loan.decided"

func encode(ev loan.DecidedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.DecisionID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

// SupportPoster appends a support-authored message to an owner's chat.
type SupportPoster interface {
	PostSupport(ctx context.Context, ownerID, body string) (*message.Message, error)
}

// DecidedHandler notifies the borrower in chat when a decision arrives.
type DecidedHandler struct{ poster SupportPoster }

func NewDecidedHandler(p SupportPoster) *DecidedHandler { return &DecidedHandler{poster: p} }

func (h *DecidedHandler) Handle(ctx context.Context, body []byte) error {
	var ev loan.DecidedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OwnerID == "" || !ev.Outcome.Outcome() {
		return fmt.Errorf("malformed event for loan %q", ev.LoanID)
	}
	if _, err := h.poster.PostSupport(ctx, ev.OwnerID, DecisionText(ev)); err != nil {
		return fmt.Errorf("post support message: %w", err)
	}
	return nil
}

// DecisionText renders the chat line sent for a decision.
func DecisionText(ev loan.DecidedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your loan application %s was %s.", ev.LoanID, ev.Outcome)
	if note := strings.TrimSpace(ev.Note); note != "" {
		b.WriteString(" Note from our team: ")
		b.WriteString(note)
	}
	return b.String()
}
