// Package realtime carries change notifications for chat rows over Redis
// pub/sub. Each conversation has two feeds: message inserts and typing
// upserts. Payloads are whole rows encoded as JSON; nothing is replayed.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Topic string

const (
	TopicMessages Topic = "messages"
	TopicTyping   Topic = "typing"
)

// Channel names the pub/sub channel for one feed of one conversation.
func Channel(topic Topic, conversationID string) string {
	return fmt.Sprintf("loandesk:%s:%s", topic, conversationID)
}

// Event is one change notification.
type Event struct {
	Topic          Topic           `json:"topic"`
	ConversationID string          `json:"conversation_id"`
	Payload        json.RawMessage `json:"payload"`
}

// Publisher emits rows onto a conversation feed.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, conversationID string, row any) error
}

// Subscriber opens a live feed for one conversation.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, conversationID string) (*Subscription, error)
}

// Subscription delivers events on C until Close is called or the connection
// goes away, at which point C is closed.
type Subscription struct {
	C <-chan Event

	once    sync.Once
	closeFn func()
}

func NewSubscription(c <-chan Event, closeFn func()) *Subscription {
	return &Subscription{C: c, closeFn: closeFn}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

type Feed struct{ rdb *redis.Client }

func NewFeed(rdb *redis.Client) *Feed { return &Feed{rdb: rdb} }

var (
	_ Publisher  = (*Feed)(nil)
	_ Subscriber = (*Feed)(nil)
)

func (f *Feed) Publish(ctx context.Context, topic Topic, conversationID string, row any) error {
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, Channel(topic, conversationID), b).Err()
}

func (f *Feed) Subscribe(ctx context.Context, topic Topic, conversationID string) (*Subscription, error) {
	ps := f.rdb.Subscribe(ctx, Channel(topic, conversationID))
	// wait for the subscribe confirmation so no publish after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, 64)
	done := make(chan struct{})
	in := ps.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				ev := Event{Topic: topic, ConversationID: conversationID, Payload: json.RawMessage(msg.Payload)}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	return NewSubscription(out, func() {
		close(done)
		_ = ps.Close()
	}), nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error { return json.Unmarshal(e.Payload, v) }
