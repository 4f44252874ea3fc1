package message

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByMessageID(ctx context.Context, messageID string) (*Message, error)
	// Ordered by creation time, then insertion order.
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	// MarkRead sets read_at only while it is NULL; reports whether a row changed.
	MarkRead(ctx context.Context, messageID string, at time.Time) (bool, error)
}
