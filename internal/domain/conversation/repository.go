package conversation

import (
	"context"
	"time"
)

type Repository interface {
	// Create returns ErrActiveExists when the owner already has an active conversation.
	Create(ctx context.Context, c *Conversation) error
	GetByConversationID(ctx context.Context, conversationID string) (*Conversation, error)
	GetActiveByOwner(ctx context.Context, ownerID string) (*Conversation, error)
	// Empty status lists everything, most recently updated first.
	List(ctx context.Context, status Status) ([]Conversation, error)
	Touch(ctx context.Context, conversationID string, at time.Time) error
	Archive(ctx context.Context, conversationID string) error
}
