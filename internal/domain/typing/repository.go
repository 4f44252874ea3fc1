package typing

import (
	"context"
	"time"
)

type Repository interface {
	// Upsert on (conversation_id, participant_id); UpdatedAt is written as given.
	Upsert(ctx context.Context, s *Status) error
	ListByConversation(ctx context.Context, conversationID string) ([]Status, error)
	// ClearStale forces is_typing=false on rows last updated before the cutoff
	// and returns the rows it changed.
	ClearStale(ctx context.Context, before time.Time) ([]Status, error)
}
