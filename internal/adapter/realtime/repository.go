package realtime

import (
	"context"
	"log"
	"time"

	"loandesk/internal/domain/message"
	"loandesk/internal/domain/typing"
)

// MessageRepository publishes every inserted message on its conversation's
// message feed after the write succeeds.
type MessageRepository struct {
	message.Repository
	pub Publisher
}

func PublishMessages(repo message.Repository, pub Publisher) *MessageRepository {
	return &MessageRepository{Repository: repo, pub: pub}
}

func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	if err := r.Repository.Create(ctx, m); err != nil {
		return err
	}
	if err := r.pub.Publish(ctx, TopicMessages, m.ConversationID, m); err != nil {
		log.Printf("realtime: publish message %s: %v", m.MessageID, err)
	}
	return nil
}

// TypingRepository publishes every upserted or swept typing row.
type TypingRepository struct {
	typing.Repository
	pub Publisher
}

func PublishTyping(repo typing.Repository, pub Publisher) *TypingRepository {
	return &TypingRepository{Repository: repo, pub: pub}
}

func (r *TypingRepository) Upsert(ctx context.Context, s *typing.Status) error {
	if err := r.Repository.Upsert(ctx, s); err != nil {
		return err
	}
	r.publish(ctx, s)
	return nil
}

func (r *TypingRepository) ClearStale(ctx context.Context, before time.Time) ([]typing.Status, error) {
	cleared, err := r.Repository.ClearStale(ctx, before)
	if err != nil {
		return nil, err
	}
	for i := range cleared {
		r.publish(ctx, &cleared[i])
	}
	return cleared, nil
}

func (r *TypingRepository) publish(ctx context.Context, s *typing.Status) {
	if err := r.pub.Publish(ctx, TopicTyping, s.ConversationID, s); err != nil {
		log.Printf("realtime: publish typing %s/%s: %v", s.ConversationID, s.ParticipantID, err)
	}
}
