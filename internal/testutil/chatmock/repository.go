// Package chatmock holds function-backed mocks for the conversation,
// message and typing repositories.
package chatmock

import (
	"context"
	"time"

	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/typing"
)

var (
	_ conversation.Repository = (*Conversations)(nil)
	_ message.Repository      = (*Messages)(nil)
	_ typing.Repository       = (*Typing)(nil)
)

type Conversations struct {
	CreateFn              func(ctx context.Context, c *conversation.Conversation) error
	GetByConversationIDFn func(ctx context.Context, conversationID string) (*conversation.Conversation, error)
	GetActiveByOwnerFn    func(ctx context.Context, ownerID string) (*conversation.Conversation, error)
	ListFn                func(ctx context.Context, status conversation.Status) ([]conversation.Conversation, error)
	TouchFn               func(ctx context.Context, conversationID string, at time.Time) error
	ArchiveFn             func(ctx context.Context, conversationID string) error
}

func (m *Conversations) Create(ctx context.Context, c *conversation.Conversation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, c)
	}
	return nil
}

func (m *Conversations) GetByConversationID(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	if m.GetByConversationIDFn != nil {
		return m.GetByConversationIDFn(ctx, conversationID)
	}
	return nil, context.Canceled
}

func (m *Conversations) GetActiveByOwner(ctx context.Context, ownerID string) (*conversation.Conversation, error) {
	if m.GetActiveByOwnerFn != nil {
		return m.GetActiveByOwnerFn(ctx, ownerID)
	}
	return nil, context.Canceled
}

func (m *Conversations) List(ctx context.Context, status conversation.Status) ([]conversation.Conversation, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, status)
	}
	return nil, nil
}

func (m *Conversations) Touch(ctx context.Context, conversationID string, at time.Time) error {
	if m.TouchFn != nil {
		return m.TouchFn(ctx, conversationID, at)
	}
	return nil
}

func (m *Conversations) Archive(ctx context.Context, conversationID string) error {
	if m.ArchiveFn != nil {
		return m.ArchiveFn(ctx, conversationID)
	}
	return nil
}

type Messages struct {
	CreateFn             func(ctx context.Context, m *message.Message) error
	GetByMessageIDFn     func(ctx context.Context, messageID string) (*message.Message, error)
	ListByConversationFn func(ctx context.Context, conversationID string) ([]message.Message, error)
	MarkReadFn           func(ctx context.Context, messageID string, at time.Time) (bool, error)
}

func (m *Messages) Create(ctx context.Context, msg *message.Message) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, msg)
	}
	return nil
}

func (m *Messages) GetByMessageID(ctx context.Context, messageID string) (*message.Message, error) {
	if m.GetByMessageIDFn != nil {
		return m.GetByMessageIDFn(ctx, messageID)
	}
	return nil, context.Canceled
}

func (m *Messages) ListByConversation(ctx context.Context, conversationID string) ([]message.Message, error) {
	if m.ListByConversationFn != nil {
		return m.ListByConversationFn(ctx, conversationID)
	}
	return nil, nil
}

func (m *Messages) MarkRead(ctx context.Context, messageID string, at time.Time) (bool, error) {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, messageID, at)
	}
	return false, nil
}

type Typing struct {
	UpsertFn             func(ctx context.Context, s *typing.Status) error
	ListByConversationFn func(ctx context.Context, conversationID string) ([]typing.Status, error)
	ClearStaleFn         func(ctx context.Context, before time.Time) ([]typing.Status, error)
}

func (m *Typing) Upsert(ctx context.Context, s *typing.Status) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, s)
	}
	return nil
}

func (m *Typing) ListByConversation(ctx context.Context, conversationID string) ([]typing.Status, error) {
	if m.ListByConversationFn != nil {
		return m.ListByConversationFn(ctx, conversationID)
	}
	return nil, nil
}

func (m *Typing) ClearStale(ctx context.Context, before time.Time) ([]typing.Status, error) {
	if m.ClearStaleFn != nil {
		return m.ClearStaleFn(ctx, before)
	}
	return nil, nil
}
