package gormrepo

import (
	"context"
	"errors"
	"time"

	convDomain "loandesk/internal/domain/conversation"

	"gorm.io/gorm"
)

type ConversationRepository struct{ db *gorm.DB }

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, c *convDomain.Conversation) error {
	if c.Status == "" {
		c.Status = convDomain.StatusActive
	}
	if c.Status == convDomain.StatusActive {
		owner := c.OwnerID
		c.ActiveOwnerID = &owner
	}
	err := r.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return convDomain.ErrActiveExists
	}
	return err
}

func (r *ConversationRepository) GetByConversationID(ctx context.Context, conversationID string) (*convDomain.Conversation, error) {
	var out convDomain.Conversation
	res := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&out)
	return &out, res.Error
}

func (r *ConversationRepository) GetActiveByOwner(ctx context.Context, ownerID string) (*convDomain.Conversation, error) {
	var out convDomain.Conversation
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, convDomain.StatusActive).
		Order("created_at ASC, id ASC").
		First(&out)
	return &out, res.Error
}

func (r *ConversationRepository) List(ctx context.Context, status convDomain.Status) ([]convDomain.Conversation, error) {
	var out []convDomain.Conversation
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	res := q.Order("updated_at DESC, id DESC").Find(&out)
	return out, res.Error
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&convDomain.Conversation{}).
		Where("conversation_id = ?", conversationID).
		UpdateColumn("updated_at", at).Error
}

func (r *ConversationRepository) Archive(ctx context.Context, conversationID string) error {
	res := r.db.WithContext(ctx).
		Model(&convDomain.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]any{
			"status":          convDomain.StatusArchived,
			"active_owner_id": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
