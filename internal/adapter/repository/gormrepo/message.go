package gormrepo

import (
	"context"
	"time"

	msgDomain "loandesk/internal/domain/message"

	"gorm.io/gorm"
)

type MessageRepository struct{ db *gorm.DB }

func NewMessageRepository(db *gorm.DB) *MessageRepository { return &MessageRepository{db: db} }

func (r *MessageRepository) Create(ctx context.Context, m *msgDomain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageRepository) GetByMessageID(ctx context.Context, messageID string) (*msgDomain.Message, error) {
	var out msgDomain.Message
	res := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&out)
	return &out, res.Error
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]msgDomain.Message, error) {
	var out []msgDomain.Message
	res := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&msgDomain.Message{}).
		Where("message_id = ? AND read_at IS NULL", messageID).
		UpdateColumn("read_at", at)
	return res.RowsAffected > 0, res.Error
}
