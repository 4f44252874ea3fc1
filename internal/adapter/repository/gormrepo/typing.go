package gormrepo

import (
	"context"
	"time"

	typingDomain "loandesk/internal/domain/typing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TypingRepository struct{ db *gorm.DB }

func NewTypingRepository(db *gorm.DB) *TypingRepository { return &TypingRepository{db: db} }

func (r *TypingRepository) Upsert(ctx context.Context, s *typingDomain.Status) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "participant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_typing", "updated_at"}),
		}).
		Create(s).Error
}

func (r *TypingRepository) ListByConversation(ctx context.Context, conversationID string) ([]typingDomain.Status, error) {
	var out []typingDomain.Status
	res := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("participant_id ASC").
		Find(&out)
	return out, res.Error
}

func (r *TypingRepository) ClearStale(ctx context.Context, before time.Time) ([]typingDomain.Status, error) {
	var cleared []typingDomain.Status
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("is_typing = ? AND updated_at < ?", true, before).
			Find(&cleared).Error; err != nil {
			return err
		}
		if len(cleared) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(cleared))
		for i := range cleared {
			ids = append(ids, cleared[i].ID)
			cleared[i].IsTyping = false
		}
		// updated_at is kept so the row still reads as stale
		return tx.Model(&typingDomain.Status{}).
			Where("id IN ? AND is_typing = ?", ids, true).
			UpdateColumn("is_typing", false).Error
	})
	return cleared, err
}
