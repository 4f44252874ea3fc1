package conversation

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("conversation not found")
	// Another active conversation already exists for the owner.
	ErrActiveExists = errors.New("owner already has an active conversation")
	ErrForbidden    = errors.New("conversation belongs to another user")
	ErrArchived     = errors.New("conversation is archived")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Table: conversations.
//
// ActiveOwnerID mirrors OwnerID while the conversation is active and is NULL
// afterwards; its unique index enforces one active conversation per owner.
type Conversation struct {
	ID             uint64    `gorm:"primaryKey;column:id" json:"-"`
	ConversationID string    `gorm:"size:32;uniqueIndex:ux_conversations_conversation_id" json:"conversation_id"`
	OwnerID        string    `gorm:"size:32;index:idx_conversations_owner" json:"owner_id"`
	ActiveOwnerID  *string   `gorm:"size:32;uniqueIndex:ux_conversations_active_owner" json:"-"`
	Status         Status    `gorm:"size:16;default:'active'" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }
