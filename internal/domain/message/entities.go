package message

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("message not found")
	// Neither body text nor an attachment was supplied.
	ErrEmpty              = errors.New("message has no text and no attachment")
	ErrAttachmentTooLarge = errors.New("attachment exceeds 5 MiB")
)

// MaxAttachmentBytes bounds a single uploaded attachment.
const MaxAttachmentBytes = 5 << 20

// Table: messages. Immutable once created except ReadAt, which moves from
// NULL to a value at most once.
type Message struct {
	ID             uint64     `gorm:"primaryKey;column:id" json:"-"`
	MessageID      string     `gorm:"size:32;uniqueIndex:ux_messages_message_id" json:"message_id"`
	ConversationID string     `gorm:"size:32;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string     `gorm:"size:32;not null" json:"sender_id"`
	Body           string     `gorm:"type:text" json:"body"`
	IsSupport      bool       `gorm:"not null;default:false" json:"is_support"`
	AttachmentURL  *string    `gorm:"type:text" json:"attachment_url,omitempty"`
	AttachmentType *string    `gorm:"size:128" json:"attachment_type,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) HasAttachment() bool { return m.AttachmentURL != nil && *m.AttachmentURL != "" }
