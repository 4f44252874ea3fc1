package typing

import "time"

// Table: typing_statuses. One row per (conversation, participant).
type Status struct {
	ID             uint64    `gorm:"primaryKey;column:id" json:"-"`
	ConversationID string    `gorm:"size:32;not null;uniqueIndex:ux_typing_conversation_participant,priority:1" json:"conversation_id"`
	ParticipantID  string    `gorm:"size:32;not null;uniqueIndex:ux_typing_conversation_participant,priority:2" json:"participant_id"`
	IsTyping       bool      `gorm:"not null;default:false" json:"is_typing"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (Status) TableName() string { return "typing_statuses" }

// Stale reports whether a set flag has outlived the staleness window.
func (s Status) Stale(now time.Time, window time.Duration) bool {
	return s.IsTyping && now.Sub(s.UpdatedAt) > window
}
