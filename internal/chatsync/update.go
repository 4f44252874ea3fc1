package chatsync

import (
	"errors"
	"strings"

	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/message"
)

type UpdateKind int

const (
	UpdateMessage UpdateKind = iota + 1
	UpdateTyping
	UpdateDraft
	UpdateUpload
	UpdateConversation
	UpdateNotice
)

// Update signals a change in session state. Only the fields that belong to
// Kind are set.
type Update struct {
	Kind UpdateKind

	Message        *message.Message
	Typing         bool
	Draft          string
	Written, Total int64
	ConversationID string

	Err    error
	Notice string
}

// Describe turns a failure into a line suitable for the chat surface.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, message.ErrAttachmentTooLarge):
		return "Attachments are limited to 5 MiB."
	case errors.Is(err, message.ErrEmpty):
		return "Type a message or attach a file first."
	case errors.Is(err, ErrSendInProgress):
		return "Still sending the previous message."
	case errors.Is(err, ErrNoConversation):
		return "Pick a conversation first."
	case errors.Is(err, ErrProfileIncomplete):
		return "Complete your profile to start chatting with support."
	case errors.Is(err, conversation.ErrArchived):
		return "This conversation has been archived."
	case errors.Is(err, conversation.ErrForbidden), errors.Is(err, conversation.ErrNotFound):
		return "Conversation not available."
	}
	return "Something went wrong: " + err.Error()
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
