package chat

import (
	"context"
	"errors"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/typing"
	"loandesk/internal/domain/user"
	"loandesk/pkg/id"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Usecase struct {
	convs    conversation.Repository
	messages message.Repository
	typing   typing.Repository
	profiles profile.Repository
	objects  ObjectStore
	now      func() time.Time
}

func NewUsecase(convs conversation.Repository, messages message.Repository, typingRepo typing.Repository, profiles profile.Repository, objects ObjectStore) *Usecase {
	return &Usecase{
		convs:    convs,
		messages: messages,
		typing:   typingRepo,
		profiles: profiles,
		objects:  objects,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) Viewer(ctx context.Context, actor user.Actor) (*Viewer, error) {
	v := &Viewer{UserID: actor.UserID, IsAdmin: actor.IsAdmin()}
	p, err := u.profiles.GetByOwnerID(ctx, actor.UserID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return v, nil
	case err != nil:
		return nil, err
	}
	v.FullName = strings.TrimSpace(p.FullName)
	v.Complete = p.Complete()
	v.IsAdmin = v.IsAdmin || p.IsAdmin
	return v, nil
}

// EnsureConversation returns the end user's active conversation, creating it
// on first access. Admins have no conversation of their own.
func (u *Usecase) EnsureConversation(ctx context.Context, actor user.Actor) (*conversation.Conversation, error) {
	if actor.IsAdmin() {
		return nil, conversation.ErrForbidden
	}
	v, err := u.Viewer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !v.Complete {
		return nil, profile.ErrIncomplete
	}
	return u.activeFor(ctx, actor.UserID)
}

func (u *Usecase) activeFor(ctx context.Context, ownerID string) (*conversation.Conversation, error) {
	c, err := u.convs.GetActiveByOwner(ctx, ownerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = &conversation.Conversation{ConversationID: id.New(), OwnerID: ownerID}
	err = u.convs.Create(ctx, c)
	if errors.Is(err, conversation.ErrActiveExists) {
		// a concurrent open won the insert
		return u.convs.GetActiveByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Conversation loads conversationID if actor may see it.
func (u *Usecase) Conversation(ctx context.Context, actor user.Actor, conversationID string) (*conversation.Conversation, error) {
	c, err := u.convs.GetByConversationID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conversation.ErrNotFound
		}
		return nil, err
	}
	if c.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, conversation.ErrForbidden
	}
	return c, nil
}

func (u *Usecase) History(ctx context.Context, actor user.Actor, conversationID string) ([]message.Message, error) {
	if _, err := u.Conversation(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return u.messages.ListByConversation(ctx, conversationID)
}

func (u *Usecase) Send(ctx context.Context, actor user.Actor, conversationID string, in SendInput) (*message.Message, error) {
	c, err := u.Conversation(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	if c.Status == conversation.StatusArchived {
		return nil, conversation.ErrArchived
	}
	return u.post(ctx, c.ConversationID, actor.UserID, actor.IsAdmin(), in)
}

func (u *Usecase) post(ctx context.Context, conversationID, senderID string, support bool, in SendInput) (*message.Message, error) {
	body := strings.TrimSpace(in.Body)
	url := strings.TrimSpace(in.AttachmentURL)
	if body == "" && url == "" {
		return nil, message.ErrEmpty
	}

	m := &message.Message{
		MessageID:      id.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		IsSupport:      support,
		CreatedAt:      u.now(),
	}
	if url != "" {
		m.AttachmentURL = &url
		if ct := strings.TrimSpace(in.AttachmentType); ct != "" {
			m.AttachmentType = &ct
		}
	}
	if err := u.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := u.convs.Touch(ctx, conversationID, m.CreatedAt); err != nil {
		log.Printf("chat: touch conversation %s: %v", conversationID, err)
	}
	return m, nil
}

// PostSupport appends a support-authored message to ownerID's active
// conversation, opening one if needed.
func (u *Usecase) PostSupport(ctx context.Context, ownerID, body string) (*message.Message, error) {
	c, err := u.activeFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return u.post(ctx, c.ConversationID, SupportSenderID, true, SendInput{Body: body})
}

// MarkRead stamps read_at on a message the actor did not send. Reports whether
// this call changed the row.
func (u *Usecase) MarkRead(ctx context.Context, actor user.Actor, messageID string) (bool, error) {
	m, err := u.messages.GetByMessageID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, message.ErrNotFound
		}
		return false, err
	}
	if _, err := u.Conversation(ctx, actor, m.ConversationID); err != nil {
		return false, err
	}
	if m.SenderID == actor.UserID || m.ReadAt != nil {
		return false, nil
	}
	return u.messages.MarkRead(ctx, messageID, u.now())
}

func (u *Usecase) SetTyping(ctx context.Context, actor user.Actor, conversationID string, isTyping bool) (*typing.Status, error) {
	if _, err := u.Conversation(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	s := &typing.Status{
		ConversationID: conversationID,
		ParticipantID:  actor.UserID,
		IsTyping:       isTyping,
		UpdatedAt:      u.now(),
	}
	if err := u.typing.Upsert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *Usecase) Typing(ctx context.Context, actor user.Actor, conversationID string) ([]typing.Status, error) {
	if _, err := u.Conversation(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return u.typing.ListByConversation(ctx, conversationID)
}

// Upload stores an attachment under <actor>/<random><ext>. Oversized bodies
// are rejected before the object store is touched.
func (u *Usecase) Upload(ctx context.Context, actor user.Actor, in UploadInput, progress Progress) (*Attachment, error) {
	if in.Size > message.MaxAttachmentBytes {
		return nil, message.ErrAttachmentTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(in.Name)))
	ct := strings.TrimSpace(in.ContentType)
	if ct == "" {
		ct = mime.TypeByExtension(ext)
	}
	if ct == "" {
		ct = "application/octet-stream"
	}

	path := actor.UserID + "/" + uuid.NewString() + ext
	url, err := u.objects.Put(ctx, path, ct, in.Body, in.Size, progress)
	if err != nil {
		return nil, err
	}
	return &Attachment{Path: path, URL: url, ContentType: ct, Size: in.Size}, nil
}

func (u *Usecase) ListConversations(ctx context.Context, actor user.Actor, status string) ([]conversation.Conversation, error) {
	if !actor.IsAdmin() {
		return nil, conversation.ErrForbidden
	}
	return u.convs.List(ctx, conversation.Status(status))
}

func (u *Usecase) Archive(ctx context.Context, actor user.Actor, conversationID string) error {
	if !actor.IsAdmin() {
		return conversation.ErrForbidden
	}
	err := u.convs.Archive(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return conversation.ErrNotFound
	}
	return err
}
