package chatsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"loandesk/internal/adapter/realtime"
	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/typing"
	"loandesk/internal/domain/user"
	"loandesk/internal/usecase/chat"
)

const (
	convID  = "c0000000000000000000000000000001"
	conv2ID = "c0000000000000000000000000000002"
	ownerID = "a0000000000000000000000000000001"
	adminID = "f0000000000000000000000000000001"
)

var (
	owner = user.Actor{UserID: ownerID, Role: user.RoleUser}
	admin = user.Actor{UserID: adminID, Role: user.RoleAdmin}
)

type fakeBackend struct {
	mu sync.Mutex

	complete   bool
	history    []message.Message
	historyErr error
	sendErr    error
	sendGate   chan struct{}
	uploadErr  error

	// typingDelay slows every SetTyping call
	typingDelay time.Duration
	historyGate chan struct{}

	ensured  int
	sent     []chat.SendInput
	uploads  []string
	reads    []string
	typings  []bool
	typingAt []string
	nextID   int
	readOnce map[string]bool
}

func newBackend() *fakeBackend {
	return &fakeBackend{complete: true, readOnce: map[string]bool{}}
}

func (b *fakeBackend) Viewer(_ context.Context, a user.Actor) (*chat.Viewer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &chat.Viewer{UserID: a.UserID, IsAdmin: a.IsAdmin(), Complete: b.complete}, nil
}

func (b *fakeBackend) EnsureConversation(context.Context, user.Actor) (*conversation.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensured++
	return &conversation.Conversation{ConversationID: convID, OwnerID: ownerID, Status: conversation.StatusActive}, nil
}

func (b *fakeBackend) History(ctx context.Context, _ user.Actor, _ string) ([]message.Message, error) {
	b.mu.Lock()
	gate := b.historyGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return append([]message.Message(nil), b.history...), nil
}

func (b *fakeBackend) Send(ctx context.Context, a user.Actor, conv string, in chat.SendInput) (*message.Message, error) {
	b.mu.Lock()
	gate := b.sendGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	b.sent = append(b.sent, in)
	b.nextID++
	m := &message.Message{
		MessageID:      fmt.Sprintf("m%031d", b.nextID),
		ConversationID: conv,
		SenderID:       a.UserID,
		Body:           in.Body,
		CreatedAt:      time.Now().UTC(),
	}
	if in.AttachmentURL != "" {
		m.AttachmentURL = &in.AttachmentURL
		m.AttachmentType = &in.AttachmentType
	}
	return m, nil
}

func (b *fakeBackend) MarkRead(_ context.Context, _ user.Actor, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads = append(b.reads, id)
	if b.readOnce[id] {
		return false, nil
	}
	b.readOnce[id] = true
	return true, nil
}

func (b *fakeBackend) SetTyping(ctx context.Context, a user.Actor, conv string, on bool) (*typing.Status, error) {
	b.mu.Lock()
	delay := b.typingDelay
	b.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.typings = append(b.typings, on)
	b.typingAt = append(b.typingAt, conv)
	return &typing.Status{ConversationID: conv, ParticipantID: a.UserID, IsTyping: on, UpdatedAt: time.Now().UTC()}, nil
}

func (b *fakeBackend) Upload(_ context.Context, a user.Actor, in chat.UploadInput, progress chat.Progress) (*chat.Attachment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return nil, b.uploadErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(int64(len(data)), in.Size)
	}
	b.uploads = append(b.uploads, in.Name)
	return &chat.Attachment{Path: a.UserID + "/" + in.Name, URL: "http://files/" + in.Name, ContentType: in.ContentType, Size: int64(len(data))}, nil
}

func (b *fakeBackend) typingWrites() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.typings...)
}

// lastTyping returns the most recent flag written for conv.
func (b *fakeBackend) lastTyping(conv string) (on, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.typingAt) - 1; i >= 0; i-- {
		if b.typingAt[i] == conv {
			return b.typings[i], true
		}
	}
	return false, false
}

func (b *fakeBackend) readIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.reads...)
}

// fakeFeed hands out in-process subscriptions and lets tests push rows.
type fakeFeed struct {
	mu   sync.Mutex
	subs map[string][]chan realtime.Event
	fail error
}

func newFeed() *fakeFeed { return &fakeFeed{subs: map[string][]chan realtime.Event{}} }

func (f *fakeFeed) Subscribe(_ context.Context, topic realtime.Topic, conv string) (*realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	ch := make(chan realtime.Event, 16)
	key := realtime.Channel(topic, conv)
	f.subs[key] = append(f.subs[key], ch)
	var once sync.Once
	return realtime.NewSubscription(ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.remove(key, ch) {
				close(ch)
			}
		})
	}), nil
}

func (f *fakeFeed) remove(key string, ch chan realtime.Event) bool {
	list := f.subs[key]
	for i, c := range list {
		if c == ch {
			f.subs[key] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeFeed) push(topic realtime.Topic, conv string, row any) {
	b, _ := json.Marshal(row)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[realtime.Channel(topic, conv)] {
		ch <- realtime.Event{Topic: topic, ConversationID: conv, Payload: b}
	}
}

// drop closes every subscription from the server side.
func (f *fakeFeed) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, list := range f.subs {
		for _, ch := range list {
			close(ch)
		}
		delete(f.subs, key)
	}
}

func (f *fakeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, list := range f.subs {
		n += len(list)
	}
	return n
}

var errBoom = errors.New("boom")
