package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loandesk/internal/chatsync"
	"loandesk/internal/domain/message"
)

type fakeSession struct {
	mu       sync.Mutex
	updates  chan chatsync.Update
	snap     chatsync.Snapshot
	inputs   []string
	sends    int
	selected []string
	staged   []string
	cleared  int
	closed   bool
	selErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{updates: make(chan chatsync.Update, 16)}
}

func (f *fakeSession) Updates() <-chan chatsync.Update { return f.updates }

func (f *fakeSession) Snapshot() (chatsync.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

func (f *fakeSession) Select(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, id)
	return f.selErr
}

func (f *fakeSession) SetInput(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
	return nil
}

func (f *fakeSession) StageAttachment(name, _ string, size int64, body io.Reader) error {
	if size > message.MaxAttachmentBytes {
		return message.ErrAttachmentTooLarge
	}
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = append(f.staged, name)
	return nil
}

func (f *fakeSession) ClearAttachment() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeSession) Send(context.Context) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return &message.Message{}, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.updates)
	}
	return nil
}

// syncBuffer lets the render goroutine and the test share the output.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

const self = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestConsole_SendsLinesAndQuits(t *testing.T) {
	sess := newFakeSession()
	out := &syncBuffer{}
	c := newConsole(sess, self, out)

	err := c.run(context.Background(), strings.NewReader("hello\nsecond line\n/quit\nignored\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "second line"}, sess.inputs)
	assert.Equal(t, 2, sess.sends)
	assert.True(t, sess.closed)
}

func TestConsole_EOFClosesSession(t *testing.T) {
	sess := newFakeSession()
	c := newConsole(sess, self, &syncBuffer{})

	require.NoError(t, c.run(context.Background(), strings.NewReader("")))
	assert.True(t, sess.closed)
	assert.Zero(t, sess.sends)
}

func TestConsole_Commands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payslip.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	sess := newFakeSession()
	sess.selErr = chatsync.ErrNotAdmin
	out := &syncBuffer{}
	c := newConsole(sess, self, out)

	in := strings.Join([]string{
		"/attach " + path,
		"/detach",
		"/select 0123",
		"/select",
		"/attach " + filepath.Join(dir, "missing.png"),
		"/bogus",
	}, "\n")
	require.NoError(t, c.run(context.Background(), strings.NewReader(in)))

	assert.Equal(t, []string{"payslip.pdf"}, sess.staged)
	assert.Equal(t, 1, sess.cleared)
	assert.Equal(t, []string{"0123"}, sess.selected)
	assert.Zero(t, sess.sends)

	got := out.String()
	assert.Contains(t, got, "attached payslip.pdf (8 bytes)")
	assert.Contains(t, got, "only support staff")
	assert.Contains(t, got, "usage: /select")
	assert.Contains(t, got, "missing.png")
	assert.Contains(t, got, "unknown command /bogus")
}

func TestConsole_AdminWithoutConversation(t *testing.T) {
	sess := newFakeSession()
	sess.snap = chatsync.Snapshot{View: chatsync.AdminView{}}
	out := &syncBuffer{}
	c := newConsole(sess, self, out)

	require.NoError(t, c.run(context.Background(), strings.NewReader("/quit\n")))
	assert.Contains(t, out.String(), "no conversation selected")
}

func TestConsole_RendersUpdates(t *testing.T) {
	sess := newFakeSession()
	out := &syncBuffer{}
	c := newConsole(sess, self, out)

	sess.updates <- chatsync.Update{Kind: chatsync.UpdateConversation, ConversationID: "c1"}
	sess.updates <- chatsync.Update{Kind: chatsync.UpdateTyping, Typing: true}
	sess.updates <- chatsync.Update{Kind: chatsync.UpdateUpload, Written: 50, Total: 200}
	sess.updates <- chatsync.Update{Kind: chatsync.UpdateNotice, Notice: "Attachments are limited to 5 MiB."}
	sess.updates <- chatsync.Update{Kind: chatsync.UpdateMessage, Message: &message.Message{SenderID: "b", IsSupport: true, Body: "hi"}}

	// run drains the buffered updates before Close returns
	require.NoError(t, c.run(context.Background(), strings.NewReader("")))

	got := out.String()
	assert.Contains(t, got, "== conversation c1 ==")
	assert.Contains(t, got, "... typing")
	assert.Contains(t, got, "uploading 25%")
	assert.Contains(t, got, "! Attachments are limited to 5 MiB.")
	assert.Contains(t, got, "support: hi")
}

func TestFormatMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	url := "http://files.test/files/a.png"
	read := at.Add(time.Minute)

	tests := []struct {
		name string
		msg  message.Message
		want string
	}{
		{
			name: "own unread",
			msg:  message.Message{SenderID: self, Body: "hello", CreatedAt: at},
			want: "[09:30] you: hello (delivered)",
		},
		{
			name: "own read with attachment",
			msg:  message.Message{SenderID: self, Body: "doc", AttachmentURL: &url, ReadAt: &read, CreatedAt: at},
			want: "[09:30] you: doc [attachment " + url + "] (read)",
		},
		{
			name: "support",
			msg:  message.Message{SenderID: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", IsSupport: true, Body: "approved", CreatedAt: at},
			want: "[09:30] support: approved",
		},
		{
			name: "borrower seen by staff",
			msg:  message.Message{SenderID: "cccccccc11111111cccccccc11111111", AttachmentURL: &url, CreatedAt: at},
			want: "[09:30] user cccccccc: [attachment " + url + "]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMessage(self, tt.msg))
		})
	}
}
