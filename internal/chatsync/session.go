// Package chatsync keeps a live, two-party view of one support conversation:
// ordered messages, the other side's typing indicator and read receipts.
//
// A Session owns its state on a single goroutine. Public methods, feed
// deliveries, timer expiries and completed backend calls all reach that
// goroutine as closures over channels, so state is never shared.
package chatsync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"loandesk/internal/adapter/realtime"
	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/typing"
	"loandesk/internal/domain/user"
	"loandesk/internal/usecase/chat"
)

var (
	// ErrProfileIncomplete blocks an end user without a named profile.
	ErrProfileIncomplete = profile.ErrIncomplete
	ErrClosed            = errors.New("chat session closed")
	ErrNoConversation    = errors.New("no conversation selected")
	ErrSendInProgress    = errors.New("a send is already in progress")
	ErrNotAdmin          = errors.New("only support staff can switch conversations")
	ErrSelectSuperseded  = errors.New("another conversation was selected meanwhile")
)

const (
	DefaultTypingIdle   = 3 * time.Second
	DefaultStaleAfter   = 10 * time.Second
	defaultUpdateBuffer = 128
)

// Backend is the set of chat store operations a session drives.
type Backend interface {
	Viewer(ctx context.Context, actor user.Actor) (*chat.Viewer, error)
	EnsureConversation(ctx context.Context, actor user.Actor) (*conversation.Conversation, error)
	History(ctx context.Context, actor user.Actor, conversationID string) ([]message.Message, error)
	Send(ctx context.Context, actor user.Actor, conversationID string, in chat.SendInput) (*message.Message, error)
	MarkRead(ctx context.Context, actor user.Actor, messageID string) (bool, error)
	SetTyping(ctx context.Context, actor user.Actor, conversationID string, isTyping bool) (*typing.Status, error)
	Upload(ctx context.Context, actor user.Actor, in chat.UploadInput, progress chat.Progress) (*chat.Attachment, error)
}

var _ Backend = (*chat.Usecase)(nil)

type Options struct {
	// ConversationID preselects a conversation for support staff.
	ConversationID string
	// TypingIdle is the inactivity delay before the typing flag clears.
	TypingIdle time.Duration
	// StaleAfter hides the other side's typing flag once it has not been
	// refreshed for this long.
	StaleAfter time.Duration
	// UpdateBuffer sizes the Updates channel.
	UpdateBuffer int
}

// View is either EndUserView or AdminView, fixed once the identity is known.
type View interface{ isView() }

type EndUserView struct{ ConversationID string }

// AdminView starts without a conversation until one is selected.
type AdminView struct{ ConversationID string }

func (EndUserView) isView() {}
func (AdminView) isView()   {}

// Staged is an attachment waiting for the next Send.
type Staged struct {
	Name        string
	ContentType string
	Size        int64
	data        []byte
}

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	View       View
	Viewer     chat.Viewer
	Messages   []message.Message
	Typing     bool
	Draft      string
	Attachment *Staged
	Sending    bool
	Live       bool
}

type Session struct {
	backend Backend
	feed    realtime.Subscriber
	actor   user.Actor
	opts    Options

	ctx      context.Context
	cancel   context.CancelFunc
	cmds     chan func()
	updates  chan Update
	loopDone chan struct{}
	tasks    sync.WaitGroup
	once     sync.Once

	// owned by the loop goroutine
	st     state
	writer *typingWriter
}

type state struct {
	view     View
	viewer   chat.Viewer
	conv     string
	messages []message.Message
	seen     map[string]int
	typing   map[string]typing.Status

	// last indicator value emitted
	shownTyping bool
	selectGen   uint64

	draft   string
	staged  *Staged
	sending bool

	localTyping bool
	lastTrue    time.Time
	timer       *time.Timer
	timerGen    uint64

	msgSub *realtime.Subscription
	typSub *realtime.Subscription
}

// Open resolves the caller, picks the view and, when a conversation is known,
// loads its history and subscribes to its feeds.
func Open(ctx context.Context, backend Backend, feed realtime.Subscriber, actor user.Actor, opts Options) (*Session, error) {
	if opts.TypingIdle <= 0 {
		opts.TypingIdle = DefaultTypingIdle
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = defaultUpdateBuffer
	}

	viewer, err := backend.Viewer(ctx, actor)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:  backend,
		feed:     feed,
		actor:    actor,
		opts:     opts,
		ctx:      sctx,
		cancel:   cancel,
		cmds:     make(chan func()),
		updates:  make(chan Update, opts.UpdateBuffer),
		loopDone: make(chan struct{}),
	}
	s.st.viewer = *viewer
	s.writer = newTypingWriter(s)

	if actor.IsAdmin() {
		s.st.view = AdminView{}
		if opts.ConversationID != "" {
			if err := s.attach(ctx, opts.ConversationID); err != nil {
				cancel()
				return nil, err
			}
		}
	} else {
		if !viewer.Complete {
			cancel()
			return nil, ErrProfileIncomplete
		}
		c, err := backend.EnsureConversation(ctx, actor)
		if err != nil {
			cancel()
			return nil, err
		}
		if err := s.attach(ctx, c.ConversationID); err != nil {
			cancel()
			return nil, err
		}
	}

	go s.writer.run(sctx)
	go s.loop()
	return s, nil
}

// Updates delivers state changes and notices until Close. Sends never block
// the session; a slow reader may miss updates and should re-read Snapshot.
func (s *Session) Updates() <-chan Update { return s.updates }

// Close unsubscribes, stops timers and waits for the session goroutines.
// No update is delivered after Close returns.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.loopDone
		s.tasks.Wait()
		close(s.updates)
	})
	return nil
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		var msgC, typC <-chan realtime.Event
		if s.st.msgSub != nil {
			msgC = s.st.msgSub.C
		}
		if s.st.typSub != nil {
			typC = s.st.typSub.C
		}

		select {
		case <-s.ctx.Done():
			s.teardown()
			return
		case fn := <-s.cmds:
			fn()
		case ev, ok := <-msgC:
			if !ok {
				s.st.msgSub = nil
				s.dropped()
				continue
			}
			var m message.Message
			if err := ev.Decode(&m); err != nil {
				s.notice(err)
				continue
			}
			s.receiveMessage(m)
		case ev, ok := <-typC:
			if !ok {
				s.st.typSub = nil
				s.dropped()
				continue
			}
			var t typing.Status
			if err := ev.Decode(&t); err != nil {
				s.notice(err)
				continue
			}
			s.receiveTyping(t)
		}
	}
}

// call runs fn on the loop goroutine and waits for it.
func (s *Session) call(fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(done) }:
	case <-s.loopDone:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-s.loopDone:
		return ErrClosed
	}
}

// post hands fn to the loop from a background goroutine. It reports false
// when the session closed first and fn was dropped.
func (s *Session) post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// spawn runs work off the loop; the closure it returns is applied on the loop.
func (s *Session) spawn(work func(ctx context.Context) func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if apply := work(s.ctx); apply != nil {
			s.post(apply)
		}
	}()
}

func (s *Session) emit(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

func (s *Session) notice(err error) {
	s.emit(Update{Kind: UpdateNotice, Err: err, Notice: Describe(err)})
}

func (s *Session) dropped() {
	s.emit(Update{Kind: UpdateNotice, Notice: "Live updates disconnected. Reopen the chat to resume."})
}

// loaded is a conversation fetched off the loop, waiting to be installed.
type loaded struct {
	conv    string
	history []message.Message
	msgSub  *realtime.Subscription
	typSub  *realtime.Subscription
	subErrs []error
}

func (l *loaded) release() {
	if l.msgSub != nil {
		l.msgSub.Close()
	}
	if l.typSub != nil {
		l.typSub.Close()
	}
}

// load reads the history of conversationID and subscribes to its feeds.
// A failed subscription is recorded, not returned.
func (s *Session) load(ctx context.Context, conversationID string) (*loaded, error) {
	history, err := s.backend.History(ctx, s.actor, conversationID)
	if err != nil {
		return nil, err
	}
	l := &loaded{conv: conversationID, history: history}
	if sub, err := s.feed.Subscribe(ctx, realtime.TopicMessages, conversationID); err != nil {
		l.subErrs = append(l.subErrs, err)
	} else {
		l.msgSub = sub
	}
	if sub, err := s.feed.Subscribe(ctx, realtime.TopicTyping, conversationID); err != nil {
		l.subErrs = append(l.subErrs, err)
	} else {
		l.typSub = sub
	}
	return l, nil
}

// install replaces whatever conversation was attached with l.
func (s *Session) install(l *loaded) {
	s.detach()

	s.st.conv = l.conv
	s.st.messages = l.history
	s.st.seen = make(map[string]int, len(l.history))
	s.st.typing = map[string]typing.Status{}
	for i, m := range l.history {
		s.st.seen[m.MessageID] = i
	}
	switch s.st.view.(type) {
	case AdminView:
		s.st.view = AdminView{ConversationID: l.conv}
	default:
		s.st.view = EndUserView{ConversationID: l.conv}
	}
	s.st.msgSub, s.st.typSub = l.msgSub, l.typSub
	for _, err := range l.subErrs {
		s.notice(err)
	}
	s.refreshTyping()

	for _, m := range l.history {
		if m.SenderID != s.actor.UserID && m.ReadAt == nil {
			s.markRead(m.MessageID)
		}
	}
	s.emit(Update{Kind: UpdateConversation, ConversationID: l.conv})
}

// attach loads and installs conversationID before the loop starts.
func (s *Session) attach(ctx context.Context, conversationID string) error {
	l, err := s.load(ctx, conversationID)
	if err != nil {
		return err
	}
	s.install(l)
	return nil
}

func (s *Session) detach() {
	if s.st.msgSub != nil {
		s.st.msgSub.Close()
		s.st.msgSub = nil
	}
	if s.st.typSub != nil {
		s.st.typSub.Close()
		s.st.typSub = nil
	}
	s.clearTyping()
}

func (s *Session) teardown() {
	s.detach()
	s.writer.shutdown()
}

func (s *Session) receiveMessage(m message.Message) {
	if m.ConversationID != s.st.conv {
		return
	}
	if _, dup := s.st.seen[m.MessageID]; dup {
		return
	}
	s.st.seen[m.MessageID] = len(s.st.messages)
	s.st.messages = append(s.st.messages, m)
	s.emit(Update{Kind: UpdateMessage, Message: &m})

	if m.SenderID != s.actor.UserID {
		s.markRead(m.MessageID)
	}
}

func (s *Session) markRead(messageID string) {
	s.spawn(func(ctx context.Context) func() {
		changed, err := s.backend.MarkRead(ctx, s.actor, messageID)
		return func() {
			if err != nil {
				s.notice(err)
				return
			}
			if !changed {
				return
			}
			if i, ok := s.st.seen[messageID]; ok && s.st.messages[i].ReadAt == nil {
				now := time.Now().UTC()
				s.st.messages[i].ReadAt = &now
			}
		}
	})
}

func (s *Session) receiveTyping(t typing.Status) {
	if t.ConversationID != s.st.conv {
		return
	}
	s.st.typing[t.ParticipantID] = t
	if t.IsTyping && t.ParticipantID != s.actor.UserID {
		s.recheckAt(t.UpdatedAt.Add(s.opts.StaleAfter))
	}
	s.refreshTyping()
}

// recheckAt re-evaluates the indicator just after at, when a flag that was
// never cleared turns stale.
func (s *Session) recheckAt(at time.Time) {
	conv := s.st.conv
	d := time.Until(at) + time.Millisecond
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, func() {
		s.post(func() {
			if s.st.conv == conv {
				s.refreshTyping()
			}
		})
	})
}

func (s *Session) refreshTyping() {
	if on := s.othersTyping(); on != s.st.shownTyping {
		s.st.shownTyping = on
		s.emit(Update{Kind: UpdateTyping, Typing: on})
	}
}

func (s *Session) othersTyping() bool {
	now := time.Now()
	for pid, t := range s.st.typing {
		if pid != s.actor.UserID && t.IsTyping && !t.Stale(now, s.opts.StaleAfter) {
			return true
		}
	}
	return false
}

// Select attaches support staff to conversationID. History and feeds are
// fetched off the session goroutine; ctx bounds the wait and the fetch.
// When a later Select wins the race, the earlier one returns
// ErrSelectSuperseded and leaves the later conversation attached.
func (s *Session) Select(ctx context.Context, conversationID string) error {
	reply := make(chan error, 1)
	cerr := s.call(func() {
		if _, ok := s.st.view.(AdminView); !ok {
			reply <- ErrNotAdmin
			return
		}
		s.st.selectGen++
		gen := s.st.selectGen
		if conversationID == s.st.conv {
			reply <- nil
			return
		}
		s.spawn(func(tctx context.Context) func() {
			lctx, cancel := context.WithCancel(tctx)
			defer cancel()
			stop := context.AfterFunc(ctx, cancel)
			defer stop()

			l, err := s.load(lctx, conversationID)
			if !s.post(func() { s.selected(gen, l, err, reply) }) && l != nil {
				l.release()
			}
			return nil
		})
	})
	if cerr != nil {
		return cerr
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loopDone:
		return ErrClosed
	}
}

// selected applies a finished load unless a newer Select started since.
func (s *Session) selected(gen uint64, l *loaded, err error, reply chan<- error) {
	if gen != s.st.selectGen {
		if l != nil {
			l.release()
		}
		reply <- ErrSelectSuperseded
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.notice(err)
		}
		reply <- err
		return
	}
	s.install(l)
	reply <- nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.call(func() {
		snap = Snapshot{
			View:     s.st.view,
			Viewer:   s.st.viewer,
			Messages: append([]message.Message(nil), s.st.messages...),
			Typing:   s.othersTyping(),
			Draft:    s.st.draft,
			Sending:  s.st.sending,
			Live:     s.st.msgSub != nil && s.st.typSub != nil,
		}
		if s.st.staged != nil {
			cp := *s.st.staged
			cp.data = nil
			snap.Attachment = &cp
		}
	})
	return snap, err
}

// Typing reports whether the other participant is typing.
func (s *Session) Typing() bool {
	var v bool
	_ = s.call(func() { v = s.othersTyping() })
	return v
}

// SetInput records the compose text and drives the local typing flag.
func (s *Session) SetInput(text string) error {
	return s.call(func() { s.setInput(text) })
}

// Blur clears the typing flag as if focus left the compose box.
func (s *Session) Blur() error {
	return s.call(func() { s.clearTyping() })
}

func (s *Session) setInput(text string) {
	s.st.draft = text
	if text == "" {
		s.clearTyping()
		return
	}
	if s.st.conv == "" {
		return
	}
	now := time.Now()
	// refresh a long-running flag so the stale sweep leaves it alone
	if !s.st.localTyping || now.Sub(s.st.lastTrue) >= s.opts.TypingIdle {
		s.st.localTyping = true
		s.st.lastTrue = now
		s.writer.set(s.st.conv, true)
	}
	s.armTimer()
}

func (s *Session) clearTyping() {
	s.stopTimer()
	if !s.st.localTyping {
		return
	}
	s.st.localTyping = false
	s.writer.set(s.st.conv, false)
}

func (s *Session) armTimer() {
	s.stopTimer()
	s.st.timerGen++
	gen := s.st.timerGen
	s.st.timer = time.AfterFunc(s.opts.TypingIdle, func() {
		s.post(func() {
			if gen == s.st.timerGen {
				s.clearTyping()
			}
		})
	})
}

func (s *Session) stopTimer() {
	if s.st.timer != nil {
		s.st.timer.Stop()
		s.st.timer = nil
	}
	s.st.timerGen++
}

// StageAttachment reads body into memory for the next Send. Files over
// 5 MiB are refused before anything is uploaded; the draft is untouched.
func (s *Session) StageAttachment(name, contentType string, size int64, body io.Reader) error {
	if size > message.MaxAttachmentBytes {
		_ = s.call(func() { s.notice(message.ErrAttachmentTooLarge) })
		return message.ErrAttachmentTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(body, message.MaxAttachmentBytes+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > message.MaxAttachmentBytes {
		_ = s.call(func() { s.notice(message.ErrAttachmentTooLarge) })
		return message.ErrAttachmentTooLarge
	}
	staged := &Staged{Name: name, ContentType: contentType, Size: int64(len(data)), data: data}
	return s.call(func() {
		s.st.staged = staged
		s.emit(Update{Kind: UpdateDraft, Draft: s.st.draft})
	})
}

func (s *Session) ClearAttachment() error {
	return s.call(func() {
		s.st.staged = nil
		s.emit(Update{Kind: UpdateDraft, Draft: s.st.draft})
	})
}

// Send posts the draft and staged attachment. On success both are cleared
// unless they were replaced while the send was in flight; on failure they
// are kept and a notice is emitted. Nothing is retried.
func (s *Session) Send(ctx context.Context) (*message.Message, error) {
	type result struct {
		msg *message.Message
		err error
	}
	reply := make(chan result, 1)

	cerr := s.call(func() {
		if err := s.checkSend(); err != nil {
			s.notice(err)
			reply <- result{err: err}
			return
		}
		s.st.sending = true
		conv, text, staged := s.st.conv, s.st.draft, s.st.staged

		s.spawn(func(tctx context.Context) func() {
			m, err := s.deliver(tctx, conv, text, staged)
			return func() {
				s.st.sending = false
				if err != nil {
					s.notice(err)
					reply <- result{err: err}
					return
				}
				// edits made while the send was in flight survive it
				if s.st.draft == text {
					s.st.draft = ""
					s.clearTyping()
				}
				if s.st.staged == staged {
					s.st.staged = nil
				}
				s.receiveMessage(*m)
				s.emit(Update{Kind: UpdateDraft, Draft: s.st.draft})
				reply <- result{msg: m}
			}
		})
	})
	if cerr != nil {
		return nil, cerr
	}

	select {
	case r := <-reply:
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.loopDone:
		return nil, ErrClosed
	}
}

func (s *Session) checkSend() error {
	switch {
	case s.st.conv == "":
		return ErrNoConversation
	case s.st.sending:
		return ErrSendInProgress
	case isBlank(s.st.draft) && s.st.staged == nil:
		return message.ErrEmpty
	}
	return nil
}

// deliver runs off the loop: upload first, then insert the message row.
func (s *Session) deliver(ctx context.Context, conv, text string, staged *Staged) (*message.Message, error) {
	in := chat.SendInput{Body: text}
	if staged != nil {
		progress := func(written, total int64) {
			s.post(func() {
				s.emit(Update{Kind: UpdateUpload, Written: written, Total: total})
			})
		}
		att, err := s.backend.Upload(ctx, s.actor, chat.UploadInput{
			Name:        staged.Name,
			ContentType: staged.ContentType,
			Size:        staged.Size,
			Body:        bytes.NewReader(staged.data),
		}, progress)
		if err != nil {
			return nil, err
		}
		in.AttachmentURL = att.URL
		in.AttachmentType = att.ContentType
	}
	return s.backend.Send(ctx, s.actor, conv, in)
}

// Receipt renders the delivery state of a sent message.
func Receipt(m message.Message) string {
	if m.ReadAt != nil {
		return "read"
	}
	return "delivered"
}
