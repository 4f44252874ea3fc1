package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loandesk/internal/chatsync"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/user"
	"loandesk/internal/usecase/auth"
)

type ChatOptions struct {
	*RootOptions
	Email        string
	Password     string
	Token        string
	Conversation string
	TypingIdle   time.Duration
}

func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the support chat in the terminal",
		Long: `Open the support chat in the terminal.

Borrowers land in their own conversation; support staff pick one with
--conversation or /select. Each input line is sent as a message.

Commands:
  /attach <path>   stage a file (max 5 MiB) for the next message
  /detach          drop the staged file
  /select <id>     switch conversation (support staff only)
  /history         print the conversation again
  /quit            leave`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (default $LOANDESK_PASSWORD)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "access token instead of email and password")
	cmd.Flags().StringVar(&opts.Conversation, "conversation", "", "conversation to open (support staff)")
	cmd.Flags().DurationVar(&opts.TypingIdle, "typing-idle", chatsync.DefaultTypingIdle, "inactivity before the typing flag clears")

	return cmd
}

func runChat(cmd *cobra.Command, opts *ChatOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	actor, err := signIn(ctx, s, opts)
	if err != nil {
		return err
	}
	sess, err := chatsync.Open(ctx, s.chat, s.feed, actor, chatsync.Options{
		ConversationID: opts.Conversation,
		TypingIdle:     opts.TypingIdle,
		StaleAfter:     s.cfg.TypingStaleAfter,
	})
	if err != nil {
		if errors.Is(err, chatsync.ErrProfileIncomplete) {
			return errors.New(chatsync.Describe(err))
		}
		return fmt.Errorf("open chat: %w", err)
	}

	c := newConsole(sess, actor.UserID, cmd.OutOrStdout())
	return c.run(ctx, cmd.InOrStdin())
}

func signIn(ctx context.Context, s *stack, opts *ChatOptions) (user.Actor, error) {
	if opts.Token != "" {
		a, err := s.tokens.Parse(opts.Token)
		if err != nil {
			return user.Actor{}, fmt.Errorf("token: %w", err)
		}
		return s.auth.Actor(ctx, a.UserID)
	}
	if opts.Email == "" {
		return user.Actor{}, errors.New("either --token or --email is required")
	}
	password := opts.Password
	if password == "" {
		password = os.Getenv("LOANDESK_PASSWORD")
	}
	tok, err := s.auth.Login(ctx, auth.LoginInput{Email: opts.Email, Password: password})
	if err != nil {
		return user.Actor{}, fmt.Errorf("login: %w", err)
	}
	return user.Actor{UserID: tok.UserID, Role: user.Role(tok.Role)}, nil
}

// chatSession is the part of *chatsync.Session the console drives.
type chatSession interface {
	Updates() <-chan chatsync.Update
	Snapshot() (chatsync.Snapshot, error)
	Select(ctx context.Context, conversationID string) error
	SetInput(text string) error
	StageAttachment(name, contentType string, size int64, body io.Reader) error
	ClearAttachment() error
	Send(ctx context.Context) (*message.Message, error)
	Close() error
}

var _ chatSession = (*chatsync.Session)(nil)

type console struct {
	sess chatSession
	self string

	mu  sync.Mutex
	out io.Writer
}

func newConsole(sess chatSession, self string, out io.Writer) *console {
	return &console{sess: sess, self: self, out: out}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// run renders updates while reading commands from in, until /quit, EOF or
// ctx is done. The session is closed on return.
func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for u := range c.sess.Updates() {
			c.render(u)
		}
	}()
	defer func() {
		_ = c.sess.Close()
		<-watched
	}()

	c.history()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle executes one input line and reports whether the user asked to leave.
func (c *console) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.printf("/attach <path>  /detach  /select <id>  /history  /quit\n")
	case "/history":
		c.history()
	case "/select":
		if arg == "" {
			c.printf("usage: /select <conversation_id>\n")
			return false
		}
		if err := c.sess.Select(ctx, arg); errors.Is(err, chatsync.ErrNotAdmin) {
			c.printf("! only support staff can switch conversations\n")
		}
	case "/attach":
		if err := c.attach(arg); err != nil && !errors.Is(err, message.ErrAttachmentTooLarge) {
			c.printf("! %v\n", err)
		}
	case "/detach":
		_ = c.sess.ClearAttachment()
	default:
		if strings.HasPrefix(cmd, "/") {
			c.printf("! unknown command %s, try /help\n", cmd)
			return false
		}
		// failures arrive as notices
		_ = c.sess.SetInput(line)
		_, _ = c.sess.Send(ctx)
	}
	return false
}

func (c *console) attach(path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := c.sess.StageAttachment(filepath.Base(path), ct, fi.Size(), f); err != nil {
		return err
	}
	c.printf("attached %s (%d bytes), sent with your next message\n", filepath.Base(path), fi.Size())
	return nil
}

func (c *console) history() {
	snap, err := c.sess.Snapshot()
	if err != nil {
		return
	}
	if v, ok := snap.View.(chatsync.AdminView); ok && v.ConversationID == "" {
		c.printf("no conversation selected, use /select <id>\n")
		return
	}
	for _, m := range snap.Messages {
		c.printf("%s\n", formatMessage(c.self, m))
	}
}

func (c *console) render(u chatsync.Update) {
	switch u.Kind {
	case chatsync.UpdateMessage:
		if u.Message != nil {
			c.printf("%s\n", formatMessage(c.self, *u.Message))
		}
	case chatsync.UpdateTyping:
		if u.Typing {
			c.printf("... typing\n")
		}
	case chatsync.UpdateUpload:
		if u.Total > 0 {
			c.printf("uploading %d%%\n", u.Written*100/u.Total)
		}
	case chatsync.UpdateConversation:
		c.printf("== conversation %s ==\n", u.ConversationID)
	case chatsync.UpdateNotice:
		c.printf("! %s\n", u.Notice)
	}
}

// formatMessage renders one chat line: time, author, body, attachment and,
// for the caller's own messages, the receipt.
func formatMessage(self string, m message.Message) string {
	var who string
	switch {
	case m.SenderID == self:
		who = "you"
	case m.IsSupport:
		who = "support"
	default:
		who = "user " + shortID(m.SenderID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), who, m.Body)
	if m.HasAttachment() {
		if m.Body != "" {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[attachment %s]", *m.AttachmentURL)
	}
	if m.SenderID == self {
		fmt.Fprintf(&b, " (%s)", chatsync.Receipt(m))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
