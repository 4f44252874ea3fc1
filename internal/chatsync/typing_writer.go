package chatsync

import (
	"context"
	"log"
	"sync"
	"time"
)

const flushTimeout = 2 * time.Second

// typingWriter serializes typing upserts for one session. Per conversation
// only the latest requested flag matters, so intermediate values are
// coalesced and writes can never land out of order. Flags for different
// conversations are kept apart so switching never swallows a clear.
type typingWriter struct {
	s    *Session
	kick chan struct{}
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending map[string]bool
	order   []string
}

type flag struct {
	conv string
	on   bool
}

func newTypingWriter(s *Session) *typingWriter {
	return &typingWriter{
		s:       s,
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: map[string]bool{},
	}
}

func (w *typingWriter) set(conv string, on bool) {
	if conv == "" {
		return
	}
	w.mu.Lock()
	if _, ok := w.pending[conv]; !ok {
		w.order = append(w.order, conv)
	}
	w.pending[conv] = on
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// take drains the pending flags in the order their conversations were first set.
func (w *typingWriter) take() []flag {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return nil
	}
	out := make([]flag, 0, len(w.order))
	for _, conv := range w.order {
		out = append(out, flag{conv: conv, on: w.pending[conv]})
		delete(w.pending, conv)
	}
	w.order = w.order[:0]
	return out
}

// requeue puts interrupted flags back ahead of anything set since, unless a
// newer value for the same conversation is already waiting.
func (w *typingWriter) requeue(flags []flag) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var order []string
	for _, f := range flags {
		if _, newer := w.pending[f.conv]; newer {
			continue
		}
		w.pending[f.conv] = f.on
		order = append(order, f.conv)
	}
	w.order = append(order, w.order...)
}

func (w *typingWriter) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.kick:
			if ctx.Err() != nil {
				// leave it pending for shutdown
				continue
			}
			flags := w.take()
			for i, f := range flags {
				_, err := w.s.backend.SetTyping(ctx, w.s.actor, f.conv, f.on)
				if ctx.Err() != nil {
					w.requeue(flags[i:])
					break
				}
				if err != nil {
					w.s.post(func() { w.s.notice(err) })
				}
			}
		}
	}
}

// shutdown stops the writer and writes any values still pending with a short
// detached deadline, so a closing session does not leave its flag raised
// until the sweep clears it.
func (w *typingWriter) shutdown() {
	close(w.stop)
	<-w.done
	flags := w.take()
	if len(flags) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for _, f := range flags {
		if _, err := w.s.backend.SetTyping(ctx, w.s.actor, f.conv, f.on); err != nil {
			log.Printf("[CHAT] clear typing on close: %v", err)
		}
	}
}
