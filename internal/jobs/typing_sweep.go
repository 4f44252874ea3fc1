// Package jobs holds periodic maintenance run by the worker process.
package jobs

import (
	"context"
	"log"
	"time"

	"loandesk/internal/domain/typing"

	"github.com/robfig/cron/v3"
)

// TypingSweep forces typing flags back to false once their last upsert is
// older than the staleness window. Clients that vanish mid-keystroke stop
// showing as typing this way.
type TypingSweep struct {
	repo   typing.Repository
	window time.Duration
	now    func() time.Time
}

func NewTypingSweep(repo typing.Repository, window time.Duration) *TypingSweep {
	return &TypingSweep{repo: repo, window: window, now: time.Now}
}

// Run performs one sweep and returns the number of cleared flags.
func (s *TypingSweep) Run(ctx context.Context) (int, error) {
	cleared, err := s.repo.ClearStale(ctx, s.now().UTC().Add(-s.window))
	if err != nil {
		return 0, err
	}
	return len(cleared), nil
}

// Schedule registers the sweep on c under spec (e.g. "@every 30s").
func (s *TypingSweep) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := s.Run(ctx)
		if err != nil {
			log.Printf("[TYPING-SWEEP] error: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[TYPING-SWEEP] cleared %d stale typing flags", n)
		}
	})
}

// StartScheduler builds a cron scheduler with the typing sweep registered and
// starts it. Stop the returned scheduler on shutdown.
func StartScheduler(sweep *TypingSweep, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := sweep.Schedule(c, spec); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[TYPING-SWEEP] scheduler started - runs %s", spec)
	return c, nil
}
