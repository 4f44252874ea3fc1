package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loandesk/internal/adapter/queue"
	"loandesk/internal/infrastructure/broker"
	"loandesk/internal/jobs"
)

type WorkerOptions struct {
	*RootOptions
	SweepOnce bool
}

func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WorkerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background jobs",
		Long: `Consume loan decisions from RabbitMQ and post them into the borrower's
support chat, and periodically clear typing flags that went stale.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SweepOnce, "sweep-once", false, "clear stale typing flags once and exit")

	return cmd
}

func runWorker(cmd *cobra.Command, opts *WorkerOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	sweep := jobs.NewTypingSweep(s.typing, s.cfg.TypingStaleAfter)
	if opts.SweepOnce {
		n, err := sweep.Run(ctx)
		if err != nil {
			return fmt.Errorf("typing sweep: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d stale typing flags\n", n)
		return nil
	}

	sched, err := jobs.StartScheduler(sweep, s.cfg.TypingSweepSpec)
	if err != nil {
		return fmt.Errorf("typing sweep schedule %q: %w", s.cfg.TypingSweepSpec, err)
	}
	defer func() { <-sched.Stop().Done() }()

	consumer := queue.NewConsumer(s.cfg.AMQPURL, broker.Dial, queue.NewDecidedHandler(s.chat))
	log.Println("worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("worker stopped")
	return nil
}
