package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadp "loandesk/internal/adapter/http"
	"loandesk/internal/infrastructure/db"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	*RootOptions
	Addr    string
	Migrate bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until interrupted.

Requires the database and Redis. Loan decisions are published to RabbitMQ
when it is reachable; the worker command turns them into chat messages.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default :$APP_PORT)")
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply schema migrations before serving")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := build(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Migrate {
		if err := db.Migrate(s.gdb); err != nil {
			return err
		}
	}

	e := httpadp.NewRouter(s.routerDeps(opts.Verbose))
	addr := opts.Addr
	if addr == "" {
		addr = ":" + s.cfg.AppPort
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// open event streams only end when their clients go away
	if err := e.Shutdown(sctx); err != nil {
		log.Printf("graceful shutdown: %v", err)
		return e.Close()
	}
	return nil
}
