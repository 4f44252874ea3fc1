package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	httpadp "loandesk/internal/adapter/http"
	"loandesk/internal/adapter/queue"
	"loandesk/internal/adapter/realtime"
	"loandesk/internal/adapter/repository/gormrepo"
	"loandesk/internal/adapter/storage"
	"loandesk/internal/config"
	"loandesk/internal/infrastructure/broker"
	"loandesk/internal/infrastructure/cache"
	"loandesk/internal/infrastructure/db"
	"loandesk/internal/usecase/auth"
	"loandesk/internal/usecase/chat"
	"loandesk/internal/usecase/loan"
	"loandesk/internal/usecase/profile"
	"loandesk/internal/validation"
)

// stack is the fully wired application shared by the long-running commands.
type stack struct {
	cfg  *config.Config
	gdb  *gorm.DB
	rdb  *redis.Client
	feed *realtime.Feed
	disk *storage.Disk
	pub  *queue.Publisher

	validator *validation.Validator
	tokens    *auth.Tokens
	typing    *realtime.TypingRepository

	auth     *auth.Usecase
	profiles *profile.Usecase
	loans    *loan.Usecase
	chat     *chat.Usecase
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func openDB(cfg *config.Config, verbose bool) (*gorm.DB, error) {
	level := db.ParseLogLevel(cfg.DBLogLevel)
	if verbose {
		level = logger.Info
	}
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), level)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return gdb, nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// build connects the database and Redis and wires every usecase. The
// broker is dialled lazily on the first published decision. An unreachable
// Redis does not stop the process; /ready reports it until it comes up.
func build(ctx context.Context, opts *RootOptions) (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	gdb, err := openDB(cfg, opts.Verbose)
	if err != nil {
		return nil, err
	}
	rdb, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Printf("redis: %v; realtime and idempotency will fail until it is reachable", err)
		rdb = cache.New(cfg.RedisAddr, cfg.RedisDB)
	}
	disk, err := storage.NewDisk(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		_ = rdb.Close()
		closeDB(gdb)
		return nil, fmt.Errorf("storage: %w", err)
	}

	s := &stack{
		cfg:       cfg,
		gdb:       gdb,
		rdb:       rdb,
		feed:      realtime.NewFeed(rdb),
		disk:      disk,
		pub:       queue.NewPublisher(cfg.AMQPURL, broker.Dial),
		validator: validation.New(),
		tokens:    auth.NewTokens(cfg.JWTSecret, cfg.AccessTTL()),
	}

	profiles := gormrepo.NewProfileRepository(gdb)
	messages := realtime.PublishMessages(gormrepo.NewMessageRepository(gdb), s.feed)
	s.typing = realtime.PublishTyping(gormrepo.NewTypingRepository(gdb), s.feed)

	s.auth = auth.NewUsecase(gormrepo.NewUserRepository(gdb), profiles, s.tokens, s.validator, cfg.BcryptCost)
	s.profiles = profile.NewUsecase(profiles, s.validator)
	s.loans = loan.NewUsecase(gormrepo.NewLoanRepository(gdb), profiles, gormrepo.NewGormUoW(gdb), s.validator, s.pub)
	s.chat = chat.NewUsecase(gormrepo.NewConversationRepository(gdb), messages, s.typing, profiles, disk)
	return s, nil
}

func (s *stack) routerDeps(accessLog bool) httpadp.Deps {
	return httpadp.Deps{
		Auth:           s.auth,
		Tokens:         s.tokens,
		Profiles:       s.profiles,
		Loans:          s.loans,
		Chat:           s.chat,
		Feed:           s.feed,
		Validator:      s.validator,
		Redis:          s.rdb,
		IdempotencyTTL: s.cfg.IdempotencyTTL(),
		FilesDir:       s.disk.Root(),
		AccessLog:      accessLog,
		Ready: map[string]httpadp.Pinger{
			"database": httpadp.PingFunc(func(ctx context.Context) error {
				sqlDB, err := s.gdb.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}),
			"redis": httpadp.PingFunc(func(ctx context.Context) error {
				return s.rdb.Ping(ctx).Err()
			}),
		},
	}
}

func (s *stack) Close() {
	if err := s.pub.Close(); err != nil {
		log.Printf("rabbitmq: close: %v", err)
	}
	_ = s.rdb.Close()
	closeDB(s.gdb)
}
