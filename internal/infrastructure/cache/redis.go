package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// New returns a client for addr without contacting the server. Commands
// fail until Redis becomes reachable.
func New(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 3 * time.Second,
		PoolSize:    20,
	})
}

// Open connects the client shared by idempotency keys and the chat feed.
// The caller owns the returned client.
func Open(ctx context.Context, addr string, db int) (*redis.Client, error) {
	r := New(addr, db)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	log.Printf("redis: connected (%s db=%d)", addr, db)
	return r, nil
}
