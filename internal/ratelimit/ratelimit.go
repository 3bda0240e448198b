// Package ratelimit throttles login and registration attempts per client.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const defaultPrefix = "zaloga:ratelimit"

// FixedWindow limits requests per key in a fixed time window shared through
// Redis, so several server processes enforce one quota.
type FixedWindow struct {
	limit  int
	window time.Duration
	prefix string
	client *redis.Client
	now    func() time.Time
}

// Options configures a FixedWindow limiter.
type Options struct {
	Addr     string
	Password string
	Prefix   string
	Limit    int
	Window   time.Duration
}

// NewFixedWindow creates a Redis-backed limiter.
func NewFixedWindow(opts Options) (*FixedWindow, error) {
	if opts.Limit <= 0 || opts.Window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FixedWindow{
		limit:  opts.Limit,
		window: opts.Window,
		prefix: prefix,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
		}),
		now: time.Now,
	}, nil
}

// Ping checks that Redis is reachable.
func (l *FixedWindow) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (l *FixedWindow) Close() error {
	return l.client.Close()
}

// Allow reports whether key is within its quota for the current window.
// Redis failures deny the request.
func (l *FixedWindow) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		slog.Warn("rate limiter unavailable, denying request", "key", key, "error", err)
		return false
	}
	return count <= int64(l.limit)
}
