package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/go-passwordless/internal/config"
	"github.com/go-passwordless/internal/domain"
	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter and starts its window on first use.
// It returns 0 once the limit has been reached, leaving the counter as is.
var fixedWindow = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false then
		redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
		return 1
	end
	if tonumber(current) >= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("INCR", KEYS[1])
	return 1
`)

// NewClient creates a Redis client for cfg.RedisAddr.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

// RequestLimiter caps how many codes one address may request per window,
// shared across every instance pointing at the same Redis.
type RequestLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRequestLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *RequestLimiter {
	if prefix == "" {
		prefix = "pwl-rate:"
	}
	return &RequestLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RequestLimiter) key(channel, address string) string {
	return fmt.Sprintf("%s%s:%s", l.prefix, channel, address)
}

// Allow records one request for address on channel and returns
// domain.ErrRateLimited when the window's budget is spent.
func (l *RequestLimiter) Allow(ctx context.Context, channel, address string) error {
	if l.limit <= 0 {
		return nil
	}
	res, err := fixedWindow.Run(ctx, l.client, []string{l.key(channel, address)}, l.limit, l.window.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("request limiter: %w", err)
	}
	if res == 0 {
		return fmt.Errorf("%s %q: %w", channel, address, domain.ErrRateLimited)
	}
	return nil
}
