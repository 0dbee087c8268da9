package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// Decision is the outcome of one sliding-window check.
type Decision struct {
	Allowed bool
	// Count is the number of requests in the window, including this one
	// when allowed.
	Count     int64
	Remaining int64
}

// RateLimiter is a sliding-window limiter: one sorted set of request
// timestamps per key, trimmed and counted atomically by a Lua script.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		script: redis.NewScript(slidingWindowLua),
		now:    time.Now,
	}
}

// Check counts a request for key against limit per window.
func (rl *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{"ratelimit:" + key},
		rl.now().UnixMicro(), window.Microseconds(), limit,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis: rate limit %s: want 2 results, got %d", key, len(res))
	}
	return Decision{
		Allowed:   res[0] == 1,
		Count:     res[1],
		Remaining: max(int64(limit)-res[1], 0),
	}, nil
}

// Allow implements domain.RateLimiter.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	d, err := rl.Check(ctx, key, limit, window)
	return d.Allowed, err
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
