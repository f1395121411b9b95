package places

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter throttles provider calls per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
	Wait(ctx context.Context, key string) error
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	KeyPrefix string
	Limit     int           // requests per window
	Window    time.Duration // window size
}

// DefaultRateLimiterConfig returns default rate limiter config.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		KeyPrefix: "places:ratelimit:",
		Limit:     10,
		Window:    time.Second,
	}
}

// slidingWindowScript admits a request when fewer than limit entries fall in
// the window. It returns 0 when admitted, otherwise the oldest entry's score.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '0', window_start)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, now)
	redis.call('PEXPIRE', key, window_ms)
	return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest >= 2 then
	return tonumber(oldest[2])
end
return -1
`)

// RedisRateLimiter shares a sliding-window limit across service instances.
type RedisRateLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, config *RateLimiterConfig) *RedisRateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: config.KeyPrefix,
		limit:     config.Limit,
		window:    config.Window,
	}
}

func (r *RedisRateLimiter) try(ctx context.Context, key string) (int64, error) {
	now := time.Now()
	return slidingWindowScript.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.limit,
		now.Add(-r.window).UnixMicro(),
		now.UnixMicro(),
		r.window.Milliseconds(),
	).Int64()
}

// Allow admits the request if the window has room. Redis errors fail open.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	result, err := r.try(ctx, key)
	if err != nil {
		return true
	}
	return result == 0
}

// Wait blocks until the request is admitted or ctx is done.
func (r *RedisRateLimiter) Wait(ctx context.Context, key string) error {
	for {
		result, err := r.try(ctx, key)
		if err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}
		if result == 0 {
			return nil
		}

		wait := r.window / time.Duration(max(r.limit, 1))
		if result > 0 {
			wait = time.Until(time.UnixMicro(result).Add(r.window))
		}
		if wait <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// LocalRateLimiter is an in-process token bucket shared by all keys.
type LocalRateLimiter struct {
	limiter *rate.Limiter
}

// NewLocalRateLimiter allows perSecond requests per second with the given burst.
func NewLocalRateLimiter(perSecond float64, burst int) *LocalRateLimiter {
	return &LocalRateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a token is available now.
func (l *LocalRateLimiter) Allow(ctx context.Context, key string) bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *LocalRateLimiter) Wait(ctx context.Context, key string) error {
	return l.limiter.Wait(ctx)
}

// NoopRateLimiter allows everything.
type NoopRateLimiter struct{}

// NewNoopRateLimiter creates a new noop rate limiter.
func NewNoopRateLimiter() *NoopRateLimiter {
	return &NoopRateLimiter{}
}

// Allow always returns true.
func (r *NoopRateLimiter) Allow(ctx context.Context, key string) bool {
	return true
}

// Wait always returns immediately.
func (r *NoopRateLimiter) Wait(ctx context.Context, key string) error {
	return nil
}
