package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/time/rate"

	apperrors "github.com/gobusker/gobusker-map/errors"
)

// RateLimiterConfig holds inbound rate limiter configuration.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// KeyFunc extracts the limiting key from the request.
	KeyFunc func(r *http.Request) string
	// ExcludeFunc exempts requests such as health checks.
	ExcludeFunc func(r *http.Request) bool
	// IdleTTL is how long an unused key keeps its bucket.
	IdleTTL time.Duration
	Clock   clock.Clock
}

// DefaultRateLimiterConfig returns production defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		KeyFunc:           IPKeyFunc,
		IdleTTL:           10 * time.Minute,
	}
}

// IPKeyFunc keys on the first forwarded address, falling back to the peer.
func IPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	buckets map[string]*bucket
	sweep   time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.BurstSize <= 0 {
		config.BurstSize = defaults.BurstSize
	}
	if config.KeyFunc == nil {
		config.KeyFunc = defaults.KeyFunc
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if config.Clock == nil {
		config.Clock = clock.NewClock()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		sweep:   config.Clock.Now(),
	}
}

// Allow consumes a token for the request's key and returns the tokens left.
func (rl *RateLimiter) Allow(r *http.Request) (bool, float64) {
	now := rl.config.Clock.Now()
	key := rl.config.KeyFunc(r)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.evictLocked(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	return allowed, b.limiter.TokensAt(now)
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// evictLocked drops idle buckets at most once per IdleTTL.
func (rl *RateLimiter) evictLocked(now time.Time) {
	if now.Sub(rl.sweep) < rl.config.IdleTTL {
		return
	}
	rl.sweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.config.IdleTTL {
			delete(rl.buckets, key)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(rl.config.BurstSize)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.ExcludeFunc != nil && rl.config.ExcludeFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining := rl.Allow(r)
		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, int(remaining))))

		if !allowed {
			w.Header().Set("Retry-After", "1")
			apperrors.WriteError(w, apperrors.RateLimited("Too many requests. Please slow down."), RequestIDFromContext(r.Context()))
			return
		}

		next.ServeHTTP(w, r)
	})
}
