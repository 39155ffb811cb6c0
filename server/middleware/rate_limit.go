package middleware

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerMinute is the sustained rate per principal.
	DefaultRequestsPerMinute = 30
	// DefaultBurst is the number of requests a principal may make at once.
	DefaultBurst = 5
)

// RateLimiter hands out one token bucket per key.
// The HTTP API and the Telegram bot share the same instance.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*bucket
	every  time.Duration
	burst  int

	// idle is how long a bucket takes to refill completely.
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per key with
// the given burst. Non-positive values fall back to the defaults.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	every := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		limits: make(map[string]*bucket),
		every:  every,
		burst:  burst,
		idle:   every * time.Duration(burst),
		now:    time.Now,
	}
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	b, ok := rl.limits[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst)}
		rl.limits[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets that have been idle long enough to refill. A new bucket
// starts full, so dropping one never changes a later decision.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.limits {
		if now.Sub(b.lastSeen) >= rl.idle {
			delete(rl.limits, key)
		}
	}
}

// AllowPrincipal is Allow keyed by a numeric principal ID.
func (rl *RateLimiter) AllowPrincipal(principalID int64) bool {
	return rl.Allow(PrincipalKey(principalID))
}

// Len returns the number of keys seen so far.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// PrincipalKey is the limiter key of a principal.
func PrincipalKey(principalID int64) string {
	return "principal:" + strconv.FormatInt(principalID, 10)
}
