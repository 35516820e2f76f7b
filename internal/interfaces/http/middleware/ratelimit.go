package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signaldesk/backend/internal/interfaces/http/dto"
)

// RateLimiter is an in-memory sliding-window limiter. It is per-process:
// running several instances behind a load balancer multiplies the effective
// limit unless an external store is added.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window per key
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		window:    window,
		hits:      make(map[string][]time.Time),
		lastSweep: time.Now(),
	}
}

// Limit returns the configured maximum requests per window
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Check records a request for the key if allowed and returns the decision.
// Expired entries are swept lazily on access; there is no background
// goroutine to stop.
func (rl *RateLimiter) Check(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweep(now)

	cutoff := now.Add(-rl.window)
	recent := rl.hits[key][:0]
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: recent[0].Add(rl.window).Sub(now),
		}
	}

	rl.hits[key] = append(recent, now)
	return Decision{
		Allowed:   true,
		Remaining: rl.limit - len(recent) - 1,
	}
}

// sweep drops keys whose entries have all aged out. Runs at most once per
// window; callers hold the lock.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-rl.window)
	for key, times := range rl.hits {
		alive := false
		for _, t := range times {
			if t.After(cutoff) {
				alive = true
				break
			}
		}
		if !alive {
			delete(rl.hits, key)
		}
	}
}

// RateLimit returns a middleware enforcing the limiter per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Check(c.ClientIP())

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

		if !decision.Allowed {
			seconds := int(decision.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
			))
			return
		}

		c.Next()
	}
}
