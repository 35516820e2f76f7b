// Package retry provides bounded retry with exponential backoff for
// operations that may fail transiently, such as database queries during
// connection pool exhaustion or provider API calls hitting rate limits.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behaviour
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultPolicy matches the production defaults: up to 3 retries starting
// at 100ms, doubling each attempt, capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2,
	}
}

// transientMarkers are substrings of error messages that indicate a
// retryable condition from the database driver or remote API.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"too many connections",
	"deadlock detected",
	"serialization failure",
	"temporarily unavailable",
	"service unavailable",
	"rate limit",
	"429",
	"502",
	"503",
	"504",
}

// IsTransient reports whether err represents a failure worth retrying.
// Context cancellation and deadline expiry are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Do runs fn, retrying transient failures per the policy. Non-transient
// errors return immediately without further attempts. The delay grows
// geometrically and respects context cancellation while sleeping.
func Do(ctx context.Context, policy Policy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	delay := policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying operation",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// DoValue is Do for functions that return a value alongside the error.
func DoValue[T any](ctx context.Context, policy Policy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, policy, logger, op, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}
