// internal/errors/retry.go
package errors

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures the exponential-backoff-with-jitter formula used
// system-wide: delay = base * 2^attempt + rand(0, base), capped at MaxDelay.
// This is the Open Question resolution recorded in DESIGN.md — one formula
// shared by the fetcher's retry delay and the scheduler's per-proxy retry,
// rather than divergent policies. This package's circuit breaker does not
// use it: it reopens after a fixed ResetTimeout.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryPolicy mirrors the teacher's default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    5 * time.Minute,
	}
}

// Delay computes the backoff for the given zero-based attempt index.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := float64(p.BaseDelay)
	exp := base * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * base
	delay := time.Duration(exp + jitter)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs operation up to MaxAttempts times, honoring ctx cancellation
// between attempts and skipping retry entirely for non-retryable kinds.
func (p RetryPolicy) Do(ctx context.Context, op string, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt < max(1, p.MaxAttempts); attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !KindOf(err).Retryable() {
			break
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return Wrap(KindOf(lastErr), op, lastErr)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
