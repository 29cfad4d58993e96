// internal/errors/retry_test.go
package errors

import (
	"context"
	"testing"
	"time"
)

func TestRetryPolicyDoSucceedsWithoutRetry(t *testing.T) {
	policy := DefaultRetryPolicy()
	calls := 0

	err := policy.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyDoRetriesTransientErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond * 10}
	calls := 0

	err := policy.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return New(KindTransientNetwork, "op", "boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyDoNeverRetriesConfigurationErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0

	err := policy.Do(context.Background(), "op", func() error {
		calls++
		return New(KindConfiguration, "op", "bad weights")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for non-retryable kind, got %d", calls)
	}
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("src1", CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: 50 * time.Millisecond, HalfOpenMaxCalls: 1, SuccessThreshold: 1})

	if !cb.CanExecute() {
		t.Fatal("expected closed breaker to allow execution")
	}
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.CanExecute() {
		t.Fatal("expected breaker to be open after MaxFailures")
	}

	time.Sleep(60 * time.Millisecond)
	if !cb.CanExecute() {
		t.Fatal("expected breaker to move to half-open after ResetTimeout")
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected breaker to close after success threshold, got %v", cb.State())
	}
}
