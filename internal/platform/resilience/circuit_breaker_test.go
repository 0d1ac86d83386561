package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	b := NewCircuitBreaker(2, 5*time.Second, 1)

	now := time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_ExecuteIgnoresNonFailures(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute, 1)
	errDecode := errors.New("decode failed")
	errNetwork := errors.New("network down")
	isNetwork := func(err error) bool { return errors.Is(err, errNetwork) }

	if err := b.Execute(func() error { return errDecode }, isNetwork); !errors.Is(err, errDecode) {
		t.Fatalf("expected decode error passthrough, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after non-failure error, got %s", state)
	}

	if err := b.Execute(func() error { return errNetwork }, isNetwork); !errors.Is(err, errNetwork) {
		t.Fatalf("expected network error passthrough, got %v", err)
	}

	calls := 0
	err := b.Execute(func() error { calls++; return nil }, isNetwork)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit to reject call, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected rejected call not to run, ran %d times", calls)
	}
}

func TestCircuitBreaker_NilAllowsEverything(t *testing.T) {
	var b *CircuitBreaker
	if got := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: false}); got != nil {
		t.Fatalf("expected nil breaker when disabled")
	}

	calls := 0
	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { calls++; return errors.New("x") }, nil)
	}
	if calls != 3 {
		t.Fatalf("expected every call to run, got %d", calls)
	}
	if b.State() != CircuitStateClosed {
		t.Fatalf("expected nil breaker to report closed")
	}
}
