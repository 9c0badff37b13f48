package errors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marked transient", NewTransientError(errors.New("x"), ""), true},
		{"marked permanent", NewPermanentError(errors.New("x"), ""), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"http 503", errors.New("unexpected status 503"), true},
		{"http 401", errors.New("unexpected status 401"), false},
		{"plain", errors.New("something odd"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsPermanentOAuthCodes(t *testing.T) {
	if !IsPermanent(errors.New("provider returned access_denied")) {
		t.Error("access_denied should be permanent")
	}
	if !IsPermanent(errors.New("provider returned expired_token")) {
		t.Error("expired_token should be permanent")
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error { return boom })
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	if err := cb.Allow(); err == nil {
		t.Fatal("open breaker should reject requests")
	}

	time.Sleep(15 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("half-open breaker should allow probe: %v", err)
	}
	cb.Mark(nil)
	if cb.State() != StateClosed {
		t.Errorf("expected closed after recovery, got %s", cb.State())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("reset", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})
	cb.Mark(errors.New("boom"))
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatal("expected closed after reset")
	}
}
