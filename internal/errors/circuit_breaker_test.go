package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("provider-api", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	boom := errors.New("upstream down")
	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("request should not reach the function while open")
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("provider-api", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Millisecond,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	// Closed again: requests flow normally.
	err = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestCircuitBreakerAllowMark(t *testing.T) {
	cb := NewCircuitBreaker("github-api", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	require.NoError(t, cb.Allow())
	cb.Mark(errors.New("boom"))

	assert.Error(t, cb.Allow())
}
