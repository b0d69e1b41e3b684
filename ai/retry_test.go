package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	boom := errors.New("connection refused")

	tests := []struct {
		name     string
		failures int
		err      error
		wantErr  error
		attempts int
	}{
		{"first try", 0, nil, nil, 1},
		{"eventual success", 2, boom, nil, 3},
		{"exhausted", 5, boom, boom, 3},
		{"malformed is not retried", 5, fmt.Errorf("decode: %w", ErrMalformedOutput), ErrMalformedOutput, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := policy.Do(context.Background(), func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.attempts, attempts)
		})
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}
	var stamps []time.Time
	_ = policy.Do(context.Background(), func(ctx context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("fail")
	})
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetryPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	assert.Equal(t, 1, attempts)
	assert.Error(t, err)

	err = DefaultRetryPolicy.Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicy_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		err := RetryPolicy{MaxAttempts: n}.Do(context.Background(), func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	}
}
