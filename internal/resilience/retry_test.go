package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps test sleeps in the microsecond range.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		Name:           "test",
	}
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		return "hit", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "hit", got)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	got, err := Do(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("rate limited"), 429)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("still down"), 503)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "still down", "last error is returned unwrapped")
}

func TestDo_NonTransientStopsImmediately(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("invalid API key")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContextStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	_, err := Do(ctx, fastRetry(5), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("timeout"), 504)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "no retry once the context is done")
}

func TestDo_ZeroConfigGetsDefaults(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 400*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 3*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
}

func TestBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
		Multiplier:     2.0,
	}

	assert.Equal(t, 100*time.Millisecond, backoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, backoff(1, cfg))
	assert.Equal(t, 250*time.Millisecond, backoff(2, cfg), "third delay hits the cap")
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.5,
	}

	for i := 0; i < 50; i++ {
		d := backoff(0, cfg)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestAPIRetry_Shape(t *testing.T) {
	cfg := APIRetry("serpapi")

	assert.Equal(t, "serpapi", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.LessOrEqual(t, cfg.MaxBackoff, 3*time.Second,
		"backoff stays well inside the stage budgets")
}
