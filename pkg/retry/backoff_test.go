package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithBackoffSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), testConfig(), zaptest.NewLogger(t), "connect", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	refused := errors.New("connection refused")
	attempts := 0
	err := WithBackoff(context.Background(), testConfig(), zaptest.NewLogger(t), "connect", func() error {
		attempts++
		return refused
	})
	require.ErrorIs(t, err, refused)
	require.ErrorContains(t, err, "connect failed after 3 attempts")
	require.Equal(t, 3, attempts)
}

func TestWithBackoffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithBackoff(ctx, testConfig(), zaptest.NewLogger(t), "connect", func() error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	require.ErrorContains(t, err, "retry cancelled")
}

func TestDelayForCapsAtMaxDelay(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2.0}

	require.Equal(t, time.Second, cfg.delayFor(1))
	require.Equal(t, 2*time.Second, cfg.delayFor(2))
	require.Equal(t, 3*time.Second, cfg.delayFor(3))
	require.Equal(t, 3*time.Second, cfg.delayFor(8))
}
