// Package retry implements bounded exponential backoff with jitter, used for
// storage connections that may come up after the pipeline process does.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// jitterFraction is the +/- share of the computed delay randomized per
// attempt, so processes restarting together do not reconnect in lockstep.
const jitterFraction = 0.15

// Config bounds one retry loop.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultConfig covers the storage connection path: roughly two minutes of
// total waiting before the caller gives up.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    8,
		InitialDelay:  2 * time.Second,
		MaxDelay:      45 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
}

// WithBackoff runs fn until it succeeds, the attempts are exhausted, or ctx
// is cancelled. The final error wraps the last failure.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		if attempt == cfg.MaxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxRetries, lastErr)
		}

		delay := cfg.delayFor(attempt)
		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

// delayFor returns the capped exponential delay of one attempt, with the
// configured jitter applied around it.
func (cfg Config) delayFor(attempt int) time.Duration {
	delay := math.Min(
		float64(cfg.InitialDelay)*math.Pow(cfg.Multiplier, float64(attempt-1)),
		float64(cfg.MaxDelay),
	)
	if cfg.JitterEnabled {
		delay += (rand.Float64()*2 - 1) * jitterFraction * delay
	}
	return time.Duration(delay)
}
