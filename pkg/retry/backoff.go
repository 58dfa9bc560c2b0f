// Package retry retries connection setup with exponential backoff. Nothing
// else in this codebase retries: projection rules skip, the oracle degrades,
// and Temporal owns activity retries.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts  = 10
	initialDelay = 2 * time.Second
	maxDelay     = 60 * time.Second
)

// Connect runs fn until it succeeds or the attempt budget is spent.
func Connect(ctx context.Context, logger *zap.Logger, operation string, fn func() error) error {
	delay := initialDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("Connected after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, maxAttempts, err)
		}

		wait := jitter(delay)
		logger.Warn("Connection attempt failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// jitter spreads delays ±15% so restarting replicas don't reconnect in
// lockstep.
func jitter(d time.Duration) time.Duration {
	offset := (rand.Float64() - 0.5) * 0.3 * float64(d)
	return d + time.Duration(offset)
}
