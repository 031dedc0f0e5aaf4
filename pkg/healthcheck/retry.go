package healthcheck

import (
	"context"
	"time"
)

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryConfig returns three attempts one second apart
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}
}

// WithRetry executes op up to MaxAttempts times with a fixed delay between
// attempts and returns the last error
func WithRetry(ctx context.Context, cfg RetryConfig, op func(attempt int) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		// Last attempt, don't wait
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
