package retry

import (
	"context"
	"time"
)

// MaxDelay caps any single backoff delay.
const MaxDelay = time.Minute

// ExponentialBackoff returns base * 2^attempt, capped at MaxDelay.
// Negative attempts are treated as the first attempt.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return MaxDelay
	}
	d := base * (1 << attempt)
	if d <= 0 || d > MaxDelay {
		return MaxDelay
	}
	return d
}

// Do calls fn up to attempts times, sleeping ExponentialBackoff between
// failures. It returns the last error, or ctx.Err() if ctx ends first.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, base)):
		}
	}
	return err
}
