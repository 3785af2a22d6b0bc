package retry

import (
	"context"
	"time"
)

// Default retry configuration constants.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// Config contains retry configuration parameters.
type Config struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// Backoff computes the wait between attempts. Nil means linear with
	// DefaultBaseDelay.
	Backoff Backoff
}

// DefaultConfig returns three attempts with a 100ms linear backoff.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     NewLinearBackoff(DefaultBaseDelay, 0),
	}
}

// GetMaxAttempts returns the effective attempt count.
func (c *Config) GetMaxAttempts() int {
	if c == nil || c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Config) backoff() Backoff {
	if c == nil || c.Backoff == nil {
		return NewLinearBackoff(DefaultBaseDelay, 0)
	}
	return c.Backoff
}

// AttemptFunc is one try of the operation. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) error

// ShouldRetryFunc determines if an error should trigger a retry.
type ShouldRetryFunc func(error) bool

// OnRetryFunc is called after a failed attempt that will be retried.
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options contains optional retry behavior configuration.
type Options struct {
	// ShouldRetry determines if an error should trigger a retry.
	// If nil, all errors are retried.
	ShouldRetry ShouldRetryFunc

	// OnRetry is called before each backoff wait.
	OnRetry OnRetryFunc

	// Sleep replaces the real wait in tests.
	Sleep SleepFunc
}

// Do calls fn until it succeeds or the attempts run out, and returns the
// last error. A done ctx stops the loop before the next attempt.
func Do(ctx context.Context, cfg *Config, fn AttemptFunc, opts *Options) error {
	maxAttempts := cfg.GetMaxAttempts()
	backoff := cfg.backoff()

	sleep := Sleep
	if opts != nil && opts.Sleep != nil {
		sleep = opts.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if opts != nil && opts.ShouldRetry != nil && !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		delay := backoff.Next(attempt)
		if opts != nil && opts.OnRetry != nil {
			opts.OnRetry(attempt, lastErr, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
