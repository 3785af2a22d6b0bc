package retry

import (
	"fmt"
	"math"
	"time"
)

// Backoff computes the wait after a failed attempt. attempt is 1 for the
// first failure.
type Backoff interface {
	Next(attempt int) time.Duration
}

// BackoffType represents the type of backoff strategy.
type BackoffType string

const (
	// BackoffTypeLinear waits base * attempt.
	BackoffTypeLinear BackoffType = "linear"

	// BackoffTypeConstant waits base every time.
	BackoffTypeConstant BackoffType = "constant"

	// BackoffTypeExponential waits base * 2^(attempt-1).
	BackoffTypeExponential BackoffType = "exponential"
)

// LinearBackoff implements linear backoff.
type LinearBackoff struct {
	base time.Duration
	max  time.Duration
}

// NewLinearBackoff creates a linear backoff. A zero max means no cap.
func NewLinearBackoff(base, maxDelay time.Duration) *LinearBackoff {
	return &LinearBackoff{base: base, max: maxDelay}
}

// Next implements Backoff.
func (b *LinearBackoff) Next(attempt int) time.Duration {
	return capDelay(b.base*time.Duration(max(attempt, 1)), b.max)
}

// ConstantBackoff implements constant backoff.
type ConstantBackoff struct {
	interval time.Duration
}

// NewConstantBackoff creates a new constant backoff.
func NewConstantBackoff(interval time.Duration) *ConstantBackoff {
	return &ConstantBackoff{interval: interval}
}

// Next implements Backoff.
func (b *ConstantBackoff) Next(int) time.Duration {
	return b.interval
}

// ExponentialBackoff doubles the wait after every failure.
type ExponentialBackoff struct {
	base time.Duration
	max  time.Duration
}

// NewExponentialBackoff creates an exponential backoff. A zero max means no cap.
func NewExponentialBackoff(base, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{base: base, max: maxDelay}
}

// Next implements Backoff.
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	d := float64(b.base) * math.Pow(2, float64(max(attempt, 1)-1))
	if d > math.MaxInt64 {
		d = math.MaxInt64
	}
	return capDelay(time.Duration(d), b.max)
}

func capDelay(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// NewBackoff creates a Backoff by name. An empty name selects linear.
func NewBackoff(kind BackoffType, base, maxDelay time.Duration) (Backoff, error) {
	switch kind {
	case BackoffTypeLinear, "":
		return NewLinearBackoff(base, maxDelay), nil
	case BackoffTypeConstant:
		return NewConstantBackoff(base), nil
	case BackoffTypeExponential:
		return NewExponentialBackoff(base, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown backoff type: %s", kind)
	}
}
