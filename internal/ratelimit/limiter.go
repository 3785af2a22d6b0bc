// Package ratelimit provides per-client request limiting for the gateway.
// The default is an in-memory fixed window; a token bucket and a Redis backed
// fixed window are available for deployments that need them.
package ratelimit

import (
	"context"
	"io"
	"time"
)

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	io.Closer

	// Allow records one request for key and reports whether it is admitted.
	Allow(ctx context.Context, key string) (*Result, error)
}

// Reconfigurable is implemented by limiters whose request budget can change
// at runtime. Existing windows keep their counts.
type Reconfigurable interface {
	SetLimit(requests int)
}

// Result represents the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// ResetAfter is the duration until the current window ends.
	ResetAfter time.Duration
}

// Algorithm represents the rate limiting algorithm type.
type Algorithm string

const (
	// AlgorithmFixedWindow counts requests per client in fixed windows.
	AlgorithmFixedWindow Algorithm = "fixed_window"

	// AlgorithmTokenBucket refills a per-client bucket at requests/window.
	AlgorithmTokenBucket Algorithm = "token_bucket"
)

// Store selects where limiter state lives.
type Store string

const (
	StoreMemory Store = "memory"
	StoreRedis  Store = "redis"
)

// Default limits.
const (
	DefaultRequests = 1000
	DefaultWindow   = 60 * time.Second
)

// Clock returns the current time. Tests replace it to step through windows.
type Clock func() time.Time

// Option configures in-memory limiters.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
