package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	_ Limiter        = (*TokenBucketLimiter)(nil)
	_ Reconfigurable = (*TokenBucketLimiter)(nil)
)

// bucketIdleTTL is how long an unused bucket is kept before it is dropped.
const bucketIdleTTL = 10 * time.Minute

// TokenBucketLimiter keeps one rate.Limiter per key refilling at
// requests/window tokens per second.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
	window  time.Duration
	now     Clock

	lastSweep time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a token bucket limiter. A zero burst uses
// requests as the bucket size.
func NewTokenBucketLimiter(requests int, window time.Duration, burst int, opts ...Option) *TokenBucketLimiter {
	if requests <= 0 {
		requests = DefaultRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if burst <= 0 {
		burst = requests
	}
	o := buildOptions(opts)
	return &TokenBucketLimiter{
		buckets:   make(map[string]*bucket),
		rps:       rate.Limit(float64(requests) / window.Seconds()),
		burst:     burst,
		window:    window,
		now:       o.clock,
		lastSweep: o.clock(),
	}
}

// Allow implements Limiter.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.lim.AllowN(now, 1)
	tokens := int(b.lim.TokensAt(now))

	res := &Result{
		Allowed:   allowed,
		Limit:     l.burst,
		Remaining: max(tokens, 0),
	}
	if !allowed && l.rps > 0 {
		missing := 1 - b.lim.TokensAt(now)
		res.ResetAfter = time.Duration(missing / float64(l.rps) * float64(time.Second))
	}
	return res, nil
}

func (l *TokenBucketLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < bucketIdleTTL/2 {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= bucketIdleTTL {
			delete(l.buckets, k)
		}
	}
}

// SetLimit implements Reconfigurable. The refill rate of existing buckets
// changes immediately; their burst is kept.
func (l *TokenBucketLimiter) SetLimit(requests int) {
	if requests <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rps = rate.Limit(float64(requests) / l.window.Seconds())
	now := l.now()
	for _, b := range l.buckets {
		b.lim.SetLimitAt(now, l.rps)
	}
}

// Close implements io.Closer.
func (l *TokenBucketLimiter) Close() error { return nil }
