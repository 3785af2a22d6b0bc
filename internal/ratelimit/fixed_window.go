package ratelimit

import (
	"context"
	"sync"
	"time"
)

var (
	_ Limiter        = (*FixedWindowLimiter)(nil)
	_ Reconfigurable = (*FixedWindowLimiter)(nil)
)

// FixedWindowLimiter admits up to limit requests per key in a window that
// starts at the key's first request. Every call runs under one mutex: stale
// windows are purged, then the caller's window is created, reset or counted.
//
// A client can send up to twice the limit across a window boundary.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   uint64
	window  time.Duration
	now     Clock
}

type window struct {
	count uint64
	start time.Time
}

// NewFixedWindowLimiter creates a fixed window limiter. Non-positive values
// fall back to the defaults.
func NewFixedWindowLimiter(limit int, size time.Duration, opts ...Option) *FixedWindowLimiter {
	if limit <= 0 {
		limit = DefaultRequests
	}
	if size <= 0 {
		size = DefaultWindow
	}
	o := buildOptions(opts)
	return &FixedWindowLimiter{
		windows: make(map[string]*window),
		limit:   uint64(limit),
		window:  size,
		now:     o.clock,
	}
}

// Allow implements Limiter. It never returns an error.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}

	w, ok := l.windows[key]
	switch {
	case !ok:
		w = &window{count: 1, start: now}
		l.windows[key] = w
	case now.Sub(w.start) >= l.window:
		w.count, w.start = 1, now
	case w.count < l.limit:
		w.count++
	default:
		return l.result(false, w, now), nil
	}
	return l.result(true, w, now), nil
}

func (l *FixedWindowLimiter) result(allowed bool, w *window, now time.Time) *Result {
	remaining := 0
	if w.count < l.limit {
		remaining = int(l.limit - w.count)
	}
	return &Result{
		Allowed:    allowed,
		Limit:      int(l.limit),
		Remaining:  remaining,
		ResetAfter: max(w.start.Add(l.window).Sub(now), 0),
	}
}

// SetLimit implements Reconfigurable.
func (l *FixedWindowLimiter) SetLimit(requests int) {
	if requests <= 0 {
		return
	}
	l.mu.Lock()
	l.limit = uint64(requests)
	l.mu.Unlock()
}

// Len returns the number of tracked clients.
func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Close implements io.Closer.
func (l *FixedWindowLimiter) Close() error { return nil }
