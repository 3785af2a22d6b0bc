package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	// 60 requests per minute is one token per second.
	l := NewTokenBucketLimiter(60, time.Minute, 2, WithClock(clock.Now))

	assert.True(t, allowed(t, l, "a"))
	assert.True(t, allowed(t, l, "a"))
	assert.False(t, allowed(t, l, "a"))

	clock.Advance(time.Second)
	assert.True(t, allowed(t, l, "a"))
	assert.False(t, allowed(t, l, "a"))
}

func TestTokenBucketLimiter_RejectionReportsWait(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewTokenBucketLimiter(60, time.Minute, 1, WithClock(clock.Now))

	assert.True(t, allowed(t, l, "a"))
	res, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.InDelta(t, float64(time.Second), float64(res.ResetAfter), float64(10*time.Millisecond))
}

func TestTokenBucketLimiter_DefaultBurstIsRequests(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(5, time.Minute, 0, WithClock(newFakeClock().Now))

	for range 5 {
		assert.True(t, allowed(t, l, "a"))
	}
	assert.False(t, allowed(t, l, "a"))
}

func TestTokenBucketLimiter_DropsIdleBuckets(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewTokenBucketLimiter(10, time.Minute, 1, WithClock(clock.Now))

	assert.True(t, allowed(t, l, "a"))
	clock.Advance(bucketIdleTTL)
	assert.True(t, allowed(t, l, "b"))

	l.mu.Lock()
	_, stillThere := l.buckets["a"]
	l.mu.Unlock()
	assert.False(t, stillThere)
}

func TestTokenBucketLimiter_SetLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := NewTokenBucketLimiter(60, time.Minute, 1, WithClock(clock.Now))

	assert.True(t, allowed(t, l, "a"))
	l.SetLimit(120)

	clock.Advance(500 * time.Millisecond)
	assert.True(t, allowed(t, l, "a"))
}
