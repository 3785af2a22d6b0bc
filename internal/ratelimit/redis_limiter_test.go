package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_LimitThenExpiry(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l := NewRedisLimiterWithClient(client, RedisConfig{Requests: 2, Window: time.Minute}, nil)

	assert.True(t, allowed(t, l, "10.0.0.1"))
	assert.True(t, allowed(t, l, "10.0.0.1"))
	assert.False(t, allowed(t, l, "10.0.0.1"))
	assert.True(t, allowed(t, l, "10.0.0.2"))

	mr.FastForward(time.Minute)
	assert.True(t, allowed(t, l, "10.0.0.1"))
}

func TestRedisLimiter_KeysAreNamespaced(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l := NewRedisLimiterWithClient(client, RedisConfig{Prefix: "test:", Requests: 5, Window: time.Minute}, nil)

	res, err := l.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 5, res.Limit)

	assert.True(t, mr.Exists("test:client"))
	assert.Equal(t, time.Minute, mr.TTL("test:client"))
}

func TestRedisLimiter_SetLimit(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l := NewRedisLimiterWithClient(client, RedisConfig{Requests: 1, Window: time.Minute}, nil)

	assert.True(t, allowed(t, l, "a"))
	assert.False(t, allowed(t, l, "a"))

	l.SetLimit(3)
	assert.True(t, allowed(t, l, "a"))
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	core, logs := observer.New(zapcore.WarnLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))
	l := NewRedisLimiterWithClient(client, RedisConfig{Requests: 1, Window: time.Minute}, logger)

	mr.Close()

	for range 3 {
		assert.True(t, allowed(t, l, "a"))
	}
	assert.Equal(t, 3, logs.FilterMessage("redis rate limit check failed, admitting request").Len())
}

func TestRedisLimiter_CloseLeavesBorrowedClientOpen(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l := NewRedisLimiterWithClient(client, RedisConfig{}, nil)

	require.NoError(t, l.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}
