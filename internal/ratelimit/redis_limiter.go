package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

var (
	_ Limiter        = (*RedisLimiter)(nil)
	_ Reconfigurable = (*RedisLimiter)(nil)
)

// DefaultRedisPrefix namespaces limiter keys.
const DefaultRedisPrefix = "svcgw:rl:"

const redisPingTimeout = 2 * time.Second

// fixedWindowScript increments the counter for KEYS[1] and starts its
// expiry on the first hit. It returns the new count and the remaining TTL
// in milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisConfig configures the Redis backed limiter.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	Requests int
	Window   time.Duration
}

// RedisLimiter is a fixed window shared by every gateway instance pointing
// at the same Redis. Windows start at a client's first request, as with
// FixedWindowLimiter. Redis errors admit the request.
type RedisLimiter struct {
	client redis.UniversalClient
	owned  bool
	prefix string
	window time.Duration
	limit  atomic.Int64
	logger observability.Logger
}

// NewRedisLimiter connects to Redis and returns a limiter. An unreachable
// server is logged, not fatal.
func NewRedisLimiter(cfg RedisConfig, logger observability.Logger) *RedisLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	l := NewRedisLimiterWithClient(client, cfg, logger)
	l.owned = true

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		l.logger.Warn("redis rate limit store unreachable, requests will be admitted until it recovers",
			observability.String("address", cfg.Address),
			observability.Error(err),
		)
	}
	return l
}

// NewRedisLimiterWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisLimiterWithClient(client redis.UniversalClient, cfg RedisConfig, logger observability.Logger) *RedisLimiter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	if cfg.Requests <= 0 {
		cfg.Requests = DefaultRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	l := &RedisLimiter{
		client: client,
		prefix: cfg.Prefix,
		window: cfg.Window,
		logger: logger,
	}
	l.limit.Store(int64(cfg.Requests))
	return l
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	limit := l.limit.Load()

	count, ttl, err := l.incr(ctx, key)
	if err != nil {
		l.logger.Warn("redis rate limit check failed, admitting request",
			observability.String("client", key),
			observability.Error(err),
		)
		return &Result{Allowed: true, Limit: int(limit), Remaining: int(limit)}, nil
	}

	return &Result{
		Allowed:    count <= limit,
		Limit:      int(limit),
		Remaining:  int(max(limit-count, 0)),
		ResetAfter: max(ttl, 0),
	}, nil
}

func (l *RedisLimiter) incr(ctx context.Context, key string) (count int64, ttl time.Duration, err error) {
	raw, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("fixed window script: %w", err)
	}
	if len(raw) != 2 {
		return 0, 0, fmt.Errorf("fixed window script: unexpected result %v", raw)
	}
	return raw[0], time.Duration(raw[1]) * time.Millisecond, nil
}

// SetLimit implements Reconfigurable.
func (l *RedisLimiter) SetLimit(requests int) {
	if requests > 0 {
		l.limit.Store(int64(requests))
	}
}

// Close closes the client if the limiter created it.
func (l *RedisLimiter) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
