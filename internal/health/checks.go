package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/svcgw/internal/backend"
)

// BackendsCheck reports healthy when every backend is healthy, degraded
// when only some are, and unhealthy when none are.
func BackendsCheck(registry *backend.Registry) CheckFunc {
	return func(context.Context) Check {
		total := registry.Len()
		healthy := registry.HealthyCount()
		msg := fmt.Sprintf("%d/%d backends healthy", healthy, total)

		switch {
		case healthy == 0:
			return Check{Status: StatusUnhealthy, Message: msg}
		case healthy < total:
			return Check{Status: StatusDegraded, Message: msg}
		default:
			return Check{Status: StatusHealthy, Message: msg}
		}
	}
}

// RedisCheck pings the rate limiter's Redis. The limiter fails open, so an
// unreachable Redis only degrades the gateway.
func RedisCheck(client redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) Check {
		if client == nil {
			return Check{Status: StatusDegraded, Message: "redis client is nil"}
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return Check{Status: StatusDegraded, Message: fmt.Sprintf("redis ping failed: %v", err)}
		}
		return Check{Status: StatusHealthy}
	}
}
