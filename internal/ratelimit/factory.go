package ratelimit

import (
	"fmt"
	"time"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// FactoryConfig holds configuration for creating rate limiters.
type FactoryConfig struct {
	Algorithm Algorithm
	Store     Store
	Requests  int
	Window    time.Duration

	// Burst is the bucket size for the token bucket algorithm.
	Burst int

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	Logger observability.Logger
}

// DefaultFactoryConfig returns the in-memory fixed window configuration.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		Algorithm:   AlgorithmFixedWindow,
		Store:       StoreMemory,
		Requests:    DefaultRequests,
		Window:      DefaultWindow,
		RedisPrefix: DefaultRedisPrefix,
	}
}

// NewLimiter creates a limiter from cfg.
func NewLimiter(cfg FactoryConfig, opts ...Option) (Limiter, error) {
	switch cfg.Store {
	case StoreMemory, "":
	case StoreRedis:
		if cfg.Algorithm != AlgorithmFixedWindow && cfg.Algorithm != "" {
			return nil, fmt.Errorf("store %q supports only %q", cfg.Store, AlgorithmFixedWindow)
		}
		return NewRedisLimiter(RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			Requests: cfg.Requests,
			Window:   cfg.Window,
		}, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store: %s", cfg.Store)
	}

	switch cfg.Algorithm {
	case AlgorithmFixedWindow, "":
		return NewFixedWindowLimiter(cfg.Requests, cfg.Window, opts...), nil
	case AlgorithmTokenBucket:
		return NewTokenBucketLimiter(cfg.Requests, cfg.Window, cfg.Burst, opts...), nil
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm: %s", cfg.Algorithm)
	}
}
