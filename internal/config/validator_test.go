package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Defaults(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Equal(t, "configuration is nil", err.Error())
}

func TestValidateConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{name: "empty listen", mutate: func(c *Config) { c.Listen = "" }, path: "listen"},
		{name: "listen without port", mutate: func(c *Config) { c.Listen = "localhost" }, path: "listen"},
		{name: "listen bad port", mutate: func(c *Config) { c.Listen = "localhost:http" }, path: "listen"},
		{name: "no backends", mutate: func(c *Config) { c.Backends = nil }, path: "backends"},
		{name: "backend without name", mutate: func(c *Config) { c.Backends[0].Name = "" }, path: "backends[0].name"},
		{name: "duplicate backend", mutate: func(c *Config) { c.Backends[1].Name = c.Backends[0].Name }, path: "backends[1].name"},
		{name: "backend without host", mutate: func(c *Config) { c.Backends[0].Host = "" }, path: "backends[0].host"},
		{name: "backend port zero", mutate: func(c *Config) { c.Backends[1].Port = 0 }, path: "backends[1].port"},
		{name: "backend port too large", mutate: func(c *Config) { c.Backends[1].Port = 70000 }, path: "backends[1].port"},
		{name: "relative prefix", mutate: func(c *Config) { c.Backends[0].Prefixes = []string{"api"} }, path: "backends[0].prefixes[0]"},
		{name: "unknown default backend", mutate: func(c *Config) { c.DefaultBackend = "nope" }, path: "default_backend"},
		{name: "unknown algorithm", mutate: func(c *Config) { c.RateLimit.Algorithm = "leaky" }, path: "rate_limit.algorithm"},
		{name: "unknown store", mutate: func(c *Config) { c.RateLimit.Store = "disk" }, path: "rate_limit.store"},
		{name: "redis without address", mutate: func(c *Config) {
			c.RateLimit.Store = "redis"
			c.RateLimit.Redis.Address = ""
		}, path: "rate_limit.redis.address"},
		{name: "redis token bucket", mutate: func(c *Config) {
			c.RateLimit.Store = "redis"
			c.RateLimit.Algorithm = "token_bucket"
		}, path: "rate_limit.store"},
		{name: "zero requests", mutate: func(c *Config) { c.RateLimit.Requests = 0 }, path: "rate_limit.requests"},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, path: "rate_limit.window"},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.Burst = -1 }, path: "rate_limit.burst"},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.RateLimit.TrustedProxies = []string{"not-an-ip"} }, path: "rate_limit.trusted_proxies"},
		{name: "zero probe interval", mutate: func(c *Config) { c.HealthCheck.Interval = 0 }, path: "health_check.interval"},
		{name: "zero probe timeout", mutate: func(c *Config) { c.HealthCheck.Timeout = 0 }, path: "health_check.timeout"},
		{name: "zero threshold", mutate: func(c *Config) { c.HealthCheck.UnhealthyThreshold = 0 }, path: "health_check.unhealthy_threshold"},
		{name: "zero attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, path: "retry.max_attempts"},
		{name: "unknown backoff", mutate: func(c *Config) { c.Retry.Backoff = "fibonacci" }, path: "retry.backoff"},
		{name: "negative base delay", mutate: func(c *Config) { c.Retry.BaseDelay = Duration(-time.Second) }, path: "retry.base_delay"},
		{name: "zero attempt timeout", mutate: func(c *Config) { c.Retry.AttemptTimeout = 0 }, path: "retry.attempt_timeout"},
		{name: "breaker zero threshold", mutate: func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FailureThreshold = 0
		}, path: "circuit_breaker.failure_threshold"},
		{name: "negative body cap", mutate: func(c *Config) { c.Limits.MaxBodyBytes = -1 }, path: "limits.max_body_bytes"},
		{name: "unknown log level", mutate: func(c *Config) { c.Observability.LogLevel = "trace" }, path: "observability.log_level"},
		{name: "unknown log format", mutate: func(c *Config) { c.Observability.LogFormat = "xml" }, path: "observability.log_format"},
		{name: "admin on gateway address", mutate: func(c *Config) { c.Observability.Admin.Address = c.Listen }, path: "observability.admin.address"},
		{name: "relative metrics path", mutate: func(c *Config) { c.Observability.Admin.MetricsPath = "metrics" }, path: "observability.admin.metrics_path"},
		{name: "sampling rate above one", mutate: func(c *Config) { c.Observability.Tracing.SamplingRate = 1.5 }, path: "observability.tracing.sampling_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			paths := make([]string, 0, len(verrs))
			for _, e := range verrs {
				paths = append(paths, e.Path)
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}

func TestValidateConfig_DisabledSectionsAreNotChecked(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CircuitBreaker.FailureThreshold = 0
	cfg.Observability.Admin.Enabled = false
	cfg.Observability.Admin.Address = ""

	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "listen: bad", ValidationErrors{{Path: "listen", Message: "bad"}}.Error())
	assert.Equal(t, "bad", (&ValidationError{Message: "bad"}).Error())

	multi := ValidationErrors{{Path: "a", Message: "x"}, {Path: "b", Message: "y"}}.Error()
	assert.Contains(t, multi, "2 validation errors")
	assert.Contains(t, multi, "1. a: x")
	assert.Contains(t, multi, "2. b: y")
}
