package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/svcgw/internal/middleware"
	"github.com/vyrodovalexey/svcgw/internal/ratelimit"
	"github.com/vyrodovalexey/svcgw/internal/retry"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(config *Config) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate checks every section and returns all problems at once as
// ValidationErrors, or nil.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateAddress("listen", config.Listen)
	v.validateBackends(config)
	v.validateRateLimit(&config.RateLimit)
	v.validateHealthCheck(&config.HealthCheck)
	v.validateRetry(&config.Retry)
	v.validateCircuitBreaker(&config.CircuitBreaker)

	if config.Limits.MaxBodyBytes < 0 {
		v.addError("limits.max_body_bytes", "must not be negative")
	}

	v.validateObservability(config)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateAddress(path, addr string) {
	if addr == "" {
		v.addError(path, "address is required")
		return
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.addError(path, fmt.Sprintf("invalid address %q: %v", addr, err))
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		v.addError(path, fmt.Sprintf("invalid port %q", port))
	}
}

func (v *Validator) validateBackends(config *Config) {
	if len(config.Backends) == 0 {
		v.addError("backends", "at least one backend is required")
		return
	}

	names := make(map[string]bool, len(config.Backends))
	for i, b := range config.Backends {
		path := fmt.Sprintf("backends[%d]", i)

		if b.Name == "" {
			v.addError(path+".name", "name is required")
		} else if names[b.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate backend name %q", b.Name))
		}
		names[b.Name] = true

		if b.Host == "" {
			v.addError(path+".host", "host is required")
		}
		if b.Port < 1 || b.Port > 65535 {
			v.addError(path+".port", fmt.Sprintf("port must be between 1 and 65535, got %d", b.Port))
		}
		for j, p := range b.Prefixes {
			if !strings.HasPrefix(p, "/") {
				v.addError(fmt.Sprintf("%s.prefixes[%d]", path, j), fmt.Sprintf("prefix %q must start with /", p))
			}
		}
	}

	if config.DefaultBackend == "" {
		v.addError("default_backend", "default backend is required")
	} else if !names[config.DefaultBackend] {
		v.addError("default_backend", fmt.Sprintf("unknown backend %q", config.DefaultBackend))
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	const path = "rate_limit"

	switch ratelimit.Algorithm(rl.Algorithm) {
	case ratelimit.AlgorithmFixedWindow, ratelimit.AlgorithmTokenBucket:
	default:
		v.addError(path+".algorithm", fmt.Sprintf("unknown algorithm %q", rl.Algorithm))
	}

	switch ratelimit.Store(rl.Store) {
	case ratelimit.StoreMemory:
	case ratelimit.StoreRedis:
		if rl.Redis.Address == "" {
			v.addError(path+".redis.address", "address is required for the redis store")
		}
		if ratelimit.Algorithm(rl.Algorithm) == ratelimit.AlgorithmTokenBucket {
			v.addError(path+".store", "the redis store supports only fixed_window")
		}
	default:
		v.addError(path+".store", fmt.Sprintf("unknown store %q", rl.Store))
	}

	if rl.Requests <= 0 {
		v.addError(path+".requests", "must be positive")
	}
	if rl.Window.Duration() <= 0 {
		v.addError(path+".window", "must be positive")
	}
	if rl.Burst < 0 {
		v.addError(path+".burst", "must not be negative")
	}
	if err := middleware.ParseTrustedProxies(rl.TrustedProxies); err != nil {
		v.addError(path+".trusted_proxies", err.Error())
	}
}

func (v *Validator) validateHealthCheck(hc *HealthCheckConfig) {
	if hc.Interval.Duration() <= 0 {
		v.addError("health_check.interval", "must be positive")
	}
	if hc.Timeout.Duration() <= 0 {
		v.addError("health_check.timeout", "must be positive")
	}
	if hc.UnhealthyThreshold == 0 {
		v.addError("health_check.unhealthy_threshold", "must be positive")
	}
}

func (v *Validator) validateRetry(r *RetryConfig) {
	if r.MaxAttempts < 1 {
		v.addError("retry.max_attempts", "must be at least 1")
	}
	switch retry.BackoffType(r.Backoff) {
	case retry.BackoffTypeLinear, retry.BackoffTypeConstant, retry.BackoffTypeExponential:
	default:
		v.addError("retry.backoff", fmt.Sprintf("unknown backoff %q", r.Backoff))
	}
	if r.BaseDelay.Duration() < 0 {
		v.addError("retry.base_delay", "must not be negative")
	}
	if r.MaxDelay.Duration() < 0 {
		v.addError("retry.max_delay", "must not be negative")
	}
	if r.AttemptTimeout.Duration() <= 0 {
		v.addError("retry.attempt_timeout", "must be positive")
	}
}

func (v *Validator) validateCircuitBreaker(cb *CircuitBreakerConfig) {
	if !cb.Enabled {
		return
	}
	if cb.FailureThreshold == 0 {
		v.addError("circuit_breaker.failure_threshold", "must be positive")
	}
	if cb.Timeout.Duration() <= 0 {
		v.addError("circuit_breaker.timeout", "must be positive")
	}
	if cb.Interval.Duration() < 0 {
		v.addError("circuit_breaker.interval", "must not be negative")
	}
}

func (v *Validator) validateObservability(config *Config) {
	obs := &config.Observability

	switch obs.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		v.addError("observability.log_level", fmt.Sprintf("unknown level %q", obs.LogLevel))
	}
	switch obs.LogFormat {
	case "json", "console":
	default:
		v.addError("observability.log_format", fmt.Sprintf("unknown format %q", obs.LogFormat))
	}

	if obs.Admin.Enabled {
		v.validateAddress("observability.admin.address", obs.Admin.Address)
		if obs.Admin.Address == config.Listen {
			v.addError("observability.admin.address", "must differ from listen")
		}
		if !strings.HasPrefix(obs.Admin.MetricsPath, "/") {
			v.addError("observability.admin.metrics_path", "must start with /")
		}
	}

	if rate := obs.Tracing.SamplingRate; rate < 0 || rate > 1 {
		v.addError("observability.tracing.sampling_rate", "must be between 0 and 1")
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
