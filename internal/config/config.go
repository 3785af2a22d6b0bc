package config

import (
	"reflect"
	"strings"
	"time"
)

// Config is the complete gateway configuration.
type Config struct {
	Listen         string               `yaml:"listen"`
	DefaultBackend string               `yaml:"default_backend"`
	Backends       []Backend            `yaml:"backends"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	HealthCheck    HealthCheckConfig    `yaml:"health_check"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Limits         LimitsConfig         `yaml:"limits"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// Backend is one upstream service and the paths routed to it.
type Backend struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name,omitempty"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Prefixes    []string `yaml:"prefixes,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Algorithm      string      `yaml:"algorithm"`
	Store          string      `yaml:"store"`
	Requests       int         `yaml:"requests"`
	Window         Duration    `yaml:"window"`
	Burst          int         `yaml:"burst"`
	TrustedProxies []string    `yaml:"trusted_proxies,omitempty"`
	Redis          RedisConfig `yaml:"redis"`
}

// RedisConfig is used when the limiter store is redis.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HealthCheckConfig configures the backend prober.
type HealthCheckConfig struct {
	Interval           Duration `yaml:"interval"`
	Timeout            Duration `yaml:"timeout"`
	UnhealthyThreshold uint32   `yaml:"unhealthy_threshold"`
}

// RetryConfig configures proxy attempts.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	Backoff        string   `yaml:"backoff"`
	BaseDelay      Duration `yaml:"base_delay"`
	MaxDelay       Duration `yaml:"max_delay,omitempty"`
	AttemptTimeout Duration `yaml:"attempt_timeout"`
}

// CircuitBreakerConfig configures the passive per-backend breaker.
type CircuitBreakerConfig struct {
	Enabled          bool     `yaml:"enabled"`
	MaxRequests      uint32   `yaml:"max_requests"`
	Interval         Duration `yaml:"interval"`
	Timeout          Duration `yaml:"timeout"`
	FailureThreshold uint32   `yaml:"failure_threshold"`
}

// LimitsConfig bounds request handling.
type LimitsConfig struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ObservabilityConfig configures logging, the admin server and tracing.
type ObservabilityConfig struct {
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Admin     AdminConfig   `yaml:"admin"`
	Tracing   TracingConfig `yaml:"tracing"`
}

// AdminConfig configures the admin listener.
type AdminConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	MetricsPath string `yaml:"metrics_path"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default values.
const (
	DefaultListen             = "127.0.0.1:8082"
	DefaultBackendName        = "user-service"
	DefaultAlgorithm          = "fixed_window"
	DefaultStore              = "memory"
	DefaultRequests           = 1000
	DefaultWindow             = 60 * time.Second
	DefaultRedisAddress       = "localhost:6379"
	DefaultRedisPrefix        = "svcgw:rl:"
	DefaultHealthInterval     = 30 * time.Second
	DefaultHealthTimeout      = 5 * time.Second
	DefaultUnhealthyThreshold = 3
	DefaultMaxAttempts        = 3
	DefaultBackoff            = "linear"
	DefaultBaseDelay          = 100 * time.Millisecond
	DefaultAttemptTimeout     = 10 * time.Second
	DefaultMaxBodyBytes       = 10 << 20
	DefaultAdminAddress       = ":9090"
	DefaultMetricsPath        = "/metrics"
	DefaultServiceName        = "svcgw"
)

// DefaultConfig returns the built-in configuration: a user and a product
// service on localhost behind a gateway on port 8082.
func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		DefaultBackend: DefaultBackendName,
		Backends: []Backend{
			{
				Name:        "user-service",
				DisplayName: "User Service",
				Host:        "127.0.0.1",
				Port:        8080,
				Prefixes:    []string{"/api/users"},
				Keywords:    []string{"user"},
			},
			{
				Name:        "product-service",
				DisplayName: "Product Service",
				Host:        "127.0.0.1",
				Port:        8081,
				Prefixes:    []string{"/api/products"},
				Keywords:    []string{"product"},
			},
		},
		RateLimit: RateLimitConfig{
			Algorithm: DefaultAlgorithm,
			Store:     DefaultStore,
			Requests:  DefaultRequests,
			Window:    Duration(DefaultWindow),
			Redis: RedisConfig{
				Address: DefaultRedisAddress,
				Prefix:  DefaultRedisPrefix,
			},
		},
		HealthCheck: HealthCheckConfig{
			Interval:           Duration(DefaultHealthInterval),
			Timeout:            Duration(DefaultHealthTimeout),
			UnhealthyThreshold: DefaultUnhealthyThreshold,
		},
		Retry: RetryConfig{
			MaxAttempts:    DefaultMaxAttempts,
			Backoff:        DefaultBackoff,
			BaseDelay:      Duration(DefaultBaseDelay),
			AttemptTimeout: Duration(DefaultAttemptTimeout),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         Duration(60 * time.Second),
			Timeout:          Duration(30 * time.Second),
			FailureThreshold: 5,
		},
		Limits: LimitsConfig{
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
			Admin: AdminConfig{
				Enabled:     true,
				Address:     DefaultAdminAddress,
				MetricsPath: DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				ServiceName:  DefaultServiceName,
				SamplingRate: 1.0,
			},
		},
	}
}

// ApplyDefaults fills fields a file may leave empty inside list entries
// and optional sections.
func (c *Config) ApplyDefaults() {
	for i := range c.Backends {
		if c.Backends[i].DisplayName == "" {
			c.Backends[i].DisplayName = c.Backends[i].Name
		}
	}
	if c.DefaultBackend == "" && len(c.Backends) > 0 {
		c.DefaultBackend = c.Backends[0].Name
	}
	if c.RateLimit.Redis.Prefix == "" {
		c.RateLimit.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Observability.Admin.MetricsPath == "" {
		c.Observability.Admin.MetricsPath = DefaultMetricsPath
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = DefaultServiceName
	}
}

// ChangedSections returns the top-level YAML keys whose values differ.
func ChangedSections(old, updated *Config) []string {
	if old == nil || updated == nil {
		return nil
	}
	ov := reflect.ValueOf(*old)
	nv := reflect.ValueOf(*updated)
	t := ov.Type()

	var changed []string
	for i := 0; i < t.NumField(); i++ {
		if !reflect.DeepEqual(ov.Field(i).Interface(), nv.Field(i).Interface()) {
			changed = append(changed, yamlName(t.Field(i)))
		}
	}
	return changed
}

func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" {
		return f.Name
	}
	return name
}
