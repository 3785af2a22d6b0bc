package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded.
	StatusDegraded Status = "degraded"
)

// DefaultCheckTimeout bounds a single round of checks.
const DefaultCheckTimeout = 5 * time.Second

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    Status           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReadinessResponse is the body of /ready.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check is the outcome of one named check.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc runs one check.
type CheckFunc func(ctx context.Context) Check

// Checker aggregates named checks.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	checks    map[string]CheckFunc
	mu        sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string) *Checker {
	return &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces a named check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a named check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Health runs every check and adds version and uptime.
func (c *Checker) Health(ctx context.Context) HealthResponse {
	status, checks := c.run(ctx)
	return HealthResponse{
		Status:    status,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
}

// Readiness runs every check. Unhealthy wins over degraded.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	status, checks := c.run(ctx)
	return ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
}

func (c *Checker) run(ctx context.Context) (Status, map[string]Check) {
	c.mu.RLock()
	funcs := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		funcs[name] = fn
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		overall = StatusHealthy
		results = make(map[string]Check, len(funcs))
	)
	for name, fn := range funcs {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			check := fn(ctx)

			mu.Lock()
			defer mu.Unlock()
			results[name] = check
			switch {
			case check.Status == StatusUnhealthy:
				overall = StatusUnhealthy
			case check.Status == StatusDegraded && overall != StatusUnhealthy:
				overall = StatusDegraded
			}
		}(name, fn)
	}
	wg.Wait()

	return overall, results
}
