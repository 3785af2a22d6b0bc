package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// HealthStatusFunc is called when a backend's healthy flag flips.
type HealthStatusFunc func(backendName string, healthy bool)

// Health check default configuration constants.
const (
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultHealthCheckInterval = 30 * time.Second

	// DefaultUnhealthyThreshold is the number of consecutive failed probes
	// that mark a backend unhealthy. One success always restores it.
	DefaultUnhealthyThreshold uint32 = 3
)

// probeBody is the JSON-RPC health call every backend answers.
var probeBody = []byte(`{"jsonrpc":"2.0","method":"health","id":0}`)

// maxProbeDrain caps how much of a probe response is read before closing.
const maxProbeDrain = 64 << 10

// HealthChecker runs one probe loop per registered backend.
type HealthChecker struct {
	registry           *Registry
	client             *http.Client
	interval           time.Duration
	timeout            time.Duration
	unhealthyThreshold uint32
	logger             observability.Logger
	metrics            *observability.Metrics
	onStatusChange     HealthStatusFunc
	now                func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// HealthCheckOption is a functional option for configuring the health checker.
type HealthCheckOption func(*HealthChecker)

// WithHealthCheckLogger sets the logger for the health checker.
func WithHealthCheckLogger(logger observability.Logger) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.logger = logger
	}
}

// WithHealthCheckClient sets the HTTP client for the health checker.
func WithHealthCheckClient(client *http.Client) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.client = client
	}
}

// WithHealthCheckInterval sets the pause between the end of one probe and
// the start of the next.
func WithHealthCheckInterval(d time.Duration) HealthCheckOption {
	return func(hc *HealthChecker) {
		if d > 0 {
			hc.interval = d
		}
	}
}

// WithHealthCheckTimeout bounds a single probe.
func WithHealthCheckTimeout(d time.Duration) HealthCheckOption {
	return func(hc *HealthChecker) {
		if d > 0 {
			hc.timeout = d
		}
	}
}

// WithUnhealthyThreshold sets how many consecutive failures mark a backend down.
func WithUnhealthyThreshold(n uint32) HealthCheckOption {
	return func(hc *HealthChecker) {
		if n > 0 {
			hc.unhealthyThreshold = n
		}
	}
}

// WithHealthCheckMetrics exports probe results as gauges.
func WithHealthCheckMetrics(m *observability.Metrics) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.metrics = m
	}
}

// WithHealthStatusCallback sets a callback for health status changes.
func WithHealthStatusCallback(fn HealthStatusFunc) HealthCheckOption {
	return func(hc *HealthChecker) {
		hc.onStatusChange = fn
	}
}

// NewHealthChecker creates a health checker for every backend in registry.
func NewHealthChecker(registry *Registry, opts ...HealthCheckOption) *HealthChecker {
	hc := &HealthChecker{
		registry:           registry,
		client:             http.DefaultClient,
		interval:           DefaultHealthCheckInterval,
		timeout:            DefaultHealthCheckTimeout,
		unhealthyThreshold: DefaultUnhealthyThreshold,
		logger:             observability.NopLogger(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// Start launches the probe loops. Each loop checks its backend immediately
// and then waits interval after every check. Calling Start twice is a no-op.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.running {
		return
	}
	hc.running = true

	ctx, hc.cancel = context.WithCancel(ctx)
	for _, b := range hc.registry.All() {
		hc.metrics.SetBackendHealth(b.Name(), b.IsHealthy())
		hc.wg.Add(1)
		go hc.run(ctx, b)
	}

	hc.logger.Info("health checker started",
		observability.Int("backends", hc.registry.Len()),
		observability.Duration("interval", hc.interval),
		observability.Duration("timeout", hc.timeout),
	)
}

// Stop cancels the probe loops and waits for them to exit.
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	hc.running = false
	cancel := hc.cancel
	hc.mu.Unlock()

	cancel()
	hc.wg.Wait()
}

func (hc *HealthChecker) run(ctx context.Context, b *Backend) {
	defer hc.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		hc.Check(ctx, b)
		timer.Reset(hc.interval)
	}
}

// Check probes b once and records the outcome. It returns the probe result.
func (hc *HealthChecker) Check(ctx context.Context, b *Backend) bool {
	ok := hc.probe(ctx, b)
	if ctx.Err() != nil && !ok {
		// shutting down; a cancelled probe says nothing about the backend
		return false
	}

	health, changed := b.RecordProbe(ok, hc.now(), hc.unhealthyThreshold)

	hc.metrics.SetBackendHealth(b.Name(), health.Healthy)
	hc.metrics.SetConsecutiveFailures(b.Name(), health.ConsecutiveFailures)

	if changed {
		if health.Healthy {
			hc.logger.Info("backend is back online",
				observability.String("backend", b.Name()),
				observability.String("address", b.Address()),
			)
		} else {
			hc.logger.Warn("backend marked unhealthy",
				observability.String("backend", b.Name()),
				observability.String("address", b.Address()),
				observability.Uint32("consecutive_failures", health.ConsecutiveFailures),
			)
		}
		if hc.onStatusChange != nil {
			hc.onStatusChange(b.Name(), health.Healthy)
		}
	}
	return ok
}

func (hc *HealthChecker) probe(ctx context.Context, b *Backend) bool {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL()+"/", bytes.NewReader(probeBody))
	if err != nil {
		hc.logger.Debug("health probe request build failed",
			observability.String("backend", b.Name()),
			observability.Error(err),
		)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.client.Do(req)
	if err != nil {
		hc.logger.Debug("health probe failed",
			observability.String("backend", b.Name()),
			observability.Error(err),
		)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeDrain))

	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
}
