package proxy

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// BreakerConfig configures the per-backend breakers.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the closed-state period after which counts reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failed forwards that
	// opens the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerSet lazily holds one breaker per backend. A failure is a forward
// that exhausted its retries; any upstream response is a success.
type BreakerSet struct {
	cfg     BreakerConfig
	logger  observability.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(cfg BreakerConfig, logger observability.Logger, metrics *observability.Metrics) *BreakerSet {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &BreakerSet{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *BreakerSet) get(name string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[name]; ok {
		return cb
	}

	threshold := s.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.cfg.MaxRequests,
		Interval:    s.cfg.Interval,
		Timeout:     s.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state change",
				observability.String("backend", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			s.metrics.SetCircuitBreakerState(name, int(to))
		},
	})
	s.breakers[name] = cb
	return cb
}

// Execute runs fn through the named backend's breaker. A rejected call
// returns ErrCircuitOpen.
func (s *BreakerSet) Execute(name string, fn func() (*Response, error)) (*Response, error) {
	out, err := s.get(name).Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, err
	}
	resp, _ := out.(*Response)
	return resp, nil
}

// State returns the named breaker's state. Unknown names are closed.
func (s *BreakerSet) State(name string) gobreaker.State {
	s.mu.Lock()
	cb, ok := s.breakers[name]
	s.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}
