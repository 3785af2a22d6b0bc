package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// DefaultShutdownTimeout bounds Stop when ctx has no deadline.
const DefaultShutdownTimeout = 30 * time.Second

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Config holds the server settings of the gateway.
type Config struct {
	Name          string
	ListenAddress string

	// WriteTimeout bounds writing a response, including the time spent
	// proxying it. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// Gateway serves the route handler on the public listener.
type Gateway struct {
	config    Config
	logger    observability.Logger
	engine    *gin.Engine
	listener  *Listener
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex

	routeHandler    http.Handler
	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// WithRouteHandler sets the handler that receives every request.
func WithRouteHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.routeHandler = handler
	}
}

// New creates a new Gateway instance.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.ListenAddress == "" {
		return nil, fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if cfg.Name == "" {
		cfg.Name = "svcgw"
	}

	g := &Gateway{
		config:          cfg,
		logger:          observability.NopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.routeHandler == nil {
		return nil, ErrNoRouteHandler
	}

	g.state.Store(int32(StateStopped))

	return g, nil
}

// Start binds the listener and begins serving. It returns the bind error,
// if any, and leaves the gateway stopped in that case.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("name", g.config.Name),
		observability.String("address", g.config.ListenAddress),
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	g.setupRoutes(engine)

	listener := NewListener(g.config.Name, g.config.ListenAddress, engine,
		WithListenerLogger(g.logger),
		WithWriteTimeout(g.config.WriteTimeout),
	)
	if err := listener.Start(ctx); err != nil {
		g.state.Store(int32(StateStopped))
		return err
	}

	g.mu.Lock()
	g.engine = engine
	g.listener = listener
	g.startTime = time.Now()
	g.mu.Unlock()

	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", g.config.Name),
		observability.String("address", listener.Addr()),
	)

	return nil
}

// Stop stops the gateway gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway",
		observability.String("name", g.config.Name),
	)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	g.mu.RLock()
	listener := g.listener
	g.mu.RUnlock()

	err := listener.Stop(ctx)
	if err != nil {
		g.logger.Error("failed to stop listener",
			observability.String("name", listener.Name()),
			observability.Error(err),
		)
	}

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.String("name", g.config.Name),
	)

	return err
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Addr returns the address the listener is bound to, or the configured
// address before Start.
func (g *Gateway) Addr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return g.config.ListenAddress
	}
	return g.listener.Addr()
}

// WriteTimeout returns the write timeout the public listener uses.
func (g *Gateway) WriteTimeout() time.Duration {
	if g.config.WriteTimeout > 0 {
		return g.config.WriteTimeout
	}
	return DefaultWriteTimeout
}

// Errors delivers a serving failure of the public listener. It is nil
// before Start; receiving from it then blocks forever.
func (g *Gateway) Errors() <-chan error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.listener == nil {
		return nil
	}
	return g.listener.Errors()
}

// Engine returns the gin engine, nil before Start.
func (g *Gateway) Engine() *gin.Engine {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.engine
}

// setupRoutes sends every method and path to the route handler. No gin
// routes are registered, so NoRoute sees all traffic, OPTIONS included.
func (g *Gateway) setupRoutes(engine *gin.Engine) {
	engine.NoRoute(gin.WrapH(g.routeHandler))
}
