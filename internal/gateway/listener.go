package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/svcgw/internal/observability"
)

// Server timeouts. DefaultWriteTimeout covers the default retry budget;
// callers with a larger budget raise it with WithWriteTimeout.
const (
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1MB
)

// Listener serves one handler on one TCP address.
type Listener struct {
	name         string
	address      string
	handler      http.Handler
	logger       observability.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	server  *http.Server
	bound   net.Addr
	running atomic.Bool
	done    chan struct{}
	errs    chan error
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// WithWriteTimeout sets the server write timeout. Non-positive values keep
// DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

// NewListener creates a listener. address is host:port; port 0 picks a free
// port, reported by Addr after Start.
func NewListener(name, address string, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		name:         name,
		address:      address,
		handler:      handler,
		logger:       observability.NopLogger(),
		writeTimeout: DefaultWriteTimeout,
		errs:         make(chan error, 1),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the bound address once started, otherwise the configured one.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound != nil {
		return l.bound.String()
	}
	return l.address
}

// Errors delivers the error that stopped serving, other than a requested
// shutdown. At most one error is sent.
func (l *Listener) Errors() <-chan error {
	return l.errs
}

// Start binds the address and serves in the background. A bind failure is
// returned to the caller; later failures arrive on Errors.
func (l *Listener) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("listener %s is already running", l.name)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.address)
	if err != nil {
		l.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}

	l.run(ln)
	return nil
}

// Serve serves on an already bound listener in the background. The
// Listener takes ownership of ln.
func (l *Listener) Serve(ln net.Listener) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("listener %s is already running", l.name)
	}
	l.run(ln)
	return nil
}

func (l *Listener) run(ln net.Listener) {
	server := &http.Server{
		Handler:           l.handler,
		ReadTimeout:       DefaultReadTimeout,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      l.writeTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
	done := make(chan struct{})

	l.mu.Lock()
	l.server = server
	l.bound = ln.Addr()
	l.done = done
	l.mu.Unlock()

	l.logger.Info("listener started",
		observability.String("name", l.name),
		observability.String("address", ln.Addr().String()),
	)

	go l.serve(server, ln, done)
}

func (l *Listener) serve(server *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	err := server.Serve(ln)
	l.running.Store(false)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	l.logger.Error("listener error",
		observability.String("name", l.name),
		observability.Error(err),
	)
	select {
	case l.errs <- fmt.Errorf("listener %s: %w", l.name, err):
	default:
	}
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	server, done := l.server, l.done
	l.mu.Unlock()

	if server == nil || !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.name),
	)

	if err := server.Shutdown(ctx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}
	<-done

	l.logger.Info("listener stopped",
		observability.String("name", l.name),
	)

	return nil
}

// IsRunning reports whether the listener is serving.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
