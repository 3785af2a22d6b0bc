package backend

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// ErrDuplicateBackend is returned when two backends share a name.
var ErrDuplicateBackend = errors.New("duplicate backend name")

// Health is a point-in-time copy of a backend's health state.
type Health struct {
	Healthy             bool
	LastCheck           time.Time
	ConsecutiveFailures uint32
}

// Backend is a single upstream service address. Identity fields are fixed
// at construction; health is guarded by its own lock.
type Backend struct {
	name        string
	displayName string
	host        string
	port        int

	mu     sync.RWMutex
	health Health
}

// New creates a backend that starts out healthy. An empty display name
// falls back to name.
func New(name, displayName, host string, port int) *Backend {
	if displayName == "" {
		displayName = name
	}
	return &Backend{
		name:        name,
		displayName: displayName,
		host:        host,
		port:        port,
		health:      Health{Healthy: true},
	}
}

// Name returns the registry key.
func (b *Backend) Name() string { return b.name }

// DisplayName returns the human-readable name used in error messages.
func (b *Backend) DisplayName() string { return b.displayName }

// Host returns the backend host.
func (b *Backend) Host() string { return b.host }

// Port returns the backend port.
func (b *Backend) Port() int { return b.port }

// Address returns host:port.
func (b *Backend) Address() string {
	return net.JoinHostPort(b.host, strconv.Itoa(b.port))
}

// URL returns the base URL requests are forwarded to.
func (b *Backend) URL() string {
	return "http://" + b.Address()
}

func (b *Backend) String() string {
	return fmt.Sprintf("%s (%s)", b.name, b.Address())
}

// IsHealthy reports the last known health.
func (b *Backend) IsHealthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.health.Healthy
}

// Health returns a copy of the health state.
func (b *Backend) Health() Health {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.health
}

// RecordProbe applies one probe outcome. A success marks the backend
// healthy and clears the failure count; a failure marks it unhealthy once
// the count reaches threshold. It returns the new state and whether the
// healthy flag flipped.
func (b *Backend) RecordProbe(ok bool, at time.Time, threshold uint32) (Health, bool) {
	if threshold == 0 {
		threshold = DefaultUnhealthyThreshold
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	was := b.health.Healthy
	b.health.LastCheck = at
	if ok {
		b.health.Healthy = true
		b.health.ConsecutiveFailures = 0
	} else {
		b.health.ConsecutiveFailures++
		if b.health.ConsecutiveFailures >= threshold {
			b.health.Healthy = false
		}
	}
	return b.health, was != b.health.Healthy
}
