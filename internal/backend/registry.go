package backend

import "fmt"

// Registry is the fixed set of backends, kept in configuration order.
type Registry struct {
	backends []*Backend
	byName   map[string]*Backend
}

// NewRegistry builds a registry. Names must be unique.
func NewRegistry(backends ...*Backend) (*Registry, error) {
	r := &Registry{
		backends: make([]*Backend, 0, len(backends)),
		byName:   make(map[string]*Backend, len(backends)),
	}
	for _, b := range backends {
		if _, exists := r.byName[b.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBackend, b.Name())
		}
		r.backends = append(r.backends, b)
		r.byName[b.Name()] = b
	}
	return r, nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (*Backend, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// All returns the backends in configuration order. The slice must not be
// modified.
func (r *Registry) All() []*Backend {
	return r.backends
}

// IsHealthy reports whether name is registered and healthy.
func (r *Registry) IsHealthy(name string) bool {
	b, ok := r.byName[name]
	return ok && b.IsHealthy()
}

// HealthyCount returns how many backends are currently healthy.
func (r *Registry) HealthyCount() int {
	n := 0
	for _, b := range r.backends {
		if b.IsHealthy() {
			n++
		}
	}
	return n
}

// Len returns the number of backends.
func (r *Registry) Len() int { return len(r.backends) }
