package comm

import (
	"sync"
)

// Registry maps address schemes to transport backends. The process-wide
// default is populated by transport packages on import; tests may build
// isolated registries with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty scheme registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide scheme registry.
func Default() *Registry {
	return defaultRegistry
}

// RegisterBackend installs a backend for a scheme, overwriting any
// previous registration.
func (r *Registry) RegisterBackend(scheme string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[scheme] = b
}

// Backend looks up the backend for a scheme.
func (r *Registry) Backend(scheme, addr string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[scheme]
	if !ok {
		return nil, &UnknownSchemeError{Scheme: scheme, Addr: addr}
	}
	return b, nil
}
