package detectors

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh, unfitted detector.
type Factory func() (Detector, error)

// Registry maps model names to detector factories. It replaces implicit
// plugin registration: callers register factories explicitly at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. Registering the same
// name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: detector %q already registered", ErrConfiguration, name)
	}
	r.factories[name] = factory
	return nil
}

// New constructs a detector by name.
func (r *Registry) New(name string) (Detector, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown detector %q", ErrConfiguration, name)
	}
	return factory()
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
