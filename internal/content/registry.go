package content

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrProviderNotRegistered is returned when opening an asset system name that
// has no factory.
var ErrProviderNotRegistered = errors.New("asset system is not registered")

// Factory constructs an asset system on demand.
type Factory func() (Provider, error)

// Registry holds asset system factories by name, so that a binary can offer
// several implementations and only construct the one it is configured for.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name, replacing any earlier one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Open constructs the asset system registered under name.
func (r *Registry) Open(name string) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("open asset system %q: %w", name, err)
	}
	return p, nil
}

// Names returns the registered names, sorted.
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
