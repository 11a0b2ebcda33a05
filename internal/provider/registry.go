package provider

import (
	"fmt"
	"sort"
)

// Registry is an explicit collection of adapters keyed by provider name.
// It is populated once at startup and handed to the orchestrator; duplicate
// registration is a programming error, not a runtime condition.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter, failing if its name is already taken.
func (r *Registry) Register(a Adapter) error {
	if _, exists := r.adapters[a.Name()]; exists {
		return fmt.Errorf("provider adapter %q already registered", a.Name())
	}
	r.adapters[a.Name()] = a
	return nil
}

// Get returns the adapter registered under name, or nil when absent.
func (r *Registry) Get(name string) Adapter {
	return r.adapters[name]
}

// All returns every registered adapter, ordered by name.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, name := range r.Names() {
		out = append(out, r.adapters[name])
	}
	return out
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many adapters are registered.
func (r *Registry) Len() int { return len(r.adapters) }

// Clear resets the registry to empty. Provided for test isolation.
func (r *Registry) Clear() {
	r.adapters = make(map[string]Adapter)
}
