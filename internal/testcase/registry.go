package testcase

import (
	"fmt"
	"sort"
	"sync"
)

// Registration pairs a case's metadata with its factory.
type Registration struct {
	Meta    Meta
	Factory Factory
}

// Registry maps case names to factories. It is filled at startup by explicit
// Register calls and read by the runner when a test list is resolved.
type Registry struct {
	mu    sync.RWMutex
	cases map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cases: make(map[string]Registration)}
}

// Register adds a case. Unset test types default to TypeAll.
func (r *Registry) Register(meta Meta, factory Factory) error {
	if meta.Name == "" {
		return fmt.Errorf("case has empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register case %s without factory", meta.Name)
	}
	if meta.Type == 0 {
		meta.Type = TypeAll
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cases[meta.Name]; exists {
		return fmt.Errorf("case %s already registered", meta.Name)
	}
	r.cases[meta.Name] = Registration{Meta: meta, Factory: factory}
	return nil
}

// MustRegister is Register for init-time wiring; it panics on error.
func (r *Registry) MustRegister(meta Meta, factory Factory) {
	if err := r.Register(meta, factory); err != nil {
		panic(err)
	}
}

// Lookup returns a registration by case name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.cases[name]
	return reg, ok
}

// List returns the metadata of all registered cases sorted by name.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Meta, 0, len(r.cases))
	for _, reg := range r.cases {
		out = append(out, reg.Meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
