package oracle

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps oracle names to plugins. Iteration is always in
// lexicographic name order.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p. Names must be unique and non-empty, and flag names must
// not collide with flags of already registered plugins.
func (r *Registry) Register(p Plugin) error {
	if p.Name == "" {
		return fmt.Errorf("%w: plugin with empty name", ErrConfig)
	}
	if p.New == nil {
		return fmt.Errorf("%w: plugin %q has no factory", ErrConfig, p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.plugins[p.Name]; dup {
		return fmt.Errorf("%w: plugin %q registered twice", ErrConfig, p.Name)
	}
	for _, other := range r.plugins {
		for _, of := range other.Flags {
			for _, f := range p.Flags {
				if f.Name == of.Name {
					return fmt.Errorf("%w: flag %q of %q already declared by %q", ErrConfig, f.Name, p.Name, other.Name)
				}
			}
		}
	}
	r.plugins[p.Name] = p
	return nil
}

// MustRegister is Register that panics on error, for init-time wiring.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Names returns the registered names in lexicographic order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for n := range r.plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plugins returns the registered plugins in name order.
func (r *Registry) Plugins() []Plugin {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(names))
	for i, n := range names {
		out[i] = r.plugins[n]
	}
	return out
}

// Lookup returns the plugin registered under name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Flags returns every declared plugin flag, ordered by plugin name.
func (r *Registry) Flags() []Flag {
	var out []Flag
	for _, p := range r.Plugins() {
		out = append(out, p.Flags...)
	}
	return out
}

// Instantiate builds one oracle per name, in the given order. An unknown
// name or a failing factory is a configuration error.
func (r *Registry) Instantiate(names []string, deps Deps) ([]Oracle, error) {
	oracles := make([]Oracle, 0, len(names))
	for _, n := range names {
		p, ok := r.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: unknown oracle %q", ErrConfig, n)
		}
		o, err := p.New(deps)
		if err != nil {
			return nil, fmt.Errorf("%w: oracle %q: %w", ErrConfig, n, err)
		}
		oracles = append(oracles, o)
	}
	return oracles, nil
}
