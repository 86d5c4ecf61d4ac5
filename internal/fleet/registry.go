package fleet

import (
	"fmt"
	"sync"
)

// Registry provides fast in-memory access to fleet profiles
type Registry struct {
	mu     sync.RWMutex
	fleets map[string]*Fleet // keyed by fleet name
	loader *Loader
}

// NewRegistry creates a new fleet registry and loads all fleets
func NewRegistry(loader *Loader) (*Registry, error) {
	r := &Registry{
		fleets: make(map[string]*Fleet),
		loader: loader,
	}

	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("initial fleet load: %w", err)
	}

	return r, nil
}

// Get retrieves an enabled fleet by name
func (r *Registry) Get(name string) (*Fleet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.fleets[name]
	if !exists {
		return nil, fmt.Errorf("fleet not found: %s", name)
	}

	if !f.Enabled {
		return nil, fmt.Errorf("fleet disabled: %s", name)
	}

	return f, nil
}

// List returns all enabled fleets
func (r *Registry) List() []*Fleet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fleets := make([]*Fleet, 0, len(r.fleets))
	for _, f := range r.fleets {
		if f.Enabled {
			fleets = append(fleets, f)
		}
	}

	return fleets
}

// Exists checks if a fleet exists and is enabled
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.fleets[name]
	return exists && f.Enabled
}

// Reload reloads all fleets from disk
func (r *Registry) Reload() error {
	fleets, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load fleets: %w", err)
	}

	loaded := make(map[string]*Fleet, len(fleets))
	for _, f := range fleets {
		loaded[f.Name] = f
	}

	r.mu.Lock()
	r.fleets = loaded
	r.mu.Unlock()

	return nil
}
