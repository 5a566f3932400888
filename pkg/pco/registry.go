package pco

import (
	"errors"
	"fmt"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrEmptyRegistryKey = errors.New("registry key is required")
	ErrNilFactory       = errors.New("registry factory is required")
)

// Factory builds a client for a registry key.
type Factory func(key string) (Client, error)

// Registry is a keyed store of client instances, typically one per tenant or
// organization. The application owns the registry and passes it where needed
// instead of relying on a process-wide singleton.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Get returns the client stored under key, building it with factory on first
// use. Concurrent callers for the same key share a single instance; the
// factory runs at most once per key while it keeps succeeding. A factory
// error is returned to the caller and nothing is cached.
func (r *Registry) Get(key string, factory Factory) (Client, error) {
	if key == "" {
		return nil, ErrEmptyRegistryKey
	}

	if factory == nil {
		return nil, ErrNilFactory
	}

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()

	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	client, err := factory(key)
	if err != nil {
		return nil, fmt.Errorf("building client for %q: %w", key, err)
	}

	r.clients[key] = client

	return client, nil
}

// Remove drops the client stored under key, if any.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, key)
}

// Clear drops every stored client.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients = make(map[string]Client)
}

// Len returns the number of stored clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}
