package provider

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/skillsenselab/containerkit/logger"
)

// Lookup enumerates the provider implementations visible to the current
// process. Implementations must return providers in a stable order; the
// access layer deduplicates by implementation type.
type Lookup interface {
	Providers() ([]Provider, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func() ([]Provider, error)

func (f LookupFunc) Providers() ([]Provider, error) { return f() }

// Registry is an insertion-ordered collection of registered providers.
// It is the in-process analog of a classpath service-provider scan:
// provider packages call Register from init(), consumers enumerate via
// Providers.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	malformed []error
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider to the registry in insertion order.
//
// A nil provider or a provider without a name is a malformed
// registration. It is recorded and reported by Providers rather than
// dropped, so a broken registration can never be silently swallowed.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p == nil {
		r.malformed = append(r.malformed, fmt.Errorf("nil provider registered"))
		return
	}
	name := p.Name()
	if name == "" {
		r.malformed = append(r.malformed, fmt.Errorf("provider %T registered without a name", p))
		return
	}

	r.providers = append(r.providers, p)
	logger.Debug("Provider registered", map[string]interface{}{
		logger.FieldProvider: name,
	})
}

// Providers returns a snapshot of the registered providers in insertion
// order, or an error if any malformed registration was recorded.
func (r *Registry) Providers() ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.malformed) > 0 {
		return nil, stderrors.Join(r.malformed...)
	}

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out, nil
}

// Len returns the number of well-formed registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// --- Process-wide default registry ---

var defaultRegistry = NewRegistry()

// Register adds a provider to the process-wide registry.
// This is typically called from a provider package's init() function.
func Register(p Provider) {
	defaultRegistry.Register(p)
}

// DefaultLookup returns the process-wide registry as a Lookup.
func DefaultLookup() Lookup {
	return defaultRegistry
}
