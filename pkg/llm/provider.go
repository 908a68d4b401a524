package llm

import (
	"context"
	"fmt"
)

// Provider is the abstraction over one model backend. Implementations must
// be safe for concurrent use and must propagate context cancellation.
type Provider interface {
	// Name returns the provider identifier used in model specs and cache keys.
	Name() string

	// Complete sends the request and waits for the full response. Failures
	// surface as a *ProviderError.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Registry maps provider identifiers to implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get looks up a provider by identifier.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}
