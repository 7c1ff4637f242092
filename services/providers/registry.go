package providers

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrUnknownKind is returned when no builder exists for a spec's kind
	ErrUnknownKind = errors.New("unknown provider kind")
)

// Registry holds the configured adapters in priority order. It is populated
// once at startup and only read afterwards, so it carries no lock.
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
	}
}

// Register appends an adapter. Registration order is priority order.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter cannot be nil")
	}

	name := adapter.Name()
	if name == "" {
		return errors.New("adapter name cannot be empty")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
	}

	r.adapters = append(r.adapters, adapter)
	r.byName[name] = adapter
	return nil
}

// Adapters returns the adapters in priority order
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Specs returns the provider specs in priority order
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.adapters))
	for _, a := range r.adapters {
		specs = append(specs, a.Spec())
	}
	return specs
}

// Names returns the provider IDs in priority order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	return len(r.adapters)
}

// CredentialedCount returns how many providers have an API key
func (r *Registry) CredentialedCount() int {
	n := 0
	for _, a := range r.adapters {
		if a.Spec().HasCredential() {
			n++
		}
	}
	return n
}

// AdapterBuilder creates an adapter for one spec
type AdapterBuilder func(spec Spec, client *http.Client) (Adapter, error)

// RegistryBuilder helps build a registry from a provider table
type RegistryBuilder struct {
	builders map[Kind]AdapterBuilder
	client   *http.Client
}

// NewRegistryBuilder creates a new registry builder sharing one HTTP client
func NewRegistryBuilder(client *http.Client) *RegistryBuilder {
	if client == nil {
		client = http.DefaultClient
	}
	return &RegistryBuilder{
		builders: make(map[Kind]AdapterBuilder),
		client:   client,
	}
}

// WithAdapterBuilder registers the builder used for a provider kind
func (rb *RegistryBuilder) WithAdapterBuilder(kind Kind, builder AdapterBuilder) *RegistryBuilder {
	rb.builders[kind] = builder
	return rb
}

// Build creates one adapter per spec, preserving table order
func (rb *RegistryBuilder) Build(specs []Spec) (*Registry, error) {
	registry := NewRegistry()
	for _, spec := range specs {
		builder, ok := rb.builders[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("failed to build provider %s: %w: %q", spec.ID, ErrUnknownKind, spec.Kind)
		}
		adapter, err := builder(spec, rb.client)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", spec.ID, err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, fmt.Errorf("failed to register provider %s: %w", spec.ID, err)
		}
	}
	return registry, nil
}
