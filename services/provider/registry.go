package provider

import (
	"sort"

	"github.com/gosimple/slug"
)

// Registry maps normalized provider names to their adapters. Names are
// slugged before lookup so "Utah", "utah" and "UTAH" resolve identically.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

func (r *Registry) Register(name string, adapter Adapter) {
	key := slug.Make(name)
	if _, exists := r.adapters[key]; !exists {
		r.names = append(r.names, name)
	}
	r.adapters[key] = adapter
}

// Resolve returns the adapter registered under name, or
// *UnknownProviderError when there is none.
func (r *Registry) Resolve(name string) (Adapter, error) {
	adapter, ok := r.adapters[slug.Make(name)]
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}
	return adapter, nil
}

// Names lists the registered provider names, sorted, for error messages.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	sort.Strings(names)
	return names
}
