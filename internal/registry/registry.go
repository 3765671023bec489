// Package registry holds tool descriptors under composite
// "{provider}.{name}" keys and exposes per-provider views over the same
// store.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Handler executes one tool invocation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Param describes one tool parameter for schema generation.
type Param struct {
	Name        string
	Type        string // JSON-schema type: string, integer, boolean, array, object, number
	Description string
	Required    bool
	// Items is the element type for array params.
	Items string
}

// Descriptor is a registered tool.
type Descriptor struct {
	Name        string
	Provider    string
	Description string
	Params      []Param
	Handler     Handler
}

// CompositeKey returns the central-registry key for the descriptor.
func (d *Descriptor) CompositeKey() string {
	return d.Provider + "." + d.Name
}

// Registry is the central tool store. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor // composite key -> descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register stores a descriptor under its composite key. Registering an
// existing key overwrites the previous entry with a warning, leaving exactly
// one entry.
func (r *Registry) Register(d *Descriptor) {
	key := d.CompositeKey()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[key]; exists {
		slog.Warn("overwriting existing tool registration", "tool", key)
	}
	r.tools[key] = d
}

// Lookup finds a descriptor by composite key.
func (r *Registry) Lookup(compositeKey string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[compositeKey]
	return d, ok
}

// Unregister removes a tool by composite key and reports whether it existed.
func (r *Registry) Unregister(compositeKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[compositeKey]
	delete(r.tools, compositeKey)
	return ok
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = make(map[string]*Descriptor)
}

// All returns every descriptor sorted by composite key.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompositeKey() < out[j].CompositeKey()
	})
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Provider returns a bare-name view over this registry scoped to one
// provider. The view shares the store: registrations through either surface
// are visible on both.
func (r *Registry) Provider(name string) *ProviderView {
	return &ProviderView{registry: r, provider: name}
}

// ProviderView exposes one provider's tools by bare name. It is a view, not
// a second store.
type ProviderView struct {
	registry *Registry
	provider string
}

// Name returns the provider this view is scoped to.
func (v *ProviderView) Name() string { return v.provider }

// Register stores a tool on the shared registry under this view's provider.
func (v *ProviderView) Register(name, description string, params []Param, h Handler) *Descriptor {
	d := &Descriptor{
		Name:        name,
		Provider:    v.provider,
		Description: description,
		Params:      params,
		Handler:     h,
	}
	v.registry.Register(d)
	return d
}

// Lookup finds a tool by bare name on this provider's surface.
func (v *ProviderView) Lookup(name string) (*Descriptor, bool) {
	return v.registry.Lookup(v.provider + "." + name)
}

// Tools returns this provider's descriptors sorted by bare name.
func (v *ProviderView) Tools() []*Descriptor {
	all := v.registry.All()
	out := make([]*Descriptor, 0, len(all))
	for _, d := range all {
		if d.Provider == v.provider {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Split breaks a composite key into provider and bare name. Names without a
// separator are returned with an empty provider.
func Split(compositeKey string) (provider, name string) {
	i := strings.Index(compositeKey, ".")
	if i < 0 {
		return "", compositeKey
	}
	return compositeKey[:i], compositeKey[i+1:]
}
