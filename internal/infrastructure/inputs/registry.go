package inputs

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Registry holds registered input factories. Input packages register
// themselves in init().
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// GlobalRegistry is where input packages register themselves.
var GlobalRegistry = NewRegistry()

func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

// Create builds a MessageInput for the given type and config.
func (r *Registry) Create(name string, cfg Config, sink EventSink) (MessageInput, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown input type: %s", name)
	}
	return factory.Create(cfg, sink)
}

// ListRegistered returns all registered input type names, sorted.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTypesInfo returns config specs for all registered input types, sorted by type.
func (r *Registry) AllTypesInfo() []InputTypeInfo {
	r.mu.RLock()
	out := make([]InputTypeInfo, 0, len(r.factories))
	for _, factory := range r.factories {
		out = append(out, factory.ConfigSpec())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Handle is satisfied by *http.ServeMux and the server's ingest dispatcher.
type Handle interface {
	Handle(pattern string, handler http.Handler)
}

// MountHTTPEndpoints creates inputs from specs, starts them and mounts
// HTTPEndpointInput handlers onto mux unless they bind their own listener.
// The started inputs are returned so the caller can stop them.
func (r *Registry) MountHTTPEndpoints(mux Handle, specs []InputSpec, sink EventSink) ([]MessageInput, error) {
	started := make([]MessageInput, 0, len(specs))
	for _, spec := range specs {
		input, err := r.Create(spec.Type, spec.Config, sink)
		if err != nil {
			return started, err
		}
		if err := input.Start(); err != nil {
			return started, fmt.Errorf("start %s input: %w", spec.Type, err)
		}
		started = append(started, input)
		if spec.Config.String("listen") != "" {
			continue
		}
		if ep, ok := input.(HTTPEndpointInput); ok {
			mux.Handle(ep.Path(), ep.Handler())
		}
	}
	return started, nil
}
