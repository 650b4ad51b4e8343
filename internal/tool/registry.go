package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTool means the model invoked a name the registry never held: a
// contract mismatch between declared schemas and registered capabilities.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is the closed set of capabilities resolved at startup. It
// dispatches invocations by name and buffers the sources each execution
// emits until the orchestrator drains them at the end of the turn.
type Registry struct {
	tools map[string]Tool
	order []string

	mu      sync.Mutex
	sources []Source
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a capability. Duplicate names are a configuration error,
// caught at startup rather than at dispatch time.
func (r *Registry) Register(t Tool) error {
	name := t.Schema().Name
	if name == "" {
		return fmt.Errorf("tool registered without a name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("duplicate tool name %q", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Schemas returns declarations in registration order for prompt assembly.
func (r *Registry) Schemas() []Schema {
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}

// Execute dispatches to the named capability and buffers its sources. An
// unregistered name is an error for the orchestrator to surface: it means
// the declared schemas and the registry disagree.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownTool, name)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return "", err
	}

	if len(result.Sources) > 0 {
		r.mu.Lock()
		r.sources = append(r.sources, result.Sources...)
		r.mu.Unlock()
	}
	return result.Text, nil
}

// DrainSources returns the buffered sources and clears the buffer, so each
// turn starts clean and never sees the prior turn's provenance.
func (r *Registry) DrainSources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	sources := r.sources
	r.sources = nil
	return sources
}
