package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marlkit/marl/pkg/core"
)

// Registry maps model names to schemas. Reference fields hold target model
// names rather than schema pointers, so mutually referencing models can be
// registered in any order; names are resolved here on first use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds a schema. Registering the same model name twice is an error.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return fmt.Errorf("cannot register a nil schema")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.schemas[s.Name()]; dup {
		return fmt.Errorf("model %q is already registered", s.Name())
	}
	r.schemas[s.Name()] = s
	return nil
}

// MustRegister is Register for package-level declarations.
func (r *Registry) MustRegister(s *Schema) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Lookup resolves a model name. Unknown names report core.ErrUnknownModel.
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownModel, name)
	}
	return s, nil
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check verifies cross-model consistency after registration: every
// reference target must be registered, and every ManyToMany inverse must
// exist on the target as a ManyToMany pointing back. Registration itself
// stays lazy about this so declaration order never matters; call Check once
// all models are registered.
func (r *Registry) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, s := range r.schemas {
		for _, attr := range s.Attrs() {
			f, _ := s.Field(attr)
			if !f.Kind().IsReference() {
				continue
			}
			target, ok := r.schemas[f.Target()]
			if !ok {
				return fmt.Errorf("model %q attribute %q: %w: %q",
					name, attr, core.ErrUnknownModel, f.Target())
			}
			switch f.Kind() {
			case ManyKind:
				via, ok := target.Field(f.Inverse())
				if !ok {
					return fmt.Errorf("model %q attribute %q: target %q has no attribute %q",
						name, attr, f.Target(), f.Inverse())
				}
				if via.Kind() != OneKind {
					return fmt.Errorf("model %q attribute %q: via attribute %q on %q must be a one reference, is %s",
						name, attr, f.Inverse(), f.Target(), via.Kind())
				}
			case ManyToManyKind:
				inv, ok := target.Field(f.Inverse())
				if !ok {
					return fmt.Errorf("model %q attribute %q: target %q has no inverse attribute %q",
						name, attr, f.Target(), f.Inverse())
				}
				if inv.Kind() != ManyToManyKind {
					return fmt.Errorf("model %q attribute %q: inverse %q on %q must be many_to_many, is %s",
						name, attr, f.Inverse(), f.Target(), inv.Kind())
				}
				if inv.Target() != name || inv.Inverse() != attr {
					return fmt.Errorf("model %q attribute %q: inverse %q on %q does not point back",
						name, attr, f.Inverse(), f.Target())
				}
			}
		}
	}
	return nil
}
