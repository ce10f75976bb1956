package flagstate

import (
	"errors"
	"fmt"
	"slices"
)

// Registry is the immutable per-entity-type mapping from flag name to its
// definition. It is built once when the entity type is wired up and never
// mutated at runtime, so lookups need no synchronization.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry from the given definitions.
// Duplicate names, empty names, and rule flags without a rule are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.name == "" {
			return nil, errors.Join(ErrInvalidDefinition, errors.New("flag name cannot be empty"))
		}
		if _, exists := r.defs[def.name]; exists {
			return nil, errors.Join(ErrInvalidDefinition, fmt.Errorf("flag %q declared twice", def.name))
		}
		r.defs[def.name] = def
	}
	return r, nil
}

// Lookup returns the definition for name, or ErrUnknownFeature if the name
// was never declared.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, errors.Join(ErrUnknownFeature, fmt.Errorf("flag %q is not declared", name))
	}
	return def, nil
}

// Declared reports whether name is a declared flag.
func (r *Registry) Declared(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns all declared flag names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
