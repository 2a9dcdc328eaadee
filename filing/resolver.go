package filing

import (
	"fmt"
	"sort"
	"sync"
)

// Resolver maps fully-qualified schema names to schemas. The catalog uses
// it to reconstruct the concrete record type a row was indexed as.
//
// Resolution is explicit: schemas must be registered before records of
// their type can be restored as that type. A miss is not an error; callers
// fall back to BaseSchema(), which preserves all field values untyped.
type Resolver struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewResolver creates a resolver with the base schema pre-registered.
func NewResolver() *Resolver {
	return &Resolver{
		schemas: map[string]*Schema{
			BaseSchema().Name(): BaseSchema(),
		},
	}
}

// Register stores a schema under its fully-qualified name. Registering a
// different schema under an existing name is an error; re-registering the
// same schema is a no-op.
func (r *Resolver) Register(s *Schema) error {
	if s == nil {
		return fmt.Errorf("cannot register nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.schemas[s.Name()]; ok && existing != s {
		return fmt.Errorf("schema %q is already registered", s.Name())
	}
	r.schemas[s.Name()] = s
	return nil
}

// Resolve returns the schema registered under name.
func (r *Resolver) Resolve(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	return s, ok
}

// List returns the sorted names of all registered schemas.
func (r *Resolver) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
