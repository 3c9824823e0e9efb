// Package schema provides a registry for named attribute converters
package schema

import (
	"fmt"
	"sync"
)

// TypeRegistry manages named attribute converters. Every Space owns one; the
// built-in types are pre-registered and applications may add their own.
type TypeRegistry struct {
	types map[string]Converter
	mu    sync.RWMutex
}

// NewTypeRegistry creates a type registry with the built-in types registered:
// identity, string, integer, number, boolean, date and datetime.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]Converter)}

	// Built-ins never collide in a fresh registry
	_ = r.Register("identity", IdentityConverter{})
	_ = r.Register("string", StringConverter{Trim: true})
	_ = r.Register("rawstring", StringConverter{})
	_ = r.Register("integer", IntegerConverter{})
	_ = r.Register("number", NumberConverter{})
	_ = r.Register("boolean", BooleanConverter{})
	_ = r.Register("date", DateConverter{})
	_ = r.Register("datetime", DateTimeConverter{})

	return r
}

// Register registers a converter under a name
func (r *TypeRegistry) Register(name string, converter Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = converter
	return nil
}

// Get retrieves a converter by name
func (r *TypeRegistry) Get(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	converter, exists := r.types[name]
	return converter, exists
}

// List returns the names of all registered types
func (r *TypeRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
