// Package model implements the transis model graph engine: a Space holds the
// class registry, attribute type registry and identity map; classes declare
// typed attributes and bidirectional associations; records are normalized
// from raw payloads into a graph of canonical instances.
package model

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cookieranger/transis/schema"
)

// Space is the process-scoped context for a model graph. It owns the class
// registry, the attribute type registry and the identity map, so tests and
// applications can run multiple isolated graphs side by side instead of
// sharing hidden module-level singletons.
//
// A single mutex serializes every mutation of the graph: record loads,
// attribute writes and association updates. Query collections settle on
// background goroutines, so the graph needs real synchronization even though
// each individual mutation is synchronous.
type Space struct {
	mu      sync.Mutex
	classes map[string]*Class
	types   *schema.TypeRegistry
	ident   *identityMap
	log     *zap.Logger
}

// SpaceOption configures a Space
type SpaceOption func(*Space)

// WithLogger sets the logger used by the space and its classes
func WithLogger(log *zap.Logger) SpaceOption {
	return func(s *Space) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTypeRegistry replaces the space's attribute type registry
func WithTypeRegistry(types *schema.TypeRegistry) SpaceOption {
	return func(s *Space) {
		if types != nil {
			s.types = types
		}
	}
}

// NewSpace creates an empty Space with the built-in attribute types
// registered and a no-op logger.
func NewSpace(opts ...SpaceOption) *Space {
	s := &Space{
		classes: make(map[string]*Class),
		types:   schema.NewTypeRegistry(),
		ident:   newIdentityMap(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register registers a new model class under the given name. The name is
// what string-typed association targets resolve against.
func (s *Space) Register(name string) (*Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registerLocked(name, nil)
}

// MustRegister is like Register but panics on error. Intended for
// class definitions at program start.
func (s *Space) MustRegister(name string) *Class {
	class, err := s.Register(name)
	if err != nil {
		panic(err)
	}
	return class
}

func (s *Space) registerLocked(name string, parent *Class) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: class name must not be empty", ErrDuplicateClass)
	}
	if _, exists := s.classes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, name)
	}

	class := &Class{space: s, parent: parent}
	if parent != nil {
		class.schema = parent.schema.Extend(name)
		class.mapper = parent.mapper
	} else {
		class.schema = schema.NewClassSchema(name)
	}

	s.classes[name] = class
	return class, nil
}

// Class retrieves a registered class by name
func (s *Space) Class(name string) (*Class, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, exists := s.classes[name]
	return class, exists
}

// Classes returns the names of all registered classes
func (s *Space) Classes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.classes))
	for name := range s.classes {
		names = append(names, name)
	}
	return names
}

// Types returns the space's attribute type registry
func (s *Space) Types() *schema.TypeRegistry {
	return s.types
}

// Logger returns the space's logger
func (s *Space) Logger() *zap.Logger {
	return s.log
}

// Size returns the number of records held by the identity map
func (s *Space) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ident.size()
}
