package schema

import (
	"fmt"
	"sort"
)

// AssocKind represents the kind of association between model classes
type AssocKind int

const (
	// HasOne is a single-valued association
	HasOne AssocKind = iota
	// HasMany is an ordered multi-valued association
	HasMany
)

// String returns the string representation of the association kind
func (k AssocKind) String() string {
	switch k {
	case HasOne:
		return "hasOne"
	case HasMany:
		return "hasMany"
	default:
		return "unknown"
	}
}

// Attr describes a declared typed attribute
type Attr struct {
	Name string
	Type string
	// Default is substituted on reads while the attribute has never been set
	Default interface{}
	// HasDefault distinguishes an explicit nil default from no default
	HasDefault bool
}

// Association describes a declared hasOne or hasMany association
type Association struct {
	Name string
	Kind AssocKind
	// Target is the registered name of the target class, resolved lazily at
	// access time so mutually associated classes can forward-reference each other
	Target string
	// Inverse is the reciprocal property name on the target class, or empty
	Inverse string
	// Singular overrides the singular form used for id-list key guessing on
	// hasMany associations (tags -> tagIds)
	Singular string
}

// ClassSchema holds the declared attribute and association descriptors for
// one model class. Subclass schemas start as copies of their parent's
// descriptor maps, so inherited descriptors can be shadowed without
// affecting the parent.
type ClassSchema struct {
	Name   string
	Attrs  map[string]*Attr
	Assocs map[string]*Association

	// own tracks names declared directly on this schema, so a subclass can
	// shadow an inherited descriptor while redeclaration on the same class
	// stays an error
	own map[string]bool
}

// NewClassSchema creates an empty schema for a class
func NewClassSchema(name string) *ClassSchema {
	return &ClassSchema{
		Name:   name,
		Attrs:  make(map[string]*Attr),
		Assocs: make(map[string]*Association),
		own:    make(map[string]bool),
	}
}

// Extend creates a child schema whose descriptor maps are initialized as
// copies of this schema's
func (s *ClassSchema) Extend(name string) *ClassSchema {
	child := &ClassSchema{
		Name:   name,
		Attrs:  make(map[string]*Attr, len(s.Attrs)),
		Assocs: make(map[string]*Association, len(s.Assocs)),
		own:    make(map[string]bool),
	}
	for k, v := range s.Attrs {
		child.Attrs[k] = v
	}
	for k, v := range s.Assocs {
		child.Assocs[k] = v
	}
	return child
}

// AddAttr declares a typed attribute on this schema
func (s *ClassSchema) AddAttr(attr *Attr) error {
	if err := s.checkName(attr.Name); err != nil {
		return err
	}
	// Shadowing an inherited association with an attribute (or vice versa)
	// would leave both descriptor maps claiming the name
	delete(s.Assocs, attr.Name)
	s.Attrs[attr.Name] = attr
	s.own[attr.Name] = true
	return nil
}

// AddAssoc declares an association on this schema
func (s *ClassSchema) AddAssoc(assoc *Association) error {
	if err := s.checkName(assoc.Name); err != nil {
		return err
	}
	delete(s.Attrs, assoc.Name)
	s.Assocs[assoc.Name] = assoc
	s.own[assoc.Name] = true
	return nil
}

// checkName rejects a redeclaration of a name already declared directly on
// this schema; shadowing an inherited descriptor is allowed
func (s *ClassSchema) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty field name on class %s", ErrDuplicateField, s.Name)
	}
	if s.own[name] {
		return fmt.Errorf("%w: %s on class %s", ErrDuplicateField, name, s.Name)
	}
	return nil
}

// HasField returns true if the schema declares an attribute or association
// with the given name
func (s *ClassSchema) HasField(name string) bool {
	if _, ok := s.Attrs[name]; ok {
		return true
	}
	_, ok := s.Assocs[name]
	return ok
}

// AttrNames returns the declared attribute names in sorted order
func (s *ClassSchema) AttrNames() []string {
	names := make([]string, 0, len(s.Attrs))
	for name := range s.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssocNames returns the declared association names in sorted order
func (s *ClassSchema) AssocNames() []string {
	names := make([]string, 0, len(s.Assocs))
	for name := range s.Assocs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
