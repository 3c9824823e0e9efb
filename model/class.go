package model

import (
	"fmt"

	"github.com/cookieranger/transis/schema"
)

// AttrOpts carries optional settings for an attribute declaration
type AttrOpts struct {
	// Default is substituted on reads while the attribute has never been set
	Default interface{}
}

// AssocOpts carries optional settings for an association declaration
type AssocOpts struct {
	// Inverse names the reciprocal property on the target class. When set,
	// every mutation of this association synchronously updates the other side.
	Inverse string
	// Singular overrides the singular form used for id-list key guessing on
	// hasMany associations (tags -> tagIds). Defaults to a naive
	// singularization of the association name.
	Singular string
}

// Class is a registered model class: a schema of attribute and association
// descriptors bound to a Space and, optionally, to an external data mapper.
type Class struct {
	space  *Space
	schema *schema.ClassSchema
	parent *Class
	mapper interface{}
}

// Name returns the registered class name
func (c *Class) Name() string {
	return c.schema.Name
}

// Space returns the space the class is registered in
func (c *Class) Space() *Space {
	return c.space
}

// Parent returns the class this class extends, or nil
func (c *Class) Parent() *Class {
	return c.parent
}

// Schema returns the class's descriptor table
func (c *Class) Schema() *schema.ClassSchema {
	return c.schema
}

// Mapper returns the external data mapper bound to the class, or nil
func (c *Class) Mapper() interface{} {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.mapper
}

// UseMapper binds an external data mapper to the class. The mapper's
// capabilities are checked at call time, not here.
func (c *Class) UseMapper(m interface{}) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	c.mapper = m
}

// Extend registers a subclass whose descriptor table starts as a copy of
// this class's. The subclass inherits the parent's mapper and may declare
// additional attributes and associations without affecting the parent.
func (c *Class) Extend(name string) (*Class, error) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()

	return c.space.registerLocked(name, c)
}

// Attr declares a typed attribute on the class. The type must be registered
// in the space's type registry.
func (c *Class) Attr(name, typ string, opts ...AttrOpts) error {
	if _, ok := c.space.types.Get(typ); !ok {
		return fmt.Errorf("%w: %s (attribute %s on class %s)", schema.ErrUnknownType, typ, name, c.Name())
	}

	attr := &schema.Attr{Name: name, Type: typ}
	if len(opts) > 0 && opts[0].Default != nil {
		attr.Default = opts[0].Default
		attr.HasDefault = true
	}

	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.schema.AddAttr(attr)
}

// HasOne declares a single-valued association. The target may be a
// registered class, or a name resolved through the class registry at access
// time so mutually associated classes can reference each other forward.
func (c *Class) HasOne(name string, target interface{}, opts ...AssocOpts) error {
	return c.addAssoc(name, schema.HasOne, target, opts)
}

// HasMany declares an ordered multi-valued association. See HasOne for
// target resolution.
func (c *Class) HasMany(name string, target interface{}, opts ...AssocOpts) error {
	return c.addAssoc(name, schema.HasMany, target, opts)
}

func (c *Class) addAssoc(name string, kind schema.AssocKind, target interface{}, opts []AssocOpts) error {
	targetName, err := assocTargetName(target)
	if err != nil {
		return fmt.Errorf("association %s on class %s: %w", name, c.Name(), err)
	}

	assoc := &schema.Association{Name: name, Kind: kind, Target: targetName}
	if len(opts) > 0 {
		assoc.Inverse = opts[0].Inverse
		assoc.Singular = opts[0].Singular
	}

	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.schema.AddAssoc(assoc)
}

// assocTargetName accepts a direct class reference or a class name
func assocTargetName(target interface{}) (string, error) {
	switch t := target.(type) {
	case string:
		if t == "" {
			return "", fmt.Errorf("%w: empty target name", ErrUnknownClass)
		}
		return t, nil
	case *Class:
		if t == nil {
			return "", fmt.Errorf("%w: nil target class", ErrUnknownClass)
		}
		return t.Name(), nil
	default:
		return "", fmt.Errorf("%w: target must be a class or class name, got %T", ErrUnknownClass, target)
	}
}

// isA reports whether the class is target or one of its subclasses
func (c *Class) isA(target *Class) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == target {
			return true
		}
	}
	return false
}

// resolveTarget resolves an association's target class through the registry.
// Caller must hold the space mutex.
func (c *Class) resolveTarget(a *schema.Association) (*Class, error) {
	target, ok := c.space.classes[a.Target]
	if !ok {
		return nil, fmt.Errorf("%w: %s (association %s on class %s)", ErrUnknownClass, a.Target, a.Name, c.Name())
	}
	return target, nil
}
