package model

import (
	"fmt"

	istrings "github.com/cookieranger/transis/internal/util/strings"
	"github.com/cookieranger/transis/mapper"
	"github.com/cookieranger/transis/schema"
)

// Record is one model instance. Its identity is (class, id): once a non-null
// id has been assigned the record is registered in the space's identity map
// and the id can never change. Attribute values live in typed slots with an
// un-coerced shadow value kept per attribute; association slots hold
// non-owning references to other canonical records.
type Record struct {
	class *Class
	id    interface{}
	state SourceState
	busy  bool

	attrs  map[string]interface{} // coerced values
	raw    map[string]interface{} // before-coercion shadow values
	assocs map[string]interface{} // *Record for hasOne, []*Record for hasMany
}

func newRecord(class *Class) *Record {
	return &Record{
		class:  class,
		state:  StateNew,
		attrs:  make(map[string]interface{}),
		raw:    make(map[string]interface{}),
		assocs: make(map[string]interface{}),
	}
}

// New creates a fresh, unregistered record in state new
func (c *Class) New() *Record {
	return newRecord(c)
}

// Class returns the record's model class
func (r *Record) Class() *Class {
	return r.class
}

// ID returns the record's normalized id, or nil if it has none yet
func (r *Record) ID() interface{} {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.id
}

// State returns the record's source state
func (r *Record) State() SourceState {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.state
}

// IsBusy returns true while a mapper call for this record is in flight
func (r *Record) IsBusy() bool {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.busy
}

// Get returns the value of a declared field: the coerced attribute value (or
// the declared default while the attribute has never been set), the hasOne
// reference or nil, or a copy of the hasMany collection. Unknown names
// return nil.
func (r *Record) Get(name string) interface{} {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.getLocked(name)
}

func (r *Record) getLocked(name string) interface{} {
	if name == "id" {
		return r.id
	}
	if a, ok := r.class.schema.Attrs[name]; ok {
		v, set := r.attrs[name]
		if !set {
			if a.HasDefault {
				return a.Default
			}
			return nil
		}
		return v
	}
	if a, ok := r.class.schema.Assocs[name]; ok {
		if a.Kind == schema.HasOne {
			rec, _ := r.assocs[name].(*Record)
			if rec == nil {
				return nil
			}
			return rec
		}
		return r.manyLocked(a)
	}
	return nil
}

// Raw returns the pre-coercion shadow value last written to an attribute
func (r *Record) Raw(name string) interface{} {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.raw[name]
}

// One returns the current hasOne reference, or nil
func (r *Record) One(name string) *Record {
	rec, _ := r.Get(name).(*Record)
	return rec
}

// Many returns an ordered copy of a hasMany collection. The copy is safe to
// range over while the record is being mutated.
func (r *Record) Many(name string) []*Record {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	a, ok := r.class.schema.Assocs[name]
	if !ok || a.Kind != schema.HasMany {
		return nil
	}
	return r.manyLocked(a)
}

func (r *Record) manyLocked(a *schema.Association) []*Record {
	cur, _ := r.assocs[a.Name].([]*Record)
	out := make([]*Record, len(cur))
	copy(out, cur)
	return out
}

// Set assigns a declared field. Attribute writes run through the type's
// coercion and store the raw input as the shadow value; association writes
// run through the association engine, keeping any inverse in sync. Setting
// "id" registers the record in the identity map and may happen only once.
func (r *Record) Set(name string, value interface{}) error {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	return r.setLocked(name, value)
}

func (r *Record) setLocked(name string, value interface{}) error {
	if name == "id" {
		return r.setIDLocked(value)
	}
	if a, ok := r.class.schema.Attrs[name]; ok {
		return r.setAttrLocked(a, value)
	}
	if a, ok := r.class.schema.Assocs[name]; ok {
		if a.Kind == schema.HasOne {
			rec, err := oneValue(value)
			if err != nil {
				return fmt.Errorf("association %s on class %s: %w", name, r.class.Name(), err)
			}
			return r.setOneLocked(a, rec, true)
		}
		recs, err := manyValue(value)
		if err != nil {
			return fmt.Errorf("association %s on class %s: %w", name, r.class.Name(), err)
		}
		return r.replaceManyLocked(a, recs, true)
	}
	return fmt.Errorf("%w: %s on class %s", ErrUnknownField, name, r.class.Name())
}

func (r *Record) setIDLocked(value interface{}) error {
	if value == nil {
		if r.id != nil {
			return fmt.Errorf("%w: class %s id %v", ErrIDImmutable, r.class.Name(), r.id)
		}
		return nil
	}
	if r.id != nil {
		return fmt.Errorf("%w: class %s id %v", ErrIDImmutable, r.class.Name(), r.id)
	}
	id, err := normalizeID(value)
	if err != nil {
		return err
	}
	r.id = id
	r.class.space.ident.insert(r)
	return nil
}

func (r *Record) setAttrLocked(a *schema.Attr, value interface{}) error {
	converter, ok := r.class.space.types.Get(a.Type)
	if !ok {
		return fmt.Errorf("%w: %s (attribute %s on class %s)", schema.ErrUnknownType, a.Type, a.Name, r.class.Name())
	}
	coerced, err := converter.Coerce(value)
	if err != nil {
		return fmt.Errorf("attribute %s on class %s: %w", a.Name, r.class.Name(), err)
	}
	r.raw[a.Name] = value
	r.attrs[a.Name] = coerced
	return nil
}

// oneValue extracts the record from a hasOne assignment value
func oneValue(value interface{}) (*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Record:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: expected a record, got %T", ErrTypeMismatch, value)
	}
}

// manyValue extracts the records from a hasMany assignment value
func manyValue(value interface{}) ([]*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []*Record:
		return v, nil
	case []interface{}:
		recs := make([]*Record, 0, len(v))
		for _, item := range v {
			rec, ok := item.(*Record)
			if !ok {
				return nil, fmt.Errorf("%w: expected records, got %T", ErrTypeMismatch, item)
			}
			recs = append(recs, rec)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("%w: expected a record slice, got %T", ErrTypeMismatch, value)
	}
}

// Add appends records to a hasMany association, skipping records that are
// already members and attaching the inverse side per added record
func (r *Record) Add(name string, recs ...*Record) error {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	a, err := r.manyAssoc(name)
	if err != nil {
		return err
	}
	return r.addManyLocked(a, recs, true)
}

// Remove removes records from a hasMany association if present, detaching
// the inverse side per removed record
func (r *Record) Remove(name string, recs ...*Record) error {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	a, err := r.manyAssoc(name)
	if err != nil {
		return err
	}
	return r.removeManyLocked(a, recs, true)
}

// Clear empties an association: a hasMany collection loses all members and a
// hasOne reference is set to nil, detaching inverses either way
func (r *Record) Clear(name string) error {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	a, ok := r.class.schema.Assocs[name]
	if !ok {
		return fmt.Errorf("%w: association %s on class %s", ErrUnknownField, name, r.class.Name())
	}
	if a.Kind == schema.HasOne {
		return r.setOneLocked(a, nil, true)
	}
	return r.replaceManyLocked(a, nil, true)
}

func (r *Record) manyAssoc(name string) (*schema.Association, error) {
	a, ok := r.class.schema.Assocs[name]
	if !ok {
		return nil, fmt.Errorf("%w: association %s on class %s", ErrUnknownField, name, r.class.Name())
	}
	if a.Kind != schema.HasMany {
		return nil, fmt.Errorf("%w: %s on class %s is %s, not hasMany", ErrTypeMismatch, name, r.class.Name(), a.Kind)
	}
	return a, nil
}

// Serialize converts the record back into a raw payload: attributes through
// their converters, the hasOne side as a <name>Id field and the hasMany side
// as a <singular>Ids list.
func (r *Record) Serialize() mapper.Payload {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	out := make(mapper.Payload)
	if r.id != nil {
		out["id"] = r.id
	}
	for _, name := range r.class.schema.AttrNames() {
		a := r.class.schema.Attrs[name]
		v, set := r.attrs[name]
		if !set {
			continue
		}
		if converter, ok := r.class.space.types.Get(a.Type); ok {
			v = converter.Serialize(v)
		}
		out[name] = v
	}
	for _, name := range r.class.schema.AssocNames() {
		a := r.class.schema.Assocs[name]
		if a.Kind == schema.HasOne {
			if rec, _ := r.assocs[name].(*Record); rec != nil && rec.id != nil {
				out[foreignKey(a.Name)] = rec.id
			}
			continue
		}
		members, _ := r.assocs[name].([]*Record)
		if len(members) == 0 {
			continue
		}
		ids := make([]interface{}, 0, len(members))
		for _, rec := range members {
			if rec.id != nil {
				ids = append(ids, rec.id)
			}
		}
		out[idListKey(a)] = ids
	}
	return out
}

// String returns a short debugging representation like Post(2, loaded)
func (r *Record) String() string {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()

	if r.id == nil {
		return fmt.Sprintf("%s(-, %s)", r.class.Name(), r.state)
	}
	return fmt.Sprintf("%s(%v, %s)", r.class.Name(), r.id, r.state)
}

// foreignKey builds the camelCase foreign-key field name for a hasOne
// association (author -> authorId)
func foreignKey(name string) string {
	return name + "Id"
}

// snakeForeignKey builds the snake_case foreign-key field name for a hasOne
// association (author -> author_id)
func snakeForeignKey(name string) string {
	return istrings.ToSnakeCase(name) + "_id"
}

// idListKey builds the camelCase id-list field name for a hasMany
// association (tags -> tagIds)
func idListKey(a *schema.Association) string {
	return singularName(a) + "Ids"
}

// snakeIDListKey builds the snake_case id-list field name for a hasMany
// association (tags -> tag_ids)
func snakeIDListKey(a *schema.Association) string {
	return istrings.ToSnakeCase(singularName(a)) + "_ids"
}

func singularName(a *schema.Association) string {
	if a.Singular != "" {
		return a.Singular
	}
	return istrings.Singularize(a.Name)
}
