package model

import (
	"fmt"

	"github.com/cookieranger/transis/mapper"
	"github.com/cookieranger/transis/schema"
)

// Empty produces a placeholder record carrying only its id, in state empty,
// without touching the external mapper. It stands in for referenced models
// that have not been fetched yet.
func (c *Class) Empty(id interface{}) (*Record, error) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.emptyLocked(id)
}

func (c *Class) emptyLocked(id interface{}) (*Record, error) {
	rec := newRecord(c)
	if err := rec.setIDLocked(id); err != nil {
		return nil, err
	}
	rec.state = StateEmpty
	return rec, nil
}

// Local returns the identity-mapped record for the id if one exists, else an
// empty placeholder. It never calls the external mapper.
func (c *Class) Local(id interface{}) (*Record, error) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.localLocked(id)
}

func (c *Class) localLocked(id interface{}) (*Record, error) {
	nid, err := normalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: class %s", ErrMissingID, c.Name())
	}
	if rec := c.space.ident.get(c, nid); rec != nil {
		return rec, nil
	}
	return c.emptyLocked(nid)
}

// Get returns the cached record for the id, or an empty placeholder.
// Triggering a refresh through the mapper is not implemented; use Fetch to
// go to the data source explicitly.
func (c *Class) Get(id interface{}) (*Record, error) {
	return c.Local(id)
}

// Load normalizes a raw attribute payload into the canonical record for its
// id: the identity map is consulted first and the existing instance is
// mutated in place, so loading the same id twice always yields the same
// instance. Declared attributes are assigned through coercion, declared
// associations are resolved recursively (nested payloads, bare ids, id
// arrays, or foreign-key-style fields), and unrecognized keys are ignored.
// The record ends in state loaded, not busy.
func (c *Class) Load(payload mapper.Payload) (*Record, error) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	return c.loadLocked(payload)
}

// LoadAll applies Load to each payload, returning the records in order
func (c *Class) LoadAll(payloads []mapper.Payload) ([]*Record, error) {
	c.space.mu.Lock()
	defer c.space.mu.Unlock()

	recs := make([]*Record, 0, len(payloads))
	for _, payload := range payloads {
		rec, err := c.loadLocked(payload)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (c *Class) loadLocked(payload mapper.Payload) (*Record, error) {
	rawID, ok := payload["id"]
	if !ok || rawID == nil {
		return nil, fmt.Errorf("%w: load on class %s requires an id", ErrMissingID, c.Name())
	}
	id, err := normalizeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("load on class %s: %w", c.Name(), err)
	}

	rec := c.space.ident.get(c, id)
	if rec == nil {
		rec = newRecord(c)
		if err := rec.setIDLocked(id); err != nil {
			return nil, err
		}
	}

	// Apply in declaration-table order so payload map iteration order is
	// never observable: attributes first, associations after.
	for _, name := range c.schema.AttrNames() {
		if name == "id" {
			continue
		}
		value, present := payload[name]
		if !present {
			continue
		}
		if err := rec.setAttrLocked(c.schema.Attrs[name], value); err != nil {
			return nil, err
		}
	}

	for _, name := range c.schema.AssocNames() {
		a := c.schema.Assocs[name]
		if err := c.loadAssoc(rec, a, payload); err != nil {
			return nil, err
		}
	}

	rec.state = StateLoaded
	rec.busy = false
	return rec, nil
}

// loadAssoc resolves one association from the payload. The association's own
// key wins; when it is absent a foreign-key-style field is tried instead
// (authorId/author_id for hasOne, tagIds/tag_ids for hasMany).
func (c *Class) loadAssoc(rec *Record, a *schema.Association, payload mapper.Payload) error {
	if value, present := payload[a.Name]; present {
		target, err := c.resolveTarget(a)
		if err != nil {
			return err
		}
		if a.Kind == schema.HasOne {
			ref, err := resolveOne(target, value)
			if err != nil {
				return fmt.Errorf("association %s on class %s: %w", a.Name, c.Name(), err)
			}
			return rec.setOneLocked(a, ref, true)
		}
		refs, err := resolveMany(target, value)
		if err != nil {
			return fmt.Errorf("association %s on class %s: %w", a.Name, c.Name(), err)
		}
		return rec.replaceManyLocked(a, refs, true)
	}

	if a.Kind == schema.HasOne {
		for _, key := range []string{foreignKey(a.Name), snakeForeignKey(a.Name)} {
			value, present := payload[key]
			if !present {
				continue
			}
			if value == nil {
				return rec.setOneLocked(a, nil, true)
			}
			target, err := c.resolveTarget(a)
			if err != nil {
				return err
			}
			ref, err := target.localLocked(value)
			if err != nil {
				return fmt.Errorf("association %s on class %s: %w", a.Name, c.Name(), err)
			}
			return rec.setOneLocked(a, ref, true)
		}
		return nil
	}

	for _, key := range []string{idListKey(a), snakeIDListKey(a)} {
		value, present := payload[key]
		if !present {
			continue
		}
		target, err := c.resolveTarget(a)
		if err != nil {
			return err
		}
		refs, err := resolveIDList(target, value)
		if err != nil {
			return fmt.Errorf("association %s on class %s: %w", a.Name, c.Name(), err)
		}
		return rec.replaceManyLocked(a, refs, true)
	}
	return nil
}

// resolveOne turns a hasOne payload value into a record: nested payloads are
// loaded recursively, bare ids resolve to the canonical or empty record
func resolveOne(target *Class, value interface{}) (*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Record:
		return v, nil
	case mapper.Payload:
		return target.loadLocked(v)
	default:
		return target.localLocked(v)
	}
}

// resolveMany turns a hasMany payload value into records, one per element
func resolveMany(target *Class, value interface{}) ([]*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []*Record:
		return v, nil
	case []mapper.Payload:
		recs := make([]*Record, 0, len(v))
		for _, item := range v {
			rec, err := target.loadLocked(item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		return recs, nil
	case []interface{}:
		recs := make([]*Record, 0, len(v))
		for _, item := range v {
			rec, err := resolveOne(target, item)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				recs = append(recs, rec)
			}
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("%w: expected an array, got %T", ErrTypeMismatch, value)
	}
}

// resolveIDList turns an id-list payload value into local records
func resolveIDList(target *Class, value interface{}) ([]*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		recs := make([]*Record, 0, len(v))
		for _, id := range v {
			if id == nil {
				continue
			}
			rec, err := target.localLocked(id)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("%w: expected an id array, got %T", ErrTypeMismatch, value)
	}
}
