package model

import (
	"fmt"
	"math"
	"strconv"
)

// identityKey identifies one canonical record: lookups are exact-match on
// the concrete class, with no polymorphism across a class hierarchy.
type identityKey struct {
	class *Class
	id    interface{}
}

// identityMap maps (class, id) to the single canonical record instance.
// There is no eviction; entries live for the lifetime of the Space.
// Access is serialized by the owning Space's mutex.
type identityMap struct {
	records map[identityKey]*Record
}

func newIdentityMap() *identityMap {
	return &identityMap{records: make(map[identityKey]*Record)}
}

// get returns the canonical record for (class, id), or nil
func (m *identityMap) get(class *Class, id interface{}) *Record {
	return m.records[identityKey{class: class, id: id}]
}

// insert registers a record under its class and normalized id. The first
// record inserted for an id stays canonical; inserting another id-bearing
// record for the same id is a no-op so the map never swaps instances out
// from under existing references.
func (m *identityMap) insert(rec *Record) {
	key := identityKey{class: rec.class, id: rec.id}
	if _, exists := m.records[key]; exists {
		return
	}
	m.records[key] = rec
}

// size returns the number of registered records
func (m *identityMap) size() int {
	return len(m.records)
}

// normalizeID canonicalizes an id so that numerically equal ids collide
// regardless of how a decoder represented them: integral numbers become
// int64 (JSON's 2.0 and Go's 2 are the same id), strings stay strings.
func normalizeID(id interface{}) (interface{}, error) {
	switch v := id.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidID)
	case string:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10), nil
		}
		return int64(v), nil
	case float32:
		return normalizeFloatID(float64(v))
	case float64:
		return normalizeFloatID(v)
	default:
		return nil, fmt.Errorf("%w: %v (%T)", ErrInvalidID, id, id)
	}
}

func normalizeFloatID(f float64) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, f)
	}
	if f == math.Trunc(f) {
		return int64(f), nil
	}
	return f, nil
}
