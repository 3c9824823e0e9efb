package model

import (
	"fmt"

	"github.com/cookieranger/transis/schema"
)

// Association mutation engine.
//
// Every direct mutation runs with sync=true and propagates once to the
// inverse side; the inverse-side handlers run their own local update with
// sync=false so the propagation never re-enters. This is a two-level
// protocol, not a graph traversal: it assumes inverses are declared in
// pairs, one descriptor on each class.

// setOneLocked assigns a hasOne reference, detaching the previous value's
// inverse side and attaching the new value's
func (r *Record) setOneLocked(a *schema.Association, rec *Record, sync bool) error {
	if rec != nil {
		if err := r.checkAssocType(a, rec); err != nil {
			return err
		}
	}

	prev, _ := r.assocs[a.Name].(*Record)
	if rec == nil {
		delete(r.assocs, a.Name)
	} else {
		r.assocs[a.Name] = rec
	}

	if sync && a.Inverse != "" && prev != rec {
		if prev != nil {
			if err := prev.inverseRemoved(a.Inverse, r); err != nil {
				return err
			}
		}
		if rec != nil {
			if err := rec.inverseAdded(a.Inverse, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// addManyLocked appends records to a hasMany collection, skipping existing
// members so membership stays distinct
func (r *Record) addManyLocked(a *schema.Association, recs []*Record, sync bool) error {
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if err := r.checkAssocType(a, rec); err != nil {
			return err
		}
	}

	cur, _ := r.assocs[a.Name].([]*Record)
	for _, rec := range recs {
		if rec == nil || containsRecord(cur, rec) {
			continue
		}
		cur = append(cur, rec)
		if sync && a.Inverse != "" {
			if err := rec.inverseAdded(a.Inverse, r); err != nil {
				return err
			}
		}
	}
	r.assocs[a.Name] = cur
	return nil
}

// removeManyLocked removes exactly the given records if present
func (r *Record) removeManyLocked(a *schema.Association, recs []*Record, sync bool) error {
	cur, _ := r.assocs[a.Name].([]*Record)
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		idx := indexOfRecord(cur, rec)
		if idx < 0 {
			continue
		}
		cur = append(cur[:idx], cur[idx+1:]...)
		if sync && a.Inverse != "" {
			if err := rec.inverseRemoved(a.Inverse, r); err != nil {
				return err
			}
		}
	}
	r.assocs[a.Name] = cur
	return nil
}

// replaceManyLocked swaps the whole hasMany collection: members absent from
// the new set are detached, every member of the new set is attached. All
// records are type-checked before anything mutates, so a failed replacement
// leaves the collection unmodified.
func (r *Record) replaceManyLocked(a *schema.Association, recs []*Record, sync bool) error {
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if err := r.checkAssocType(a, rec); err != nil {
			return err
		}
	}

	next := make([]*Record, 0, len(recs))
	for _, rec := range recs {
		if rec == nil || containsRecord(next, rec) {
			continue
		}
		next = append(next, rec)
	}

	prev, _ := r.assocs[a.Name].([]*Record)
	r.assocs[a.Name] = next

	if sync && a.Inverse != "" {
		for _, rec := range prev {
			if containsRecord(next, rec) {
				continue
			}
			if err := rec.inverseRemoved(a.Inverse, r); err != nil {
				return err
			}
		}
		for _, rec := range next {
			if err := rec.inverseAdded(a.Inverse, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// inverseAdded is invoked on the target record when it was attached to the
// source record's association named by the inverse; the local slot updates
// without propagating back
func (r *Record) inverseAdded(name string, source *Record) error {
	a, ok := r.class.schema.Assocs[name]
	if !ok {
		return fmt.Errorf("%w: inverse %s on class %s", ErrUnknownField, name, r.class.Name())
	}
	if a.Kind == schema.HasOne {
		return r.setOneLocked(a, source, false)
	}
	return r.addManyLocked(a, []*Record{source}, false)
}

// inverseRemoved is the detach counterpart of inverseAdded
func (r *Record) inverseRemoved(name string, source *Record) error {
	a, ok := r.class.schema.Assocs[name]
	if !ok {
		return fmt.Errorf("%w: inverse %s on class %s", ErrUnknownField, name, r.class.Name())
	}
	if a.Kind == schema.HasOne {
		if cur, _ := r.assocs[a.Name].(*Record); cur != source {
			return nil
		}
		return r.setOneLocked(a, nil, false)
	}
	return r.removeManyLocked(a, []*Record{source}, false)
}

// detachAllLocked clears every association on the record, detaching inverses.
// Used when a record is deleted.
func (r *Record) detachAllLocked() error {
	for _, name := range r.class.schema.AssocNames() {
		a := r.class.schema.Assocs[name]
		var err error
		if a.Kind == schema.HasOne {
			err = r.setOneLocked(a, nil, true)
		} else {
			err = r.replaceManyLocked(a, nil, true)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkAssocType verifies the record is an instance of the association's
// resolved target class (subclasses pass)
func (r *Record) checkAssocType(a *schema.Association, rec *Record) error {
	target, err := r.class.resolveTarget(a)
	if err != nil {
		return err
	}
	if !rec.class.isA(target) {
		return fmt.Errorf("%w: association %s on class %s expects %s, got %s",
			ErrTypeMismatch, a.Name, r.class.Name(), target.Name(), rec.class.Name())
	}
	return nil
}

func containsRecord(recs []*Record, rec *Record) bool {
	return indexOfRecord(recs, rec) >= 0
}

func indexOfRecord(recs []*Record, rec *Record) int {
	for i, cur := range recs {
		if cur == rec {
			return i
		}
	}
	return -1
}
