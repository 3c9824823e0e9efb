package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cookieranger/transis/mapper"
)

// Fetch resolves the local record for the id and refreshes it from the data
// source through the class mapper's Get. The record is busy while the call
// is in flight. A data-source miss leaves the record in state notfound and
// returns the mapper error.
func (c *Class) Fetch(ctx context.Context, id interface{}, opts mapper.Options) (*Record, error) {
	getter, err := getterFor(c)
	if err != nil {
		return nil, err
	}

	c.space.mu.Lock()
	rec, err := c.localLocked(id)
	if err != nil {
		c.space.mu.Unlock()
		return nil, err
	}
	rec.busy = true
	recID := rec.id
	c.space.mu.Unlock()

	c.space.log.Debug("fetching record", zap.String("class", c.Name()), zap.Any("id", recID))
	payload, mapErr := getter.Get(ctx, recID, opts)

	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	rec.busy = false

	if mapErr != nil {
		if mapper.IsNotFound(mapErr) {
			rec.state = StateNotFound
		}
		return rec, mapErr
	}
	if _, err := c.loadLocked(payload); err != nil {
		return rec, err
	}
	return rec, nil
}

// Save persists the record through the class mapper: Create for records in
// state new, Update otherwise. A non-nil response payload is loaded back as
// the authoritative state, which is how server-assigned ids reach the
// identity map. Deleted records cannot be saved.
func (r *Record) Save(ctx context.Context) error {
	c := r.class

	c.space.mu.Lock()
	if r.state == StateDeleted {
		c.space.mu.Unlock()
		return fmt.Errorf("%w: cannot save %s", ErrDeleted, c.Name())
	}
	creating := r.state == StateNew
	recID := r.id
	c.space.mu.Unlock()

	data := r.Serialize()

	if creating {
		creator, err := creatorFor(c)
		if err != nil {
			return err
		}

		r.setBusy(true)
		c.space.log.Debug("creating record", zap.String("class", c.Name()))
		resp, mapErr := creator.Create(ctx, data)
		r.setBusy(false)
		if mapErr != nil {
			return mapErr
		}

		c.space.mu.Lock()
		defer c.space.mu.Unlock()
		if resp != nil {
			// Adopt the server-assigned id before loading the response, so
			// the load resolves to this instance through the identity map.
			if r.id == nil {
				if respID, ok := resp["id"]; ok && respID != nil {
					if err := r.setIDLocked(respID); err != nil {
						return err
					}
				}
			}
			if _, err := c.loadLocked(resp); err != nil {
				return err
			}
			return nil
		}
		if r.id == nil {
			return fmt.Errorf("%w: create returned no payload and record has no id", mapper.ErrNotSupported)
		}
		r.state = StateLoaded
		return nil
	}

	updater, err := updaterFor(c)
	if err != nil {
		return err
	}

	r.setBusy(true)
	c.space.log.Debug("updating record", zap.String("class", c.Name()), zap.Any("id", recID))
	resp, mapErr := updater.Update(ctx, recID, data)
	r.setBusy(false)
	if mapErr != nil {
		return mapErr
	}

	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	if resp != nil {
		if _, err := c.loadLocked(resp); err != nil {
			return err
		}
		return nil
	}
	r.state = StateLoaded
	return nil
}

// Delete removes the record from the data source and detaches it from every
// association it participates in, leaving it in state deleted. Records in
// state new are deleted locally without a mapper call.
func (r *Record) Delete(ctx context.Context) error {
	c := r.class

	c.space.mu.Lock()
	if r.state == StateDeleted {
		c.space.mu.Unlock()
		return nil
	}
	local := r.state == StateNew
	recID := r.id
	c.space.mu.Unlock()

	if !local {
		deleter, err := deleterFor(c)
		if err != nil {
			return err
		}

		r.setBusy(true)
		c.space.log.Debug("deleting record", zap.String("class", c.Name()), zap.Any("id", recID))
		mapErr := deleter.Delete(ctx, recID)
		r.setBusy(false)
		if mapErr != nil {
			return mapErr
		}
	}

	c.space.mu.Lock()
	defer c.space.mu.Unlock()
	if err := r.detachAllLocked(); err != nil {
		return err
	}
	r.state = StateDeleted
	return nil
}

func (r *Record) setBusy(busy bool) {
	r.class.space.mu.Lock()
	defer r.class.space.mu.Unlock()
	r.busy = busy
}

func getterFor(c *Class) (mapper.Getter, error) {
	m := c.Mapper()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", mapper.ErrNoMapper, c.Name())
	}
	getter, ok := m.(mapper.Getter)
	if !ok {
		return nil, fmt.Errorf("%w: mapper for %s has no Get", mapper.ErrNotSupported, c.Name())
	}
	return getter, nil
}

func creatorFor(c *Class) (mapper.Creator, error) {
	m := c.Mapper()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", mapper.ErrNoMapper, c.Name())
	}
	creator, ok := m.(mapper.Creator)
	if !ok {
		return nil, fmt.Errorf("%w: mapper for %s has no Create", mapper.ErrNotSupported, c.Name())
	}
	return creator, nil
}

func updaterFor(c *Class) (mapper.Updater, error) {
	m := c.Mapper()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", mapper.ErrNoMapper, c.Name())
	}
	updater, ok := m.(mapper.Updater)
	if !ok {
		return nil, fmt.Errorf("%w: mapper for %s has no Update", mapper.ErrNotSupported, c.Name())
	}
	return updater, nil
}

func deleterFor(c *Class) (mapper.Deleter, error) {
	m := c.Mapper()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", mapper.ErrNoMapper, c.Name())
	}
	deleter, ok := m.(mapper.Deleter)
	if !ok {
		return nil, fmt.Errorf("%w: mapper for %s has no Delete", mapper.ErrNotSupported, c.Name())
	}
	return deleter, nil
}
