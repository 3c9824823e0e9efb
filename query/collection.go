// Package query provides an ordered, busy-tracking result collection bound
// to one model class and its external mapper. A collection runs at most one
// mapper query at a time; calls made while busy are coalesced down to the
// single most recent one, which is dispatched after the in-flight request
// settles.
package query

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cookieranger/transis/mapper"
	"github.com/cookieranger/transis/model"
)

// Collection is a stateful ordered result set for one model class.
//
// State machine: idle(not busy) <-> busy(one in-flight request, at most one
// queued request). On fulfillment the contents are replaced wholesale with
// the loaded records and any prior error is cleared; on rejection the error
// is stored and surfaced through Err and Wait.
type Collection struct {
	mu    sync.Mutex
	class *model.Class
	log   *zap.Logger

	records []*model.Record
	busy    bool
	err     error
	queried bool

	// pending holds the latest call captured while busy; intermediate calls
	// are dropped, only the most recent survives
	pending *pendingQuery

	// done is closed when the collection drains back to idle; recreated on
	// each idle->busy transition
	done chan struct{}
}

type pendingQuery struct {
	ctx  context.Context
	opts mapper.Options
}

// New creates an idle, empty collection for the class
func New(class *model.Class) *Collection {
	return &Collection{
		class: class,
		log:   class.Space().Logger(),
	}
}

// ModelClass returns the class the collection queries
func (c *Collection) ModelClass() *model.Class {
	return c.class
}

// Query issues the mapper query, or queues it if one is already in flight.
// The synchronous error return covers mapper contract violations only
// (missing mapper or Query capability); query rejections are delivered
// through Err and Wait.
func (c *Collection) Query(ctx context.Context, opts mapper.Options) error {
	if _, err := c.querier(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queried = true
	if c.busy {
		// Coalesce: only the most recent queued call survives
		c.pending = &pendingQuery{ctx: ctx, opts: opts}
		return nil
	}

	c.busy = true
	c.done = make(chan struct{})
	go c.run(ctx, opts)
	return nil
}

// run executes one mapper query and settles the collection. It owns the
// busy flag: it either dispatches the queued call or drains to idle. The
// querier is resolved per dispatch, so rebinding the class mapper while a
// query is in flight takes effect for the queued call.
func (c *Collection) run(ctx context.Context, opts mapper.Options) {
	c.log.Debug("query dispatched", zap.String("class", c.class.Name()))
	var payloads []mapper.Payload
	querier, err := c.querier()
	if err == nil {
		payloads, err = querier.Query(ctx, opts)
	}

	c.mu.Lock()
	if err != nil {
		c.err = err
		c.log.Debug("query rejected", zap.String("class", c.class.Name()), zap.Error(err))
	} else {
		recs, loadErr := c.class.LoadAll(payloads)
		if loadErr != nil {
			c.err = loadErr
		} else {
			c.records = recs
			c.err = nil
		}
		c.log.Debug("query settled",
			zap.String("class", c.class.Name()),
			zap.Int("records", len(c.records)))
	}

	if next := c.pending; next != nil {
		c.pending = nil
		go c.run(next.ctx, next.opts)
		c.mu.Unlock()
		return
	}

	c.busy = false
	close(c.done)
	c.mu.Unlock()
}

// Wait blocks until the collection drains to idle (the in-flight request
// plus any queued one) and returns the final error. If no query has ever
// been issued it returns immediately with nil.
func (c *Collection) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.queried || !c.busy {
			err := c.err
			c.mu.Unlock()
			return err
		}
		done := c.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Records returns an ordered copy of the collection contents
func (c *Collection) Records() []*model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*model.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records in the collection
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// At returns the record at position i, or nil when out of range
func (c *Collection) At(i int) *model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.records) {
		return nil
	}
	return c.records[i]
}

// IsBusy returns true while a query is in flight
func (c *Collection) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Err returns the rejection reason of the most recently settled query, or
// nil. A fulfilled query clears it.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Collection) querier() (mapper.Querier, error) {
	m := c.class.Mapper()
	if m == nil {
		return nil, fmt.Errorf("%w: %s", mapper.ErrNoMapper, c.class.Name())
	}
	querier, ok := m.(mapper.Querier)
	if !ok {
		return nil, fmt.Errorf("%w: mapper for %s has no Query", mapper.ErrNotSupported, c.class.Name())
	}
	return querier, nil
}
