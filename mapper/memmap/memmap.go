// Package memmap provides an in-memory mapper backend. It keeps raw payloads
// in insertion order and implements the full mapper contract, which makes it
// the reference backend for demos and tests.
package memmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cookieranger/transis/mapper"
)

// Store is an in-memory mapper backend
type Store struct {
	mu      sync.RWMutex
	records map[string]mapper.Payload
	order   []string
}

// New creates an empty store
func New() *Store {
	return &Store{records: make(map[string]mapper.Payload)}
}

// Seed inserts payloads directly, preserving order. Intended for test and
// demo fixtures; payloads without an id are rejected.
func (s *Store) Seed(payloads ...mapper.Payload) error {
	for _, payload := range payloads {
		if _, err := s.Create(context.Background(), payload); err != nil {
			return err
		}
	}
	return nil
}

// Query returns all stored payloads in insertion order. A "where" option
// holding a field map filters by exact match.
func (s *Store) Query(ctx context.Context, opts mapper.Options) ([]mapper.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, _ := opts["where"].(map[string]interface{})
	out := make([]mapper.Payload, 0, len(s.order))
	for _, key := range s.order {
		payload := s.records[key]
		if !matches(payload, where) {
			continue
		}
		out = append(out, clone(payload))
	}
	return out, nil
}

// Get returns the payload stored under the id
func (s *Store) Get(ctx context.Context, id interface{}, opts mapper.Options) (mapper.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.records[idKey(id)]
	if !ok {
		return nil, fmt.Errorf("%w: id %v", mapper.ErrNotFound, id)
	}
	return clone(payload), nil
}

// Create stores a new payload, assigning a fresh uuid when it has no id
func (s *Store) Create(ctx context.Context, data mapper.Payload) (mapper.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(data)
	if stored["id"] == nil {
		stored["id"] = uuid.NewString()
	}
	key := idKey(stored["id"])
	if _, exists := s.records[key]; !exists {
		s.order = append(s.order, key)
	}
	s.records[key] = stored
	return clone(stored), nil
}

// Update merges the given fields into the stored payload
func (s *Store) Update(ctx context.Context, id interface{}, data mapper.Payload) (mapper.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := idKey(id)
	stored, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: id %v", mapper.ErrNotFound, id)
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		stored[k] = v
	}
	return clone(stored), nil
}

// Delete removes the payload stored under the id
func (s *Store) Delete(ctx context.Context, id interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := idKey(id)
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: id %v", mapper.ErrNotFound, id)
	}
	delete(s.records, key)
	for i, cur := range s.order {
		if cur == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored payloads
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// idKey canonicalizes ids so numeric and string forms of the same id share
// one slot
func idKey(id interface{}) string {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", id)
}

func matches(payload mapper.Payload, where map[string]interface{}) bool {
	for field, want := range where {
		if payload[field] != want {
			return false
		}
	}
	return true
}

func clone(payload mapper.Payload) mapper.Payload {
	out := make(mapper.Payload, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
