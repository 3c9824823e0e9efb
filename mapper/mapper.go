// Package mapper defines the contract between transis model classes and the
// external data source that backs them. A mapper is any object implementing
// some subset of the capability interfaces below; a missing capability is a
// caller-visible failure at call time, not at registration time.
package mapper

import "context"

// Payload is a raw record as produced by a data source: attribute and
// association names mapped to JSON-compatible values, always including a
// non-null id.
type Payload = map[string]interface{}

// Options carries query parameters through to the data source unchanged
type Options = map[string]interface{}

// Querier fetches a set of raw records matching the given options
type Querier interface {
	Query(ctx context.Context, opts Options) ([]Payload, error)
}

// Getter fetches a single raw record by id.
// Implementations return ErrNotFound when no record exists.
type Getter interface {
	Get(ctx context.Context, id interface{}, opts Options) (Payload, error)
}

// Creator persists a new record. The returned payload, when non-nil, is the
// authoritative server-side state (including a server-assigned id) and is
// loaded back into the model.
type Creator interface {
	Create(ctx context.Context, data Payload) (Payload, error)
}

// Updater persists changes to an existing record
type Updater interface {
	Update(ctx context.Context, id interface{}, data Payload) (Payload, error)
}

// Deleter removes a record
type Deleter interface {
	Delete(ctx context.Context, id interface{}) error
}
