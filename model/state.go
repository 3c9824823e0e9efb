package model

// SourceState describes the provenance of a record's data
type SourceState int

const (
	// StateNew is a record created locally and never persisted
	StateNew SourceState = iota
	// StateEmpty is a placeholder carrying only its id
	StateEmpty
	// StateLoaded is a record whose attributes came from the data source
	StateLoaded
	// StateDeleted is a record removed from the data source
	StateDeleted
	// StateNotFound is a record the data source reported missing
	StateNotFound
)

// String returns the string representation of the source state
func (s SourceState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateDeleted:
		return "deleted"
	case StateNotFound:
		return "notfound"
	default:
		return "unknown"
	}
}
