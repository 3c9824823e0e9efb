package model

import "errors"

// Common model error types
var (
	// ErrDuplicateClass is returned when a class name is registered twice in a Space
	ErrDuplicateClass = errors.New("class already registered")

	// ErrUnknownClass is returned when an association target cannot be resolved
	// through the class registry
	ErrUnknownClass = errors.New("unknown class")

	// ErrMissingID is returned when load is called without a non-null id
	ErrMissingID = errors.New("missing id")

	// ErrInvalidID is returned when an id is not a number or string
	ErrInvalidID = errors.New("invalid id value")

	// ErrIDImmutable is returned on an attempt to overwrite an already-assigned id
	ErrIDImmutable = errors.New("id is already set")

	// ErrTypeMismatch is returned when the wrong model type is assigned to an association
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownField is returned when a name does not match any declared
	// attribute or association on the class
	ErrUnknownField = errors.New("unknown field")

	// ErrDeleted is returned when a deleted record is saved
	ErrDeleted = errors.New("record is deleted")
)

// IsTypeMismatch returns true if the error is ErrTypeMismatch
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsMissingID returns true if the error is ErrMissingID
func IsMissingID(err error) bool {
	return errors.Is(err, ErrMissingID)
}

// IsIDImmutable returns true if the error is ErrIDImmutable
func IsIDImmutable(err error) bool {
	return errors.Is(err, ErrIDImmutable)
}
