package schema

import "errors"

// Common schema error types
var (
	// ErrDuplicateType is returned when an attribute type name is registered twice
	ErrDuplicateType = errors.New("attribute type already registered")

	// ErrUnknownType is returned when an attribute references an unregistered type
	ErrUnknownType = errors.New("unknown attribute type")

	// ErrTypeMismatch is returned when a value cannot be coerced to an attribute type
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDuplicateField is returned when an attribute or association name is declared twice on the same class
	ErrDuplicateField = errors.New("field already declared")
)

// IsTypeMismatch returns true if the error is ErrTypeMismatch
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsUnknownType returns true if the error is ErrUnknownType
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}
