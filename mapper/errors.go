package mapper

import "errors"

// Common mapper error types
var (
	// ErrNotFound is returned when a record does not exist in the data source
	ErrNotFound = errors.New("record not found")

	// ErrNoMapper is returned when an operation needs a mapper but the class has none
	ErrNoMapper = errors.New("class has no mapper")

	// ErrNotSupported is returned when the class mapper lacks the required capability
	ErrNotSupported = errors.New("mapper does not support operation")
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsContractError returns true if the error is a mapper contract violation
// (missing mapper or missing capability)
func IsContractError(err error) bool {
	return errors.Is(err, ErrNoMapper) || errors.Is(err, ErrNotSupported)
}
