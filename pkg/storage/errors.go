package storage

import (
	"errors"
	"fmt"
)

var (
	// Read errors

	// ErrNotFound if the referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExceededInFilterLimit if a membership filter holds more values than the backend accepts.
	ErrExceededInFilterLimit = errors.New("number of values exceeded the membership filter limit")
	// ErrInvalidQuery if a query is structurally invalid.
	ErrInvalidQuery = errors.New("invalid query")

	// Write errors

	// ErrInvalidFieldValue if a field value has a type the store cannot hold.
	ErrInvalidFieldValue = errors.New("invalid field value")

	// Shared errors

	// ErrPermissionDenied if the store's access policy rejected the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTransient if the store could not be reached or was temporarily unavailable.
	ErrTransient = errors.New("datastore temporarily unavailable")
	ErrCancelled   = errors.New("request has been cancelled")
	ErrInvalidPath = errors.New("invalid path")
)

func ExceededInFilterLimitError(n, limit int) error {
	return fmt.Errorf("%w: %d values, limit is %d", ErrExceededInFilterLimit, n, limit)
}

func InvalidQueryError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, reason)
}

func InvalidPathError(path, reason string) error {
	return fmt.Errorf("%w '%s': %s", ErrInvalidPath, path, reason)
}

func InvalidFieldValueError(field string, value any) error {
	return fmt.Errorf("%w: field '%s' has unsupported type %T", ErrInvalidFieldValue, field, value)
}

// IsAccessFailure reports whether err is one of the failures that may strike any
// read or write regardless of its content: a denied permission, a transient
// unavailability or a cancellation.
func IsAccessFailure(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrCancelled)
}
