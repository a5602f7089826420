package repos

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a natural key is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned by conditional updates when the record
	// changed since it was read. Callers reload and retry.
	ErrVersionConflict = errors.New("version conflict")
)
