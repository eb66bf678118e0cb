package repositories

import "errors"

// ErrNotFound is returned when a query matches no record. Implementations
// wrap it with context; callers match it with errors.Is.
var ErrNotFound = errors.New("record not found")
