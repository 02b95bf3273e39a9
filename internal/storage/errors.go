package storage

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers test for
// it with errors.Is to map missing entities to 404 responses.
var ErrNotFound = errors.New("storage: not found")
