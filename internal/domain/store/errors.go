package store

import "errors"

// Sentinel kinds for store errors. Callers use errors.Is to translate these
// into their own taxonomy (e.g. HTTP 404).
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("conflicting record")
)
