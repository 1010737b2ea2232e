package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	// ErrInternal is the generic message surfaced for persistence failures;
	// the underlying cause goes to the log, not the wire.
	ErrInternal = errors.New("internal error")
)
