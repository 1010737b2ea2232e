package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrUnknownSheetKind = errors.New("unknown scoresheet kind")
	ErrPayloadMismatch  = errors.New("scoresheet payload mismatch")
)
