package ragged

import "errors"

// Sentinel kinds for ragged array errors.
var (
	ErrInvalidOffsets = errors.New("invalid offsets")
	ErrLengthMismatch = errors.New("event count mismatch")
)
