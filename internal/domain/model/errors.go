package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrMissingField   = errors.New("missing field")
	ErrShapeMismatch  = errors.New("field shape mismatch")
	ErrUnknownChannel = errors.New("unknown channel")
)
