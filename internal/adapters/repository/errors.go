package repository

import "errors"

// Sentinel kinds for cutflow store errors.
var (
	ErrNotFound     = errors.New("channel not found")
	ErrStepMismatch = errors.New("cut steps do not match recorded cutflow")
)
