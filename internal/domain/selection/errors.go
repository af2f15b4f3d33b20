package selection

import "errors"

var (
	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("selection: invalid config")
	// ErrChannelMismatch is returned when a batch carries collections other
	// than the ones the selector's channel reads.
	ErrChannelMismatch = errors.New("selection: batch does not match channel")
)
