package types

import "errors"

// ErrInvalidIndex is returned for eligible-object indices past the end of a leg.
var ErrInvalidIndex = errors.New("invalid object index")

// ErrInvalidKey is returned for incomplete event keys or requests that mix
// keyed and unkeyed events.
var ErrInvalidKey = errors.New("invalid event key")
