package simulate

import "errors"

// ErrInvalidConfig is returned for generator settings out of range.
var ErrInvalidConfig = errors.New("invalid simulation config")
