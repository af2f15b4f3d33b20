package columnar

import "errors"

// Sentinel errors for columnar input and output.
var (
	ErrMissingColumn     = errors.New("missing column")
	ErrUnsupportedType   = errors.New("unsupported column type")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
