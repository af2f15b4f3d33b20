package pairing

import "errors"

var (
	// ErrMisaligned is returned when inputs do not share the same event
	// structure.
	ErrMisaligned = errors.New("pairing: misaligned inputs")
	// ErrIndexOutOfRange is returned when an eligible index points past the
	// objects of its event.
	ErrIndexOutOfRange = errors.New("pairing: index out of range")
)
