package playback

import "errors"

var (
	// ErrEmptyTrace is returned when a trace without samples is loaded.
	ErrEmptyTrace = errors.New("trace has no samples")
	// ErrDuplicateTrace is returned when a trace id is already loaded.
	ErrDuplicateTrace = errors.New("trace already loaded")
	// ErrUnknownTrace is returned when a command names a trace that is not
	// loaded.
	ErrUnknownTrace = errors.New("trace not loaded")
	// ErrStaleReference is returned when the clock still refers to a trace
	// that has since been unloaded. The reference is cleared.
	ErrStaleReference = errors.New("stale trace reference")
)
