package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedBuffer is returned in strict mode when the buffer does not
	// end on a record boundary.
	ErrTruncatedBuffer = errors.New("telemetry buffer ends inside a record")

	// ErrNoSamples is returned when at least one sample is required but the
	// buffer yields none.
	ErrNoSamples = errors.New("telemetry buffer contains no samples")
)

// DecodeError reports a buffer the decoder refused. The replay it came from
// must not be added to the active set.
type DecodeError struct {
	Offset int
	Length int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode telemetry at offset %d of %d: %v", e.Offset, e.Length, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
