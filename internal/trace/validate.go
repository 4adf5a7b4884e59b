// Package trace implements sample lookup and interpolation over a decoded
// replay.
package trace

import (
	"errors"
	"fmt"

	"github.com/tmdojo/viewer/pkg/core"
)

var (
	// ErrEmptyTrace is returned when an operation needs at least one sample.
	ErrEmptyTrace = errors.New("trace has no samples")

	// ErrNonMonotonic is returned when sample times are not strictly
	// increasing.
	ErrNonMonotonic = errors.New("sample times are not strictly increasing")
)

// PreconditionError marks a programmer error: the caller handed over data
// that violates a documented invariant. It is never recovered silently.
type PreconditionError struct {
	Op    string
	Index int
	Err   error
}

func (e *PreconditionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: sample %d: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Validate checks that samples is non-empty and strictly ordered by time.
func Validate(samples []core.Sample) error {
	if len(samples) == 0 {
		return &PreconditionError{Op: "validate", Index: -1, Err: ErrEmptyTrace}
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].TimeMs <= samples[i-1].TimeMs {
			return &PreconditionError{Op: "validate", Index: i, Err: ErrNonMonotonic}
		}
	}
	return nil
}
