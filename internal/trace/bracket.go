package trace

import (
	"sort"

	"github.com/tmdojo/viewer/pkg/core"
)

// FindBracket returns the samples surrounding t: cur is the first sample
// strictly after t and prev the one before it. Queries before the first sample
// return (nil, first); queries at or past the last sample return the last two
// samples. A single-sample trace always yields (nil, only). Samples must be
// strictly ordered by time.
func FindBracket(samples []core.Sample, t int32) (prev, cur *core.Sample, err error) {
	n := len(samples)
	if n == 0 {
		return nil, nil, &PreconditionError{Op: "find bracket", Index: -1, Err: ErrEmptyTrace}
	}

	i := sort.Search(n, func(i int) bool {
		return samples[i].TimeMs > t
	})

	switch {
	case i == 0:
		return nil, &samples[0], nil
	case n == 1:
		return nil, &samples[0], nil
	case i == n:
		return &samples[n-2], &samples[n-1], nil
	default:
		return &samples[i-1], &samples[i], nil
	}
}
