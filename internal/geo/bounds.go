package geo

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tmdojo/viewer/pkg/core"
)

// BlockSize is the edge length of one map block in world units.
const BlockSize = 32.0

// DefaultGridPosition is the orbit target used before any replay is loaded.
var DefaultGridPosition = mgl64.Vec3{24 * BlockSize, 9, 24 * BlockSize}

// SceneBounds returns the union of every trace bounding box and every map
// block, padded by blockPadding blocks. ok is false when there is nothing to
// bound.
func SceneBounds(traces []*core.Trace, blocks []core.MapBlock, blockPadding int) (box core.Box, ok bool) {
	add := func(b core.Box) {
		if !ok {
			box, ok = b, true
			return
		}
		box = box.Union(b)
	}

	for _, tr := range traces {
		if tr == nil || tr.Bounds == nil {
			continue
		}
		add(*tr.Bounds)
	}
	for _, b := range blocks {
		add(core.Box{
			Min: b.Position,
			Max: b.Position.Add(mgl64.Vec3{BlockSize, BlockSize, BlockSize}),
		})
	}

	if !ok {
		return core.Box{}, false
	}
	return box.Pad(float64(blockPadding) * BlockSize), true
}

// InitialOrbitTarget is where the camera looks before playback starts: the
// first sample of the first loaded trace while the clock is at zero,
// DefaultGridPosition otherwise.
func InitialOrbitTarget(traces []*core.Trace, raceTimeMs float64) mgl64.Vec3 {
	if raceTimeMs == 0 && len(traces) > 0 && traces[0].Len() > 0 {
		return traces[0].First().Position
	}
	return DefaultGridPosition
}
