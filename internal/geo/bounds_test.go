package geo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmdojo/viewer/pkg/core"
)

func traceWithPositions(positions ...mgl64.Vec3) *core.Trace {
	tr := &core.Trace{}
	for i, p := range positions {
		tr.Samples = append(tr.Samples, core.Sample{TimeMs: int32(i * 100), Position: p, Gear: 1})
		if tr.Bounds == nil {
			b := core.NewBox(p)
			tr.Bounds = &b
		} else {
			tr.Bounds.Extend(p)
		}
	}
	return tr
}

func TestSceneBounds_Empty(t *testing.T) {
	_, ok := SceneBounds(nil, nil, 2)
	assert.False(t, ok)

	_, ok = SceneBounds([]*core.Trace{{}}, nil, 2)
	assert.False(t, ok)
}

func TestSceneBounds_TracesAndBlocks(t *testing.T) {
	a := traceWithPositions(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{4, 1, 6})
	b := traceWithPositions(mgl64.Vec3{-10, 5, 0})
	blocks := []core.MapBlock{{Name: "Start", Position: mgl64.Vec3{64, 0, 64}}}

	box, ok := SceneBounds([]*core.Trace{a, b}, blocks, 0)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{-10, 0, 0}, box.Min)
	assert.Equal(t, mgl64.Vec3{96, 32, 96}, box.Max)

	padded, ok := SceneBounds([]*core.Trace{a, b}, blocks, 1)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{-42, -32, -32}, padded.Min)
	assert.Equal(t, mgl64.Vec3{128, 64, 128}, padded.Max)
}

func TestInitialOrbitTarget(t *testing.T) {
	tr := traceWithPositions(mgl64.Vec3{7, 8, 9}, mgl64.Vec3{1, 1, 1})

	assert.Equal(t, mgl64.Vec3{7, 8, 9}, InitialOrbitTarget([]*core.Trace{tr}, 0))
	assert.Equal(t, DefaultGridPosition, InitialOrbitTarget([]*core.Trace{tr}, 10))
	assert.Equal(t, DefaultGridPosition, InitialOrbitTarget(nil, 0))
}
