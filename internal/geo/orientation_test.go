package geo

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func assertVecNear(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d of %v", i, got)
	}
}

func assertOrthonormal(t *testing.T, right, up, fwd mgl64.Vec3) {
	t.Helper()
	assert.InDelta(t, 1, right.Len(), 1e-9)
	assert.InDelta(t, 1, up.Len(), 1e-9)
	assert.InDelta(t, 1, fwd.Len(), 1e-9)
	assert.InDelta(t, 0, right.Dot(up), 1e-9)
	assert.InDelta(t, 0, right.Dot(fwd), 1e-9)
	assert.InDelta(t, 0, up.Dot(fwd), 1e-9)
}

func TestOrientation_IdentityFrame(t *testing.T) {
	q := Orientation(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0})
	assert.True(t, q.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-9), "got %v", q)
}

func TestOrientation_RotatesLocalAxes(t *testing.T) {
	fwd := mgl64.Vec3{1, 0, 0}
	up := mgl64.Vec3{0, 1, 0}
	q := Orientation(fwd, up)

	assertVecNear(t, fwd, q.Rotate(mgl64.Vec3{0, 0, 1}))
	assertVecNear(t, up, q.Rotate(mgl64.Vec3{0, 1, 0}))
}

func TestBasis_OrthonormalisesUp(t *testing.T) {
	right, up, fwd := Basis(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 1, 1})
	assertOrthonormal(t, right, up, fwd)
	assertVecNear(t, mgl64.Vec3{0, 0, 1}, fwd)
	assertVecNear(t, mgl64.Vec3{0, 1, 0}, up)
}

func TestBasis_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name    string
		forward mgl64.Vec3
		up      mgl64.Vec3
	}{
		{"up parallel to forward", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 2}},
		{"zero up", mgl64.Vec3{1, 0, 1}, mgl64.Vec3{}},
		{"vertical forward with world up", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0}},
		{"zero forward", mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			right, up, fwd := Basis(tt.forward, tt.up)
			assertOrthonormal(t, right, up, fwd)

			q := Orientation(tt.forward, tt.up)
			assert.InDelta(t, 1, q.Len(), 1e-9)
			assert.False(t, math.IsNaN(q.W))
		})
	}
}

func TestLerpVec(t *testing.T) {
	got := LerpVec(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, -10, 4}, 0.2)
	assertVecNear(t, mgl64.Vec3{2, -2, 0.8}, got)
}
