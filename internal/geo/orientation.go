package geo

import (
	"github.com/go-gl/mathgl/mgl64"
)

// degenerateEpsilon is the squared length under which a vector or cross
// product is treated as zero.
const degenerateEpsilon = 1e-12

var (
	// WorldUp is the scene's vertical axis.
	WorldUp = mgl64.Vec3{0, 1, 0}

	// WorldForward is used when a sample carries no heading.
	WorldForward = mgl64.Vec3{0, 0, 1}

	// fallbackUp replaces WorldUp when the heading is vertical.
	fallbackUp = mgl64.Vec3{1, 0, 0}
)

// Basis returns an orthonormal right/up/forward frame. forward is
// normalised; up is made orthogonal to it. A zero forward becomes
// WorldForward and an up that is zero or parallel to forward becomes
// WorldUp, or the X axis when forward itself is vertical.
func Basis(forward, up mgl64.Vec3) (right, trueUp, fwd mgl64.Vec3) {
	if forward.Dot(forward) < degenerateEpsilon {
		fwd = WorldForward
	} else {
		fwd = forward.Normalize()
	}

	right = up.Cross(fwd)
	if right.Dot(right) < degenerateEpsilon {
		right = WorldUp.Cross(fwd)
		if right.Dot(right) < degenerateEpsilon {
			right = fallbackUp.Cross(fwd)
		}
	}
	right = right.Normalize()
	trueUp = fwd.Cross(right)
	return right, trueUp, fwd
}

// Orientation returns the rotation taking the local axes (X right, Y up,
// Z forward) onto the frame built from forward and up.
func Orientation(forward, up mgl64.Vec3) mgl64.Quat {
	right, trueUp, fwd := Basis(forward, up)
	m := mgl64.Mat3FromCols(right, trueUp, fwd)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// LerpVec moves from toward to by factor.
func LerpVec(from, to mgl64.Vec3, factor float64) mgl64.Vec3 {
	return from.Add(to.Sub(from).Mul(factor))
}
