// pkg/core/box.go
package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis aligned bounding box.
type Box struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// NewBox returns a degenerate box containing only p.
func NewBox(p mgl64.Vec3) Box {
	return Box{Min: p, Max: p}
}

// Extend grows the box to contain p.
func (b *Box) Extend(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	b.Extend(o.Min)
	b.Extend(o.Max)
	return b
}

// Pad returns the box grown by d on every side.
func (b Box) Pad(d float64) Box {
	pad := mgl64.Vec3{d, d, d}
	return Box{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b Box) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}
