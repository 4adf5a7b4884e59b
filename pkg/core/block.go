// pkg/core/block.go
package core

import "github.com/go-gl/mathgl/mgl64"

// MapBlock is one positioned block of decoded map geometry. The map file
// format itself is handled elsewhere; only placement is needed here.
type MapBlock struct {
	Name     string     `json:"name"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
}
