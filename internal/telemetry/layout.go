package telemetry

import (
	"fmt"
	"strings"
)

// Layout selects the on-disk record schema of a telemetry buffer.
//
// Legacy records are 76 bytes:
//
//	int32 raceTime | vec3 position | float aimYaw | float aimPitch |
//	vec3 aimDirection | vec3 velocity | float speed | float steer |
//	int32 gas/brake bits | float rpm | int32 gear |
//	int32 wheelsContact | int32 wheelsSkidding
//
// Extended records append 32 bytes:
//
//	vec3 up | float wheelAngle | float damper[FL, FR, RR, RL]
//
// All values are little-endian; floats are IEEE-754 binary32.
type Layout int

const (
	LayoutLegacy Layout = iota
	LayoutExtended
)

const (
	legacyStride   = 76
	extendedStride = legacyStride + 12 + 4 + 16
)

// Stride returns the size in bytes of one record.
func (l Layout) Stride() int {
	if l == LayoutExtended {
		return extendedStride
	}
	return legacyStride
}

func (l Layout) String() string {
	switch l {
	case LayoutLegacy:
		return "legacy"
	case LayoutExtended:
		return "extended"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout converts a config value into a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy":
		return LayoutLegacy, nil
	case "extended":
		return LayoutExtended, nil
	default:
		return LayoutLegacy, fmt.Errorf("unknown telemetry layout: %q", s)
	}
}
