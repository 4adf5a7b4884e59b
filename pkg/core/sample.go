// pkg/core/sample.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Wheel indexes into Sample.DamperLength.
const (
	WheelFrontLeft = iota
	WheelFrontRight
	WheelRearRight
	WheelRearLeft
	WheelCount
)

// Sample is one fixed-size telemetry record captured at TimeMs.
// Offset is the byte offset of the record in its source buffer and is only
// kept for diagnostics.
type Sample struct {
	Offset int
	TimeMs int32

	Position     mgl64.Vec3
	AimYaw       float64
	AimPitch     float64
	AimDirection mgl64.Vec3
	Velocity     mgl64.Vec3
	Speed        float64
	SteerInput   float64

	GasPedal bool
	Braking  bool

	EngineRPM           float64
	Gear                int32
	WheelsContactCount  int32
	WheelsSkiddingCount int32

	// Extended layout only. Zero when decoded from a legacy capture.
	Up           mgl64.Vec3
	WheelAngle   float64
	DamperLength [WheelCount]float64
}

// PackInputs encodes the gas and brake flags into the packed input word:
// bit0 is gas, bit1 is brake.
func PackInputs(gas, brake bool) int32 {
	var v int32
	if gas {
		v |= 1
	}
	if brake {
		v |= 2
	}
	return v
}

// UnpackInputs is the inverse of PackInputs. Higher bits are ignored.
func UnpackInputs(v int32) (gas, brake bool) {
	return v&1 != 0, v&2 != 0
}
