package frame

import (
	"fmt"
	"strings"
)

// CameraMode selects how the followed trace drives the camera.
type CameraMode int

const (
	// CameraOrbit only moves the orbit target; the user steers the camera.
	CameraOrbit CameraMode = iota
	// CameraFollow places the camera behind the followed car.
	CameraFollow
)

func (m CameraMode) String() string {
	if m == CameraFollow {
		return "follow"
	}
	return "orbit"
}

// ParseCameraMode converts a config value into a CameraMode.
func ParseCameraMode(s string) (CameraMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "orbit":
		return CameraOrbit, nil
	case "follow":
		return CameraFollow, nil
	default:
		return CameraOrbit, fmt.Errorf("unknown camera mode: %q", s)
	}
}

// Params are the tuning constants of the per-frame update. Wheel heights
// are in car model units; everything else is in world units.
type Params struct {
	FrontWheelRestY float64
	RearWheelRestY  float64
	DamperScale     float64

	NormalScale    float64
	HoverScale     float64
	ScaleSmoothing float64

	OrbitSmoothing  float64
	CameraSmoothing float64
	CameraMode      CameraMode

	// The follow camera sits at -velocity/VelocityLeadDivisor, then moves
	// back by CameraBackBase + speed/CameraBackSpeedDivisor and up by
	// CameraUpBase + speed/CameraUpSpeedDivisor in the car's frame.
	VelocityLeadDivisor    float64
	CameraBackBase         float64
	CameraBackSpeedDivisor float64
	CameraUpBase           float64
	CameraUpSpeedDivisor   float64
}

// DefaultParams returns the constants matching the stock car model.
func DefaultParams() Params {
	return Params{
		FrontWheelRestY: 35.24349594116211,
		RearWheelRestY:  35.232017517089844,
		DamperScale:     100,

		NormalScale:    0.01,
		HoverScale:     0.02,
		ScaleSmoothing: 0.2,

		OrbitSmoothing:  0.2,
		CameraSmoothing: 0.3,
		CameraMode:      CameraOrbit,

		VelocityLeadDivisor:    5,
		CameraBackBase:         7,
		CameraBackSpeedDivisor: 30,
		CameraUpBase:           2,
		CameraUpSpeedDivisor:   200,
	}
}
