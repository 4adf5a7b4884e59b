package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tmdojo/viewer/pkg/core"
)

// State is the interpolated value of a trace at one query time.
//
// Continuous quantities are blended between the bracketing samples.
// Gear, pedals, wheel angle and wheel contact counts are instantaneous
// control or mechanical states and always come from the current sample.
type State struct {
	TimeMs float64
	Alpha  float64

	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	AimDirection mgl64.Vec3
	Up           mgl64.Vec3
	AimYaw       float64
	AimPitch     float64
	Speed        float64
	SteerInput   float64
	EngineRPM    float64
	DamperLength [core.WheelCount]float64

	Gear                int32
	GasPedal            bool
	Braking             bool
	WheelAngle          float64
	WheelsContactCount  int32
	WheelsSkiddingCount int32
}

// Alpha returns the clamped interpolation factor of t between prev and cur.
// It is 0 when prev is nil or the samples share a timestamp.
func Alpha(prev, cur *core.Sample, t float64) float64 {
	if prev == nil {
		return 0
	}
	span := float64(cur.TimeMs - prev.TimeMs)
	if span <= 0 {
		return 0
	}
	return clamp01((t - float64(prev.TimeMs)) / span)
}

// Interpolate blends prev and cur at time t. A nil prev yields cur's values.
// At t == prev.TimeMs the continuous fields equal prev exactly and at
// t == cur.TimeMs they equal cur exactly.
func Interpolate(prev, cur *core.Sample, t float64) State {
	a := Alpha(prev, cur, t)
	from := cur
	if prev != nil {
		from = prev
	}

	st := State{
		TimeMs: t,
		Alpha:  a,

		Position:     lerpVec(from.Position, cur.Position, a),
		Velocity:     lerpVec(from.Velocity, cur.Velocity, a),
		AimDirection: lerpVec(from.AimDirection, cur.AimDirection, a),
		Up:           lerpVec(from.Up, cur.Up, a),
		AimYaw:       Lerp(from.AimYaw, cur.AimYaw, a),
		AimPitch:     Lerp(from.AimPitch, cur.AimPitch, a),
		Speed:        Lerp(from.Speed, cur.Speed, a),
		SteerInput:   Lerp(from.SteerInput, cur.SteerInput, a),
		EngineRPM:    Lerp(from.EngineRPM, cur.EngineRPM, a),

		Gear:                cur.Gear,
		GasPedal:            cur.GasPedal,
		Braking:             cur.Braking,
		WheelAngle:          cur.WheelAngle,
		WheelsContactCount:  cur.WheelsContactCount,
		WheelsSkiddingCount: cur.WheelsSkiddingCount,
	}
	for i := range st.DamperLength {
		st.DamperLength[i] = Lerp(from.DamperLength[i], cur.DamperLength[i], a)
	}
	return st
}

// At looks up the bracket for t and interpolates. Past the last sample the
// state is frozen at the last sample instead of extrapolated.
func At(samples []core.Sample, t float64) (State, error) {
	prev, cur, err := FindBracket(samples, int32(math.Floor(t)))
	if err != nil {
		return State{}, err
	}
	last := &samples[len(samples)-1]
	if t >= float64(last.TimeMs) {
		t = float64(cur.TimeMs)
	}
	return Interpolate(prev, cur, t), nil
}

// Lerp blends a and b. The (1-a)/a weighting keeps both endpoints exact.
func Lerp(a, b, alpha float64) float64 {
	return a*(1-alpha) + b*alpha
}

func lerpVec(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return mgl64.Vec3{
		Lerp(a[0], b[0], alpha),
		Lerp(a[1], b[1], alpha),
		Lerp(a[2], b[2], alpha),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
