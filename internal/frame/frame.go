// Package frame computes the render state of one trace for one frame.
//
// Update is a pure step function: given a trace, the clock snapshot of the
// frame and the smoothed values carried over from the previous frame it
// returns the new render state and the smoothed values for the next frame.
// It never mutates its inputs, so traces can be updated in parallel over the
// same snapshot.
package frame

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tmdojo/viewer/internal/geo"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/internal/trace"
	"github.com/tmdojo/viewer/pkg/core"
)

// CameraState is the session camera: its position and the orbit target.
type CameraState struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
}

// Smoothed holds the exponentially smoothed values carried between frames.
// Scale is per trace. Camera is shared by the session; only the followed
// trace's result should be fed back.
type Smoothed struct {
	Scale  float64
	Camera CameraState
}

// Input is the driver input overlay of a trace.
type Input struct {
	Steer     float64 `json:"steer"`
	Gas       bool    `json:"gas"`
	Brake     bool    `json:"brake"`
	Gear      int32   `json:"gear"`
	EngineRPM float64 `json:"rpm"`
	Speed     float64 `json:"speed"`
	Contacts  int32   `json:"contacts"`
	Skidding  int32   `json:"skidding"`
}

// RenderState is everything a rendering layer needs to draw one trace.
type RenderState struct {
	TraceID      core.TraceID `json:"id"`
	Color        core.Color   `json:"color"`
	RaceTimeMs   float64      `json:"raceTimeMs"`
	SampleTimeMs float64      `json:"sampleTimeMs"`
	Ended        bool         `json:"ended"`

	Position    mgl64.Vec3 `json:"position"`
	Velocity    mgl64.Vec3 `json:"velocity"`
	Orientation mgl64.Quat `json:"orientation"`

	WheelOffsets [core.WheelCount]float64 `json:"wheelOffsets"`
	WheelAngle   float64                  `json:"wheelAngle"`

	Scale    float64 `json:"scale"`
	Followed bool    `json:"followed"`
	Hovered  bool    `json:"hovered"`

	Input Input `json:"input"`

	// Camera is set only for the followed trace.
	Camera *CameraState `json:"camera,omitempty"`
}

// Update computes the render state of tr at snap.RaceTimeMs.
func Update(tr *core.Trace, snap playback.Snapshot, prev Smoothed, p Params) (RenderState, Smoothed, error) {
	if tr == nil || tr.Len() == 0 {
		return RenderState{}, prev, playback.ErrEmptyTrace
	}

	st, err := trace.At(tr.Samples, snap.RaceTimeMs)
	if err != nil {
		return RenderState{}, prev, fmt.Errorf("update %q: %w", tr.Meta.ID, err)
	}

	id := tr.Meta.ID
	rot := geo.Orientation(st.AimDirection, st.Up)

	rs := RenderState{
		TraceID:      id,
		Color:        tr.Meta.Color,
		RaceTimeMs:   snap.RaceTimeMs,
		SampleTimeMs: st.TimeMs,
		Ended:        snap.RaceTimeMs >= float64(tr.EndTimeMs()),
		Position:     st.Position,
		Velocity:     st.Velocity,
		Orientation:  rot,
		WheelOffsets: WheelOffsets(st.DamperLength, p),
		WheelAngle:   st.WheelAngle,
		Followed:     snap.IsFollowed(id),
		Hovered:      snap.IsHovered(id),
		Input: Input{
			Steer:     st.SteerInput,
			Gas:       st.GasPedal,
			Brake:     st.Braking,
			Gear:      st.Gear,
			EngineRPM: st.EngineRPM,
			Speed:     st.Speed,
			Contacts:  st.WheelsContactCount,
			Skidding:  st.WheelsSkiddingCount,
		},
	}

	next := prev
	next.Scale = smoothScale(prev.Scale, rs.Hovered, p)
	rs.Scale = next.Scale

	if rs.Followed {
		next.Camera = followCamera(prev.Camera, st, rot, p)
		cam := next.Camera
		rs.Camera = &cam
	}

	return rs, next, nil
}

// WheelOffsets returns the vertical offset of each wheel: its rest height
// minus the scaled damper length. Front and rear rest heights differ.
func WheelOffsets(dampers [core.WheelCount]float64, p Params) [core.WheelCount]float64 {
	var out [core.WheelCount]float64
	for i, d := range dampers {
		rest := p.RearWheelRestY
		if i == core.WheelFrontLeft || i == core.WheelFrontRight {
			rest = p.FrontWheelRestY
		}
		out[i] = rest - d*p.DamperScale
	}
	return out
}

func smoothScale(prev float64, hovered bool, p Params) float64 {
	if prev == 0 {
		prev = p.NormalScale
	}
	target := p.NormalScale
	if hovered {
		target = p.HoverScale
	}
	return prev + (target-prev)*p.ScaleSmoothing
}

// followCamera moves the orbit target toward the car and, in follow mode,
// the camera toward its chase position.
func followCamera(prev CameraState, st trace.State, rot mgl64.Quat, p Params) CameraState {
	next := prev
	next.Target = geo.LerpVec(prev.Target, st.Position, p.OrbitSmoothing)
	if p.CameraMode == CameraFollow {
		next.Position = geo.LerpVec(prev.Position, ChasePosition(st.Position, st.Velocity, st.Speed, rot, p), p.CameraSmoothing)
	}
	return next
}

// ChasePosition returns the unsmoothed follow-camera position for a car at
// pos moving with velocity and speed, oriented by rot.
func ChasePosition(pos, velocity mgl64.Vec3, speed float64, rot mgl64.Quat, p Params) mgl64.Vec3 {
	lead := velocity.Mul(-1 / p.VelocityLeadDivisor)
	local := mgl64.Vec3{
		0,
		p.CameraUpBase + speed/p.CameraUpSpeedDivisor,
		-(p.CameraBackBase + speed/p.CameraBackSpeedDivisor),
	}
	return pos.Add(lead).Add(rot.Rotate(local))
}
