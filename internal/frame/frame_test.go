package frame

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/pkg/core"
)

const eps = 1e-9

func testTrace() *core.Trace {
	return &core.Trace{
		Meta: core.TraceMeta{ID: "run-1", Color: core.Color{R: 1}},
		Samples: []core.Sample{
			{
				TimeMs:       0,
				Position:     mgl64.Vec3{0, 10, 0},
				AimDirection: mgl64.Vec3{0, 0, 1},
				Velocity:     mgl64.Vec3{0, 0, 10},
				Speed:        36,
				Gear:         1,
			},
			{
				TimeMs:       100,
				Position:     mgl64.Vec3{0, 10, 10},
				AimDirection: mgl64.Vec3{0, 0, 1},
				Velocity:     mgl64.Vec3{0, 0, 20},
				Speed:        72,
				Gear:         2,
				GasPedal:     true,
				DamperLength: [core.WheelCount]float64{0.1, 0.1, 0.2, 0.2},
			},
		},
	}
}

func TestUpdate_InterpolatesAtRaceTime(t *testing.T) {
	rs, _, err := Update(testTrace(), playback.Snapshot{RaceTimeMs: 50}, Smoothed{}, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, core.TraceID("run-1"), rs.TraceID)
	assert.InDelta(t, 5.0, rs.Position.Z(), eps)
	assert.InDelta(t, 15.0, rs.Velocity.Z(), eps)
	assert.InDelta(t, 54.0, rs.Input.Speed, eps)
	assert.Equal(t, int32(2), rs.Input.Gear, "discrete fields come from the current sample")
	assert.True(t, rs.Input.Gas)
	assert.False(t, rs.Ended)
	assert.True(t, rs.Orientation.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-9))
}

func TestUpdate_FreezesPastEnd(t *testing.T) {
	rs, _, err := Update(testTrace(), playback.Snapshot{RaceTimeMs: 5000}, Smoothed{}, DefaultParams())
	require.NoError(t, err)

	assert.True(t, rs.Ended)
	assert.Equal(t, 100.0, rs.SampleTimeMs)
	assert.Equal(t, mgl64.Vec3{0, 10, 10}, rs.Position)
}

func TestUpdate_EmptyTrace(t *testing.T) {
	_, _, err := Update(&core.Trace{}, playback.Snapshot{}, Smoothed{}, DefaultParams())
	require.ErrorIs(t, err, playback.ErrEmptyTrace)

	_, _, err = Update(nil, playback.Snapshot{}, Smoothed{}, DefaultParams())
	require.ErrorIs(t, err, playback.ErrEmptyTrace)
}

func TestUpdate_HoverScaleSmoothing(t *testing.T) {
	p := DefaultParams()
	tr := testTrace()

	rs, next, err := Update(tr, playback.Snapshot{Hovered: "run-1"}, Smoothed{}, p)
	require.NoError(t, err)
	assert.True(t, rs.Hovered)
	assert.InDelta(t, 0.012, rs.Scale, eps)
	assert.Equal(t, rs.Scale, next.Scale)

	for range 100 {
		_, next, err = Update(tr, playback.Snapshot{Hovered: "run-1"}, next, p)
		require.NoError(t, err)
	}
	assert.InDelta(t, p.HoverScale, next.Scale, 1e-6)

	rs, _, err = Update(tr, playback.Snapshot{}, next, p)
	require.NoError(t, err)
	assert.False(t, rs.Hovered)
	assert.Less(t, rs.Scale, p.HoverScale)
}

func TestUpdate_NotFollowedLeavesCamera(t *testing.T) {
	prev := Smoothed{Camera: CameraState{Position: mgl64.Vec3{1, 2, 3}}}

	rs, next, err := Update(testTrace(), playback.Snapshot{Followed: "other"}, prev, DefaultParams())
	require.NoError(t, err)

	assert.Nil(t, rs.Camera)
	assert.Equal(t, prev.Camera, next.Camera)
}

func TestUpdate_FollowedOrbitModeMovesTargetOnly(t *testing.T) {
	p := DefaultParams()
	p.CameraMode = CameraOrbit
	prev := Smoothed{Camera: CameraState{Position: mgl64.Vec3{1, 2, 3}}}

	rs, next, err := Update(testTrace(), playback.Snapshot{Followed: "run-1"}, prev, p)
	require.NoError(t, err)

	require.NotNil(t, rs.Camera)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, next.Camera.Position)
	// 20% of the way from the origin toward (0, 10, 0).
	assert.InDelta(t, 2.0, next.Camera.Target.Y(), eps)
}

func TestUpdate_FollowModeChasesCar(t *testing.T) {
	p := DefaultParams()
	p.CameraMode = CameraFollow
	tr := testTrace()
	snap := playback.Snapshot{RaceTimeMs: 0, Followed: "run-1"}

	// speed 36: back 7 + 36/30 = 8.2, up 2 + 36/200 = 2.18, lead -10/5 = -2.
	want := mgl64.Vec3{0, 12.18, -10.2}
	got := ChasePosition(tr.Samples[0].Position, tr.Samples[0].Velocity, 36, mgl64.QuatIdent(), p)
	assert.InDelta(t, want.X(), got.X(), eps)
	assert.InDelta(t, want.Y(), got.Y(), eps)
	assert.InDelta(t, want.Z(), got.Z(), eps)

	prev := Smoothed{Camera: CameraState{Position: want}}
	rs, next, err := Update(tr, snap, prev, p)
	require.NoError(t, err)
	require.NotNil(t, rs.Camera)
	assert.InDelta(t, want.Z(), next.Camera.Position.Z(), 1e-9, "already at the chase position")
}

func TestChasePosition_RotatesWithCar(t *testing.T) {
	p := DefaultParams()
	// Car heading +X: the "back" offset points along -X.
	rot := mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 1, 0})

	got := ChasePosition(mgl64.Vec3{}, mgl64.Vec3{}, 0, rot, p)

	assert.InDelta(t, -7.0, got.X(), 1e-9)
	assert.InDelta(t, 2.0, got.Y(), 1e-9)
	assert.InDelta(t, 0.0, got.Z(), 1e-9)
}

func TestWheelOffsets(t *testing.T) {
	p := DefaultParams()
	got := WheelOffsets([core.WheelCount]float64{0.1, 0.2, 0.3, 0.4}, p)

	assert.InDelta(t, p.FrontWheelRestY-10, got[core.WheelFrontLeft], eps)
	assert.InDelta(t, p.FrontWheelRestY-20, got[core.WheelFrontRight], eps)
	assert.InDelta(t, p.RearWheelRestY-30, got[core.WheelRearRight], eps)
	assert.InDelta(t, p.RearWheelRestY-40, got[core.WheelRearLeft], eps)
}

func TestUpdate_DoesNotMutateInputs(t *testing.T) {
	tr := testTrace()
	before := tr.Samples[1]
	prev := Smoothed{Scale: 0.015, Camera: CameraState{Target: mgl64.Vec3{1, 1, 1}}}

	_, _, err := Update(tr, playback.Snapshot{RaceTimeMs: 50, Followed: "run-1", Hovered: "run-1"}, prev, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, before, tr.Samples[1])
	assert.Equal(t, 0.015, prev.Scale)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, prev.Camera.Target)
}

func TestParseCameraMode(t *testing.T) {
	m, err := ParseCameraMode("Follow")
	require.NoError(t, err)
	assert.Equal(t, CameraFollow, m)

	m, err = ParseCameraMode("")
	require.NoError(t, err)
	assert.Equal(t, CameraOrbit, m)

	_, err = ParseCameraMode("cinematic")
	assert.Error(t, err)
}
