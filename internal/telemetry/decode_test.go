package telemetry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmdojo/viewer/internal/trace"
	"github.com/tmdojo/viewer/pkg/core"
)

func testSample(timeMs int32, x float64) core.Sample {
	return core.Sample{
		TimeMs:              timeMs,
		Position:            mgl64.Vec3{x, 10, 20},
		AimYaw:              0.5,
		AimPitch:            -0.25,
		AimDirection:        mgl64.Vec3{0, 0, 1},
		Velocity:            mgl64.Vec3{1.5, 0, 3},
		Speed:               120.5,
		SteerInput:          -0.75,
		GasPedal:            true,
		EngineRPM:           9000,
		Gear:                3,
		WheelsContactCount:  4,
		WheelsSkiddingCount: 1,
	}
}

func testSamples(n int) []core.Sample {
	out := make([]core.Sample, n)
	for i := range out {
		out[i] = testSample(int32(i*100), float64(i+1))
	}
	return out
}

func TestLayout_Stride(t *testing.T) {
	assert.Equal(t, 76, LayoutLegacy.Stride())
	assert.Equal(t, 108, LayoutExtended.Stride())
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		input   string
		want    Layout
		wantErr bool
	}{
		{"legacy", LayoutLegacy, false},
		{"", LayoutLegacy, false},
		{"Extended", LayoutExtended, false},
		{" extended ", LayoutExtended, false},
		{"v3", LayoutLegacy, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLayout(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_AllRecords(t *testing.T) {
	in := testSamples(5)
	buf := Marshal(in, LayoutLegacy)
	require.Len(t, buf, 5*76)

	tr, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, tr.Samples, 5)
	assert.Nil(t, tr.DNFPosition)
	assert.False(t, tr.DidNotFinish())

	for i := 1; i < len(tr.Samples); i++ {
		assert.Greater(t, tr.Samples[i].TimeMs, tr.Samples[i-1].TimeMs)
	}

	for i, s := range tr.Samples {
		want := in[i]
		want.Offset = i * 76
		assert.Equal(t, want, s, "sample %d", i)
	}
}

func TestDecode_DNFSentinel(t *testing.T) {
	in := testSamples(6)
	in[3].Position = mgl64.Vec3{}

	tr, err := Decode(Marshal(in, LayoutLegacy))
	require.NoError(t, err)

	require.Len(t, tr.Samples, 3)
	require.NotNil(t, tr.DNFPosition)
	assert.Equal(t, tr.Samples[2].Position, *tr.DNFPosition)
	assert.True(t, tr.DidNotFinish())
	assert.Equal(t, int32(200), tr.EndTimeMs())
}

func TestDecode_DNFOnFirstRecord(t *testing.T) {
	in := testSamples(3)
	in[0].Position = mgl64.Vec3{}

	tr, err := Decode(Marshal(in, LayoutLegacy))
	require.NoError(t, err)

	assert.Empty(t, tr.Samples)
	assert.Nil(t, tr.Bounds)
	require.NotNil(t, tr.DNFPosition)
	assert.Equal(t, mgl64.Vec3{}, *tr.DNFPosition)
}

func TestDecode_EmptyBuffer(t *testing.T) {
	tr, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, tr.Samples)
	assert.Nil(t, tr.Bounds)
	assert.Nil(t, tr.DNFPosition)
}

func TestDecode_RequireSamples(t *testing.T) {
	_, err := Decode([]byte{}, WithRequireSamples())
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestDecode_TrailingPartialRecord(t *testing.T) {
	buf := append(Marshal(testSamples(2), LayoutLegacy), 1, 2, 3, 4, 5)

	tr, err := Decode(buf)
	require.NoError(t, err)
	assert.Len(t, tr.Samples, 2)

	_, err = Decode(buf, WithStrict())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 152, de.Offset)
	assert.Equal(t, 157, de.Length)
}

func TestDecode_BoundingBox(t *testing.T) {
	in := testSamples(3)
	in[0].Position = mgl64.Vec3{1, 2, 3}
	in[1].Position = mgl64.Vec3{4, 1, 6}
	in[2].Position = mgl64.Vec3{}

	tr, err := Decode(Marshal(in, LayoutLegacy))
	require.NoError(t, err)
	require.NotNil(t, tr.Bounds)

	assert.Equal(t, mgl64.Vec3{1, 1, 3}, tr.Bounds.Min)
	assert.Equal(t, mgl64.Vec3{4, 2, 6}, tr.Bounds.Max)
}

func TestDecode_NonMonotonicTime(t *testing.T) {
	in := testSamples(3)
	in[2].TimeMs = in[1].TimeMs

	_, err := Decode(Marshal(in, LayoutLegacy))
	require.Error(t, err)
	assert.ErrorIs(t, err, trace.ErrNonMonotonic)

	var pe *trace.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Index)
}

func TestDecode_PackedInputBits(t *testing.T) {
	tests := []struct {
		packed     uint32
		gas, brake bool
	}{
		{0, false, false},
		{1, true, false},
		{2, false, true},
		{3, true, true},
		{7, true, true},
	}
	for _, tt := range tests {
		buf := Marshal(testSamples(1), LayoutLegacy)
		binary.LittleEndian.PutUint32(buf[56:], tt.packed)

		tr, err := Decode(buf)
		require.NoError(t, err)
		require.Len(t, tr.Samples, 1)
		assert.Equal(t, tt.gas, tr.Samples[0].GasPedal, "packed=%d", tt.packed)
		assert.Equal(t, tt.brake, tr.Samples[0].Braking, "packed=%d", tt.packed)
	}
}

func TestDecode_ExtendedLayout(t *testing.T) {
	in := testSamples(2)
	for i := range in {
		in[i].Up = mgl64.Vec3{0, 1, 0}
		in[i].WheelAngle = 0.125
		in[i].DamperLength = [core.WheelCount]float64{0.01, 0.02, 0.03, 0.04}
	}
	buf := Marshal(in, LayoutExtended)
	require.Len(t, buf, 2*108)

	tr, err := Decode(buf, WithLayout(LayoutExtended))
	require.NoError(t, err)
	require.Len(t, tr.Samples, 2)

	s := tr.Samples[1]
	assert.Equal(t, 108, s.Offset)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, s.Up)
	assert.Equal(t, 0.125, s.WheelAngle)
	for i, want := range in[1].DamperLength {
		assert.InDelta(t, want, s.DamperLength[i], 1e-7)
	}
}

func TestEncode_WritesMarshalledBytes(t *testing.T) {
	in := testSamples(3)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in, LayoutLegacy))
	assert.Equal(t, Marshal(in, LayoutLegacy), buf.Bytes())
}
