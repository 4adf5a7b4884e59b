package telemetry

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tmdojo/viewer/pkg/core"
)

// AppendSample appends the wire encoding of s to dst. Float fields are
// narrowed to binary32.
func AppendSample(dst []byte, s *core.Sample, layout Layout) []byte {
	dst = appendInt32(dst, s.TimeMs)
	dst = appendVec3(dst, s.Position)
	dst = appendFloat(dst, s.AimYaw)
	dst = appendFloat(dst, s.AimPitch)
	dst = appendVec3(dst, s.AimDirection)
	dst = appendVec3(dst, s.Velocity)
	dst = appendFloat(dst, s.Speed)
	dst = appendFloat(dst, s.SteerInput)
	dst = appendInt32(dst, core.PackInputs(s.GasPedal, s.Braking))
	dst = appendFloat(dst, s.EngineRPM)
	dst = appendInt32(dst, s.Gear)
	dst = appendInt32(dst, s.WheelsContactCount)
	dst = appendInt32(dst, s.WheelsSkiddingCount)

	if layout == LayoutExtended {
		dst = appendVec3(dst, s.Up)
		dst = appendFloat(dst, s.WheelAngle)
		for _, l := range s.DamperLength {
			dst = appendFloat(dst, l)
		}
	}
	return dst
}

// Marshal encodes samples into a single buffer.
func Marshal(samples []core.Sample, layout Layout) []byte {
	buf := make([]byte, 0, len(samples)*layout.Stride())
	for i := range samples {
		buf = AppendSample(buf, &samples[i], layout)
	}
	return buf
}

// Encode writes samples to w.
func Encode(w io.Writer, samples []core.Sample, layout Layout) error {
	if _, err := w.Write(Marshal(samples, layout)); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}

func appendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func appendFloat(dst []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
}

func appendVec3(dst []byte, v mgl64.Vec3) []byte {
	dst = appendFloat(dst, v[0])
	dst = appendFloat(dst, v[1])
	return appendFloat(dst, v[2])
}
