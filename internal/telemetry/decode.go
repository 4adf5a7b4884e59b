// Package telemetry converts raw replay buffers into ordered samples.
package telemetry

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tmdojo/viewer/internal/trace"
	"github.com/tmdojo/viewer/pkg/core"
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithLayout selects the record layout. Defaults to LayoutLegacy.
func WithLayout(l Layout) Option {
	return func(d *Decoder) {
		d.layout = l
	}
}

// WithStrict makes a trailing partial record an error instead of being
// ignored.
func WithStrict() Option {
	return func(d *Decoder) {
		d.strict = true
	}
}

// WithRequireSamples makes a buffer without any valid sample an error.
func WithRequireSamples() Option {
	return func(d *Decoder) {
		d.requireSamples = true
	}
}

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// Decoder is a pure, synchronous bytes -> core.Trace converter. It holds no
// state between calls and is safe for concurrent use.
type Decoder struct {
	layout         Layout
	strict         bool
	requireSamples bool
	logger         *slog.Logger
}

// NewDecoder creates a decoder with the given options.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{layout: LayoutLegacy}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Layout returns the configured record layout.
func (d *Decoder) Layout() Layout {
	return d.layout
}

// Decode is a shorthand for NewDecoder(opts...).Decode(buf).
func Decode(buf []byte, opts ...Option) (*core.Trace, error) {
	return NewDecoder(opts...).Decode(buf)
}

// Decode parses buf record by record. Decoding stops at the first record
// whose position is the zero vector (the did-not-finish sentinel) or at the
// last complete record boundary. The returned trace carries no metadata.
func (d *Decoder) Decode(buf []byte) (*core.Trace, error) {
	stride := d.layout.Stride()
	tr := &core.Trace{}

	if rem := len(buf) % stride; rem != 0 {
		if d.strict {
			return nil, &DecodeError{Offset: len(buf) - rem, Length: len(buf), Err: ErrTruncatedBuffer}
		}
		d.logger.Debug("Ignoring trailing partial record", "bytes", rem, "layout", d.layout.String())
	}

	samples := make([]core.Sample, 0, len(buf)/stride)
	var (
		box     core.Box
		lastPos mgl64.Vec3
	)

	for off := 0; off+stride <= len(buf); off += stride {
		s := d.readSample(buf, off)

		if s.Position == (mgl64.Vec3{}) {
			dnf := lastPos
			tr.DNFPosition = &dnf
			break
		}

		if len(samples) == 0 {
			box = core.NewBox(s.Position)
		} else {
			box.Extend(s.Position)
		}
		samples = append(samples, s)
		lastPos = s.Position
	}

	if len(samples) == 0 {
		if d.requireSamples {
			return nil, &DecodeError{Offset: 0, Length: len(buf), Err: ErrNoSamples}
		}
		tr.Samples = samples
		return tr, nil
	}

	if err := trace.Validate(samples); err != nil {
		return nil, err
	}

	tr.Samples = samples
	tr.Bounds = &box
	return tr, nil
}

func (d *Decoder) readSample(buf []byte, off int) core.Sample {
	r := recordReader{buf: buf, off: off}
	s := core.Sample{Offset: off}

	s.TimeMs = r.int32()
	s.Position = r.vec3()
	s.AimYaw = r.float()
	s.AimPitch = r.float()
	s.AimDirection = r.vec3()
	s.Velocity = r.vec3()
	s.Speed = r.float()
	s.SteerInput = r.float()
	s.GasPedal, s.Braking = core.UnpackInputs(r.int32())
	s.EngineRPM = r.float()
	s.Gear = r.int32()
	s.WheelsContactCount = r.int32()
	s.WheelsSkiddingCount = r.int32()

	if d.layout == LayoutExtended {
		s.Up = r.vec3()
		s.WheelAngle = r.float()
		for i := range s.DamperLength {
			s.DamperLength[i] = r.float()
		}
	}

	return s
}

// recordReader reads little-endian fields sequentially from buf.
// Callers guarantee the record fits.
type recordReader struct {
	buf []byte
	off int
}

func (r *recordReader) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v
}

func (r *recordReader) float() float64 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return float64(v)
}

func (r *recordReader) vec3() mgl64.Vec3 {
	x := r.float()
	y := r.float()
	z := r.float()
	return mgl64.Vec3{x, y, z}
}
