// pkg/core/trace.go
package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// TraceID identifies a replay inside the active working set.
type TraceID string

// Color is a display color with components in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// TraceMeta is the externally supplied replay metadata. It is never produced
// by the decoder.
type TraceMeta struct {
	ID          TraceID   `json:"_id"`
	MapUID      string    `json:"mapUId"`
	PlayerName  string    `json:"playerName"`
	WebID       string    `json:"webId"`
	Color       Color     `json:"color"`
	Finished    bool      `json:"raceFinished"`
	EndRaceTime int32     `json:"endRaceTime"`
	UploadedAt  time.Time `json:"date"`
	ObjectPath  string    `json:"objectPath,omitempty"`
}

// Trace is one decoded replay. It is immutable once built.
type Trace struct {
	Meta    TraceMeta
	Samples []Sample

	// Bounds is nil when Samples is empty.
	Bounds *Box

	// DNFPosition is the last valid position before the did-not-finish
	// sentinel, nil if the recording finished.
	DNFPosition *mgl64.Vec3
}

// Len returns the number of samples.
func (t *Trace) Len() int {
	return len(t.Samples)
}

// First returns the first sample. The trace must not be empty.
func (t *Trace) First() *Sample {
	return &t.Samples[0]
}

// Last returns the last sample. The trace must not be empty.
func (t *Trace) Last() *Sample {
	return &t.Samples[len(t.Samples)-1]
}

// EndTimeMs returns the race time of the last sample, or 0 for an empty trace.
func (t *Trace) EndTimeMs() int32 {
	if len(t.Samples) == 0 {
		return 0
	}
	return t.Last().TimeMs
}

// DidNotFinish reports whether decoding hit the DNF sentinel.
func (t *Trace) DidNotFinish() bool {
	return t.DNFPosition != nil
}
