// Package playback holds the shared playback cursor and the set of loaded
// traces it drives.
package playback

import (
	"fmt"
	"math"
	"strings"

	"github.com/tmdojo/viewer/pkg/core"
)

// State is the run state of a Clock.
type State int

const (
	Running State = iota
	Paused
)

func (s State) String() string {
	if s == Paused {
		return "paused"
	}
	return "running"
}

// EndPolicy decides what happens when the cursor reaches either end of the
// loaded time range.
type EndPolicy int

const (
	// EndFreeze keeps the clock running with the cursor pinned at the bound.
	EndFreeze EndPolicy = iota
	// EndPause switches the clock to Paused when a bound is reached.
	EndPause
)

// ParseEndPolicy converts a config value into an EndPolicy.
func ParseEndPolicy(s string) (EndPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "freeze":
		return EndFreeze, nil
	case "pause":
		return EndPause, nil
	default:
		return EndFreeze, fmt.Errorf("unknown end policy: %q", s)
	}
}

// Snapshot is an immutable copy of the clock taken once per frame. Every
// per-trace update of that frame reads the same snapshot.
type Snapshot struct {
	Frame       uint64
	RaceTimeMs  float64
	TickDeltaMs float64
	MaxEndMs    float64
	State       State
	Followed    core.TraceID
	Hovered     core.TraceID
}

// IsFollowed reports whether id is the followed trace.
func (s Snapshot) IsFollowed(id core.TraceID) bool {
	return s.Followed != "" && s.Followed == id
}

// IsHovered reports whether id is the hovered trace.
func (s Snapshot) IsHovered(id core.TraceID) bool {
	return s.Hovered != "" && s.Hovered == id
}

// Clock is the playback cursor. It is not safe for concurrent use: exactly
// one writer mutates it per frame and readers use Snapshot.
type Clock struct {
	frame       uint64
	raceTimeMs  float64
	tickDeltaMs float64
	maxEndMs    float64

	state     State
	direction float64
	speed     float64
	policy    EndPolicy

	followed core.TraceID
	hovered  core.TraceID
}

// NewClock creates a running clock at time zero.
func NewClock(policy EndPolicy) *Clock {
	return &Clock{
		state:     Running,
		direction: 1,
		speed:     1,
		policy:    policy,
	}
}

// Advance moves the cursor by deltaMs scaled by direction and speed, then
// clamps it to [0, maxEnd]. The tick delta is recorded even while paused.
// A non-finite delta counts the frame but leaves the cursor where it is.
func (c *Clock) Advance(deltaMs float64) {
	c.frame++
	if !finite(deltaMs) {
		c.tickDeltaMs = 0
		return
	}
	c.tickDeltaMs = deltaMs
	if c.state == Paused {
		return
	}

	step := deltaMs * c.direction
	next := clamp(c.raceTimeMs+step*c.speed, 0, c.maxEndMs)
	hitBound := (step > 0 && next >= c.maxEndMs) || (step < 0 && next <= 0)
	c.raceTimeMs = next

	if hitBound && c.policy == EndPause {
		c.state = Paused
	}
}

// Seek moves the cursor to ms, clamped to the loaded range. Non-finite
// values are ignored.
func (c *Clock) Seek(ms float64) {
	if !finite(ms) {
		return
	}
	c.raceTimeMs = clamp(ms, 0, c.maxEndMs)
}

// Pause stops the cursor from advancing.
func (c *Clock) Pause() {
	c.state = Paused
}

// Resume lets the cursor advance again.
func (c *Clock) Resume() {
	c.state = Running
}

// TogglePause flips between Running and Paused.
func (c *Clock) TogglePause() {
	if c.state == Paused {
		c.state = Running
		return
	}
	c.state = Paused
}

// SetDirection sets forward (positive) or backward (negative) playback.
// Zero is ignored.
func (c *Clock) SetDirection(dir float64) {
	switch {
	case dir > 0:
		c.direction = 1
	case dir < 0:
		c.direction = -1
	}
}

// SetSpeed sets the playback rate multiplier. Non-positive and non-finite
// values are ignored.
func (c *Clock) SetSpeed(speed float64) {
	if speed > 0 && finite(speed) {
		c.speed = speed
	}
}

// SetPolicy changes the end-of-range policy.
func (c *Clock) SetPolicy(p EndPolicy) {
	c.policy = p
}

// SetMaxEnd updates the upper bound, usually after the loaded set changed.
// The cursor is clamped into the new range.
func (c *Clock) SetMaxEnd(ms float64) {
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}
	c.maxEndMs = ms
	c.raceTimeMs = clamp(c.raceTimeMs, 0, ms)
}

// SetFollowed selects the trace the camera tracks. An empty id clears it.
func (c *Clock) SetFollowed(id core.TraceID) {
	c.followed = id
}

// SetHovered selects the highlighted trace. An empty id clears it.
func (c *Clock) SetHovered(id core.TraceID) {
	c.hovered = id
}

// Reset rewinds to zero and drops the follow and hover selections.
func (c *Clock) Reset() {
	c.raceTimeMs = 0
	c.tickDeltaMs = 0
	c.direction = 1
	c.followed = ""
	c.hovered = ""
}

func (c *Clock) RaceTimeMs() float64 { return c.raceTimeMs }
func (c *Clock) TickDeltaMs() float64 { return c.tickDeltaMs }
func (c *Clock) MaxEndMs() float64 { return c.maxEndMs }
func (c *Clock) State() State { return c.state }
func (c *Clock) Speed() float64 { return c.speed }
func (c *Clock) Direction() float64 { return c.direction }
func (c *Clock) Followed() core.TraceID { return c.followed }
func (c *Clock) Hovered() core.TraceID { return c.hovered }

// Snapshot copies the current state.
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		Frame:       c.frame,
		RaceTimeMs:  c.raceTimeMs,
		TickDeltaMs: c.tickDeltaMs,
		MaxEndMs:    c.maxEndMs,
		State:       c.state,
		Followed:    c.followed,
		Hovered:     c.hovered,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
