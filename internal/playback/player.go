package playback

import (
	"fmt"
	"log/slog"

	"github.com/tmdojo/viewer/pkg/core"
)

// Player keeps a Clock and a Registry consistent with each other: the clock
// range follows the loaded set and selections never outlive their trace.
type Player struct {
	clock  *Clock
	reg    *Registry
	logger *slog.Logger
}

// NewPlayer creates a player around clock. A nil logger uses slog.Default.
func NewPlayer(clock *Clock, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		clock:  clock,
		reg:    NewRegistry(),
		logger: logger,
	}
}

func (p *Player) Clock() *Clock {
	return p.clock
}

func (p *Player) Registry() *Registry {
	return p.reg
}

// Load registers tr and widens the clock range if needed.
func (p *Player) Load(tr *core.Trace) error {
	if err := p.reg.Add(tr); err != nil {
		return err
	}
	p.clock.SetMaxEnd(p.reg.MaxEndTimeMs())
	p.logger.Debug("Trace loaded",
		"trace", tr.Meta.ID,
		"samples", tr.Len(),
		"endMs", tr.EndTimeMs())
	return nil
}

// Unload removes the trace with the given id. Follow and hover selections
// pointing at it are cleared.
func (p *Player) Unload(id core.TraceID) bool {
	if !p.reg.Remove(id) {
		return false
	}
	if p.clock.Followed() == id {
		p.clock.SetFollowed("")
	}
	if p.clock.Hovered() == id {
		p.clock.SetHovered("")
	}
	p.clock.SetMaxEnd(p.reg.MaxEndTimeMs())
	p.logger.Debug("Trace unloaded", "trace", id)
	return true
}

// UnloadAll clears the loaded set and rewinds the clock.
func (p *Player) UnloadAll() {
	p.reg.RemoveAll()
	p.clock.Reset()
	p.clock.SetMaxEnd(0)
}

// Follow selects the trace the camera tracks. An empty id clears the
// selection.
func (p *Player) Follow(id core.TraceID) error {
	if id != "" && !p.reg.Has(id) {
		return fmt.Errorf("follow %q: %w", id, ErrUnknownTrace)
	}
	p.clock.SetFollowed(id)
	return nil
}

// Hover selects the highlighted trace. An empty id clears the selection.
func (p *Player) Hover(id core.TraceID) error {
	if id != "" && !p.reg.Has(id) {
		return fmt.Errorf("hover %q: %w", id, ErrUnknownTrace)
	}
	p.clock.SetHovered(id)
	return nil
}

// FollowedTrace resolves the followed selection. It returns nil, nil when
// nothing is followed and ErrStaleReference when the selection points at a
// trace that is no longer loaded, in which case the selection is cleared.
func (p *Player) FollowedTrace() (*core.Trace, error) {
	id := p.clock.Followed()
	if id == "" {
		return nil, nil
	}
	tr, ok := p.reg.Get(id)
	if !ok {
		p.clock.SetFollowed("")
		p.logger.Debug("Cleared stale follow reference", "trace", id)
		return nil, fmt.Errorf("followed %q: %w", id, ErrStaleReference)
	}
	return tr, nil
}

// HoveredTrace resolves the hovered selection like FollowedTrace.
func (p *Player) HoveredTrace() (*core.Trace, error) {
	id := p.clock.Hovered()
	if id == "" {
		return nil, nil
	}
	tr, ok := p.reg.Get(id)
	if !ok {
		p.clock.SetHovered("")
		p.logger.Debug("Cleared stale hover reference", "trace", id)
		return nil, fmt.Errorf("hovered %q: %w", id, ErrStaleReference)
	}
	return tr, nil
}
