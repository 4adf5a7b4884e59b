package playback

import (
	"fmt"

	"github.com/tmdojo/viewer/pkg/core"
)

// CommandKind identifies a clock control action.
type CommandKind int

const (
	CmdPause CommandKind = iota
	CmdResume
	CmdTogglePause
	CmdSeek
	CmdFollow
	CmdHover
	CmdSpeed
	CmdDirection
	CmdReset
	CmdUnload
)

var commandNames = map[CommandKind]string{
	CmdPause:       "pause",
	CmdResume:      "resume",
	CmdTogglePause: "toggle_pause",
	CmdSeek:        "seek",
	CmdFollow:      "follow",
	CmdHover:       "hover",
	CmdSpeed:       "speed",
	CmdDirection:   "direction",
	CmdReset:       "reset",
	CmdUnload:      "unload",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is a queued control action applied at the start of a tick.
type Command struct {
	Kind  CommandKind
	Trace core.TraceID
	Value float64
}

// Apply executes the command against p.
func (c Command) Apply(p *Player) error {
	clock := p.Clock()
	switch c.Kind {
	case CmdPause:
		clock.Pause()
	case CmdResume:
		clock.Resume()
	case CmdTogglePause:
		clock.TogglePause()
	case CmdSeek:
		clock.Seek(c.Value)
	case CmdFollow:
		return p.Follow(c.Trace)
	case CmdHover:
		return p.Hover(c.Trace)
	case CmdSpeed:
		if c.Value <= 0 {
			return fmt.Errorf("speed must be positive, got %v", c.Value)
		}
		clock.SetSpeed(c.Value)
	case CmdDirection:
		if c.Value == 0 {
			return fmt.Errorf("direction must be non-zero")
		}
		clock.SetDirection(c.Value)
	case CmdReset:
		clock.Reset()
	case CmdUnload:
		if !p.Unload(c.Trace) {
			return fmt.Errorf("unload %q: %w", c.Trace, ErrUnknownTrace)
		}
	default:
		return fmt.Errorf("unknown command: %s", c.Kind)
	}
	return nil
}
