package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tmdojo/viewer/internal/dispatcher"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/pkg/core"
)

// Control command names accepted by RegisterControls.
const (
	CmdPause     = ":PAUSE:"
	CmdResume    = ":RESUME:"
	CmdToggle    = ":TOGGLE:"
	CmdSeek      = ":SEEK:"
	CmdFollow    = ":FOLLOW:"
	CmdHover     = ":HOVER:"
	CmdSpeed     = ":SPEED:"
	CmdDirection = ":DIRECTION:"
	CmdReset     = ":RESET:"
	CmdUnload    = ":UNLOAD:"
)

// noTrace clears a follow or hover selection.
const noTrace = "none"

// RegisterControls wires the control surface into d. Handlers only validate
// and queue; commands take effect at the start of the next tick.
func RegisterControls(d *dispatcher.Dispatcher, s *Scheduler) {
	enqueue := func(cmd playback.Command) (any, error) {
		s.Enqueue(cmd)
		return "queued", nil
	}

	d.Register(CmdPause, func(dispatcher.Event) (any, error) {
		return enqueue(playback.Command{Kind: playback.CmdPause})
	}, dispatcher.Logged())

	d.Register(CmdResume, func(dispatcher.Event) (any, error) {
		return enqueue(playback.Command{Kind: playback.CmdResume})
	}, dispatcher.Logged())

	d.Register(CmdToggle, func(dispatcher.Event) (any, error) {
		return enqueue(playback.Command{Kind: playback.CmdTogglePause})
	}, dispatcher.Logged())

	d.Register(CmdReset, func(dispatcher.Event) (any, error) {
		return enqueue(playback.Command{Kind: playback.CmdReset})
	}, dispatcher.Logged())

	d.Register(CmdSeek, func(e dispatcher.Event) (any, error) {
		ms, err := floatArg(e)
		if err != nil {
			return nil, err
		}
		return enqueue(playback.Command{Kind: playback.CmdSeek, Value: ms})
	}, dispatcher.Logged())

	d.Register(CmdSpeed, func(e dispatcher.Event) (any, error) {
		v, err := floatArg(e)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s: speed must be positive, got %v", e.Command, v)
		}
		return enqueue(playback.Command{Kind: playback.CmdSpeed, Value: v})
	}, dispatcher.Logged())

	d.Register(CmdDirection, func(e dispatcher.Event) (any, error) {
		v, err := floatArg(e)
		if err != nil {
			return nil, err
		}
		if v == 0 {
			return nil, fmt.Errorf("%s: direction must be non-zero", e.Command)
		}
		return enqueue(playback.Command{Kind: playback.CmdDirection, Value: v})
	}, dispatcher.Logged())

	d.Register(CmdFollow, func(e dispatcher.Event) (any, error) {
		id, err := traceArg(e, true)
		if err != nil {
			return nil, err
		}
		return enqueue(playback.Command{Kind: playback.CmdFollow, Trace: id})
	}, dispatcher.Logged())

	d.Register(CmdHover, func(e dispatcher.Event) (any, error) {
		id, err := traceArg(e, true)
		if err != nil {
			return nil, err
		}
		return enqueue(playback.Command{Kind: playback.CmdHover, Trace: id})
	}, dispatcher.Logged())

	d.Register(CmdUnload, func(e dispatcher.Event) (any, error) {
		id, err := traceArg(e, false)
		if err != nil {
			return nil, err
		}
		return enqueue(playback.Command{Kind: playback.CmdUnload, Trace: id})
	}, dispatcher.Logged())
}

func floatArg(e dispatcher.Event) (float64, error) {
	if len(e.Args) != 1 {
		return 0, fmt.Errorf("%s: expected 1 argument, got %d", e.Command, len(e.Args))
	}
	v, err := strconv.ParseFloat(e.Args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", e.Command, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %q is not a finite number", e.Command, e.Args[0])
	}
	return v, nil
}

// traceArg reads a trace id. With allowNone, a missing argument or "none"
// yields the empty id.
func traceArg(e dispatcher.Event, allowNone bool) (core.TraceID, error) {
	if len(e.Args) == 0 || strings.EqualFold(e.Args[0], noTrace) {
		if allowNone {
			return "", nil
		}
		return "", fmt.Errorf("%s: trace id required", e.Command)
	}
	if len(e.Args) > 1 {
		return "", fmt.Errorf("%s: expected 1 argument, got %d", e.Command, len(e.Args))
	}
	return core.TraceID(e.Args[0]), nil
}
