// Package session drives one playback session: it owns the player, applies
// queued control commands and runs the per-trace frame updates of every
// tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/internal/geo"
	"github.com/tmdojo/viewer/internal/logging"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/internal/queue"
	"github.com/tmdojo/viewer/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/tmdojo/viewer/internal/session"

// orbitOffset places the camera relative to its target before anything is
// followed.
var orbitOffset = mgl64.Vec3{0, 40, -60}

// Observer receives the result of every tick. It is called on the tick
// goroutine and must not block.
type Observer interface {
	OnTick(snap playback.Snapshot, states []frame.RenderState, took time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap playback.Snapshot, states []frame.RenderState, took time.Duration)

func (f ObserverFunc) OnTick(snap playback.Snapshot, states []frame.RenderState, took time.Duration) {
	f(snap, states, took)
}

// Config configures a Scheduler.
type Config struct {
	// SessionID defaults to a random UUID.
	SessionID string
	Policy    playback.EndPolicy
	Speed     float64
	Params    frame.Params
	// Workers > 1 runs per-trace updates on that many goroutines.
	Workers      int
	CommandQueue int
	Logger       *slog.Logger
	// LogContext is created from SessionID when nil.
	LogContext *logging.PlaybackContext
}

// Scheduler is the single writer of the playback clock. Tick, Load and
// Unload are serialized; Enqueue may be called from any goroutine.
type Scheduler struct {
	mu sync.Mutex

	id       string
	player   *playback.Player
	commands *queue.Queue[playback.Command]
	params   frame.Params
	workers  int

	scales     map[core.TraceID]float64
	camera     frame.CameraState
	cameraInit bool

	observers []Observer
	pctx      *logging.PlaybackContext
	logger    *slog.Logger

	tickDuration metric.Float64Histogram
	commandsRun  metric.Int64Counter
	commandsFail metric.Int64Counter
}

// New creates a scheduler with an empty trace set.
func New(cfg Config) (*Scheduler, error) {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", cfg.SessionID)
	if cfg.LogContext == nil {
		cfg.LogContext = logging.NewPlaybackContext(cfg.SessionID)
	}

	clock := playback.NewClock(cfg.Policy)
	if cfg.Speed > 0 {
		clock.SetSpeed(cfg.Speed)
	}

	s := &Scheduler{
		id:       cfg.SessionID,
		player:   playback.NewPlayer(clock, logger),
		commands: queue.NewBounded[playback.Command](cfg.CommandQueue),
		params:   cfg.Params,
		workers:  cfg.Workers,
		scales:   make(map[core.TraceID]float64),
		pctx:     cfg.LogContext,
		logger:   logger,
	}

	meter := otel.Meter(instrumentationName)
	var err error
	s.tickDuration, err = meter.Float64Histogram("session.tick.duration",
		metric.WithDescription("Time spent computing one tick"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create tick histogram: %w", err)
	}
	s.commandsRun, err = meter.Int64Counter("session.commands.applied",
		metric.WithDescription("Control commands applied"))
	if err != nil {
		return nil, fmt.Errorf("create command counter: %w", err)
	}
	s.commandsFail, err = meter.Int64Counter("session.commands.failed",
		metric.WithDescription("Control commands rejected"))
	if err != nil {
		return nil, fmt.Errorf("create command failure counter: %w", err)
	}

	return s, nil
}

// ID returns the session id.
func (s *Scheduler) ID() string {
	return s.id
}

// LogContext returns the provider that stamps log records with the
// playback position.
func (s *Scheduler) LogContext() *logging.PlaybackContext {
	return s.pctx
}

// AddObserver registers o to receive every tick result.
func (s *Scheduler) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Enqueue queues cmd for the start of the next tick. It returns false if an
// older command was evicted to make room.
func (s *Scheduler) Enqueue(cmd playback.Command) bool {
	if n := s.commands.Push(cmd); n > 0 {
		s.logger.Warn("Command queue full, dropped oldest", "dropped", n)
		return false
	}
	return true
}

// Load adds tr to the session. It is never called during a tick.
func (s *Scheduler) Load(tr *core.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.player.Load(tr); err != nil {
		return err
	}
	if !s.cameraInit {
		clock := s.player.Clock()
		s.camera.Target = geo.InitialOrbitTarget(s.player.Registry().List(), clock.RaceTimeMs())
		s.camera.Position = s.camera.Target.Add(orbitOffset)
		s.cameraInit = true
	}
	return nil
}

// Unload removes a trace between ticks.
func (s *Scheduler) Unload(id core.TraceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scales, id)
	return s.player.Unload(id)
}

// UnloadAll clears the session and rewinds the clock.
func (s *Scheduler) UnloadAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.UnloadAll()
	clear(s.scales)
	s.cameraInit = false
	s.camera = frame.CameraState{}
}

// Traces returns the loaded traces in load order.
func (s *Scheduler) Traces() []*core.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Registry().List()
}

// Snapshot returns the current clock snapshot.
func (s *Scheduler) Snapshot() playback.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Clock().Snapshot()
}

// Camera returns the session camera.
func (s *Scheduler) Camera() frame.CameraState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// SceneBounds returns the box enclosing every loaded trace and the given
// map blocks.
func (s *Scheduler) SceneBounds(blocks []core.MapBlock, blockPadding int) (core.Box, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geo.SceneBounds(s.player.Registry().List(), blocks, blockPadding)
}

// Tick applies queued commands, advances the clock once and computes the
// render state of every loaded trace against a single snapshot. States are
// returned in load order. A trace whose update fails is left out and its
// error is joined into the returned error.
func (s *Scheduler) Tick(deltaMs float64) ([]frame.RenderState, error) {
	start := time.Now()

	s.mu.Lock()
	s.applyCommands()

	clock := s.player.Clock()
	clock.Advance(deltaMs)
	snap := clock.Snapshot()

	// Resolving drops selections whose trace is gone.
	if _, err := s.player.FollowedTrace(); err != nil {
		snap = clock.Snapshot()
	}
	if _, err := s.player.HoveredTrace(); err != nil {
		snap = clock.Snapshot()
	}

	traces := s.player.Registry().List()
	states, errs := s.update(traces, snap)

	observers := s.observers
	s.pctx.Update(snap.RaceTimeMs, snap.Frame, len(traces))
	s.mu.Unlock()

	took := time.Since(start)
	s.tickDuration.Record(context.Background(), float64(took.Microseconds())/1000)
	for _, o := range observers {
		o.OnTick(snap, states, took)
	}

	return states, errors.Join(errs...)
}

func (s *Scheduler) applyCommands() {
	ctx := context.Background()
	for _, cmd := range s.commands.Drain() {
		if err := cmd.Apply(s.player); err != nil {
			s.commandsFail.Add(ctx, 1)
			s.logger.Warn("Command rejected", "command", cmd.Kind.String(), "trace", cmd.Trace, "error", err)
			continue
		}
		s.commandsRun.Add(ctx, 1)
		s.logger.Debug("Command applied", "command", cmd.Kind.String(), "trace", cmd.Trace, "value", cmd.Value)
	}
}

type result struct {
	state    frame.RenderState
	smoothed frame.Smoothed
	err      error
}

// update runs frame.Update for every trace. Workers only read the snapshot
// and write their own result slot; smoothed state is folded back afterwards.
func (s *Scheduler) update(traces []*core.Trace, snap playback.Snapshot) ([]frame.RenderState, []error) {
	results := make([]result, len(traces))
	run := func(i int) {
		tr := traces[i]
		prev := frame.Smoothed{Scale: s.scales[tr.Meta.ID], Camera: s.camera}
		rs, next, err := frame.Update(tr, snap, prev, s.params)
		results[i] = result{state: rs, smoothed: next, err: err}
	}

	if s.workers > 1 && len(traces) > 1 {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for i := range traces {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range traces {
			run(i)
		}
	}

	states := make([]frame.RenderState, 0, len(traces))
	var errs []error
	for i, r := range results {
		if r.err != nil {
			s.logger.Error("Frame update failed", "trace", traces[i].Meta.ID, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		s.scales[r.state.TraceID] = r.smoothed.Scale
		if r.state.Followed {
			s.camera = r.smoothed.Camera
		}
		states = append(states, r.state)
	}
	return states, errs
}
