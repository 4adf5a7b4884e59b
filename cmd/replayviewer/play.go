package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"
	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/dispatcher"
	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/internal/influx"
	"github.com/tmdojo/viewer/internal/loader"
	"github.com/tmdojo/viewer/internal/logging"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/internal/session"
	"github.com/tmdojo/viewer/internal/stream"
	"github.com/tmdojo/viewer/pkg/core"
)

func (a *app) play(ctx context.Context, args []string, stdin io.Reader) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	untilEnd := fs.Bool("until-end", false, "exit once the cursor reaches the end of the loaded range")
	mapUID := fs.String("map", "", "load replays of this map from the API; arguments select replay ids")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *mapUID == "" && fs.NArg() == 0 {
		return fmt.Errorf("play needs replay files or -map: %w", errUsage)
	}

	decoderCfg, err := config.GetDecoderConfig()
	if err != nil {
		return err
	}
	playbackCfg, err := config.GetPlaybackConfig()
	if err != nil {
		return err
	}
	params, err := config.GetFrameParams()
	if err != nil {
		return err
	}
	loaderCfg := config.GetLoaderConfig()
	logger := a.slogManager.Component("play")

	sched, err := session.New(session.Config{
		SessionID:    a.sessionID,
		Policy:       playbackCfg.EndPolicy,
		Speed:        playbackCfg.Speed,
		Params:       params,
		Workers:      playbackCfg.Workers,
		CommandQueue: playbackCfg.CommandQueue,
		Logger:       a.slogManager.Component("session"),
		LogContext:   a.pctx,
	})
	if err != nil {
		return err
	}

	ld := loader.New(loaderCfg, decoderCfg, loader.Dependencies{
		Fetcher: a.client,
		Store:   a.storage,
		Target:  sched,
		Notifier: loader.NotifierFunc(func(meta core.TraceMeta, err error) {
			logger.Warn("Replay failed to load", "id", meta.ID, "player", meta.PlayerName, "error", err)
		}),
		Logger: logger,
	})

	if err := a.loadTraces(ctx, ld, *mapUID, fs.Args()); err != nil {
		return err
	}
	traces := sched.Traces()
	if len(traces) == 0 {
		return errors.New("no replay could be loaded")
	}
	logger.Info("Replays loaded", "count", len(traces), "endMs", sched.Snapshot().MaxEndMs)

	if *mapUID != "" {
		blocks, err := ld.MapBlocks(ctx, *mapUID)
		if err != nil {
			logger.Warn("Map blocks unavailable", "map", *mapUID, "error", err)
		}
		if box, ok := sched.SceneBounds(blocks, loaderCfg.BlockPadding); ok {
			logger.Info("Scene bounds", "min", box.Min, "max", box.Max)
		}
	}

	if stop := a.attachStream(sched, playbackCfg.FPS, traces); stop != nil {
		defer stop()
	}
	if stop := a.attachInflux(ctx, sched); stop != nil {
		defer stop()
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.slogManager.Component("dispatcher")))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	defer d.Close()
	session.RegisterControls(d, sched)
	go readControls(stdin, d, logger)

	return runLoop(ctx, sched, playbackCfg.FrameInterval(), *untilEnd, logger)
}

// loadTraces registers replays from the API when mapUID is set and from
// files otherwise. A replay that fails is reported and skipped.
func (a *app) loadTraces(ctx context.Context, ld *loader.Loader, mapUID string, args []string) error {
	if mapUID == "" {
		for _, path := range args {
			if _, err := ld.LoadFile(ctx, path, core.TraceMeta{PlayerName: filepath.Base(path)}); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return nil
	}

	metas, err := a.client.ListReplays(ctx, mapUID)
	if err != nil {
		return fmt.Errorf("list replays of %s: %w", mapUID, err)
	}
	if len(args) > 0 {
		metas = slices.DeleteFunc(metas, func(m core.TraceMeta) bool {
			return !slices.Contains(args, string(m.ID))
		})
	}
	_, err = ld.LoadAll(ctx, metas)
	return err
}

// attachStream publishes every frame to the render websocket when enabled.
// The returned func ends the session.
func (a *app) attachStream(sched *session.Scheduler, fps int, traces []*core.Trace) func() {
	cfg := config.GetStreamConfig()
	if !cfg.Enabled {
		return nil
	}
	logger := a.slogManager.Component("stream")
	pub := stream.New(cfg, a.sessionID, logger)
	if err := pub.Init(); err != nil {
		logger.Warn("Render stream unavailable", "url", cfg.URL, "error", err)
		return nil
	}

	metas := make([]core.TraceMeta, len(traces))
	for i, tr := range traces {
		metas[i] = tr.Meta
	}
	if err := pub.StartSession(fps, metas); err != nil {
		logger.Warn("Session start not acknowledged", "error", err)
	}

	sched.AddObserver(session.ObserverFunc(func(snap playback.Snapshot, states []frame.RenderState, _ time.Duration) {
		if err := pub.PublishFrame(snap, states); err != nil {
			logger.Debug("Frame not published", "frame", snap.Frame, "error", err)
		}
	}))

	return func() {
		if err := pub.EndSession(); err != nil {
			logger.Warn("Session end not acknowledged", "error", err)
		}
		if n := pub.Dropped(); n > 0 {
			logger.Warn("Frames dropped by the render stream", "count", n)
		}
		_ = pub.Close()
	}
}

// attachInflux records one point per tick when influx is enabled.
func (a *app) attachInflux(ctx context.Context, sched *session.Scheduler) func() {
	logger := a.slogManager.Component("influx")
	backup := filepath.Join(viper.GetString("logsDir"), AppName+".influx.gz")
	m := influx.NewManager(config.GetInfluxConfig(), backup, logger)
	if err := m.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			logger.Warn("Playback metrics disabled", "error", err)
		}
		return nil
	}

	sched.AddObserver(session.ObserverFunc(func(snap playback.Snapshot, states []frame.RenderState, took time.Duration) {
		err := m.WriteTick(influx.Tick{
			SessionID:  sched.ID(),
			Frame:      snap.Frame,
			RaceTimeMs: snap.RaceTimeMs,
			DeltaMs:    snap.TickDeltaMs,
			Traces:     len(states),
			Duration:   took,
			Paused:     snap.State == playback.Paused,
		})
		if err != nil {
			logger.Debug("Tick not recorded", "frame", snap.Frame, "error", err)
		}
	}))

	return func() {
		if err := m.Close(); err != nil {
			logger.Warn("Failed to close influx", "error", err)
		}
	}
}

// readControls feeds control lines like ":SEEK: 12000" to the dispatcher
// until r is exhausted.
func readControls(r io.Reader, d *dispatcher.Dispatcher, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if _, err := d.DispatchLine(scanner.Text()); err != nil && !errors.Is(err, dispatcher.ErrEmptyLine) {
			logger.Warn("Control rejected", "line", scanner.Text(), "error", err)
		}
	}
}

// runLoop ticks the scheduler at interval using the measured wall-clock delta.
func runLoop(ctx context.Context, sched *session.Scheduler, interval time.Duration, untilEnd bool, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Playback interrupted", "frame", sched.Snapshot().Frame)
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if _, err := sched.Tick(float64(delta.Microseconds()) / 1000); err != nil {
				logger.Warn("Tick finished with trace errors", "error", err)
			}
			if untilEnd && reachedEnd(sched.Snapshot()) {
				logger.Info("Playback reached the end", "raceTimeMs", sched.Snapshot().RaceTimeMs)
				return nil
			}
		}
	}
}

func reachedEnd(snap playback.Snapshot) bool {
	return snap.MaxEndMs > 0 && snap.RaceTimeMs >= snap.MaxEndMs
}
