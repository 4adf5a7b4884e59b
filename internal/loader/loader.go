// Package loader fetches, caches and decodes replays out of band, and
// registers the decoded traces with a playback session.
package loader

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"time"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/geo"
	"github.com/tmdojo/viewer/internal/storage"
	"github.com/tmdojo/viewer/internal/telemetry"
	"github.com/tmdojo/viewer/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves replay buffers and map geometry from the web API.
type Fetcher interface {
	FetchReplayData(ctx context.Context, meta core.TraceMeta) ([]byte, error)
	FetchMapBlocks(ctx context.Context, mapUID string) ([]core.MapBlock, error)
}

// Target receives decoded traces. session.Scheduler satisfies it.
type Target interface {
	Load(tr *core.Trace) error
}

// Notifier is told about every replay that could not be loaded.
type Notifier interface {
	LoadFailed(meta core.TraceMeta, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(meta core.TraceMeta, err error)

func (f NotifierFunc) LoadFailed(meta core.TraceMeta, err error) {
	f(meta, err)
}

// Palette colors replays whose metadata carries none.
var Palette = []core.Color{
	{R: 0.96, G: 0.26, B: 0.21},
	{R: 0.13, G: 0.59, B: 0.95},
	{R: 0.30, G: 0.69, B: 0.31},
	{R: 1.00, G: 0.76, B: 0.03},
	{R: 0.61, G: 0.15, B: 0.69},
	{R: 0.00, G: 0.74, B: 0.83},
	{R: 1.00, G: 0.34, B: 0.13},
	{R: 0.91, G: 0.12, B: 0.39},
}

// Loader turns replay metadata into registered traces.
type Loader struct {
	fetcher  Fetcher
	store    storage.Backend
	target   Target
	notifier Notifier
	decoder  config.DecoderConfig
	cfg      config.LoaderConfig
	logger   *slog.Logger
}

// Dependencies holds the collaborators of a Loader. Store and Notifier are
// optional.
type Dependencies struct {
	Fetcher  Fetcher
	Store    storage.Backend
	Target   Target
	Notifier Notifier
	Logger   *slog.Logger
}

// New creates a loader.
func New(cfg config.LoaderConfig, decoder config.DecoderConfig, deps Dependencies) *Loader {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:  deps.Fetcher,
		store:    deps.Store,
		target:   deps.Target,
		notifier: deps.Notifier,
		decoder:  decoder,
		cfg:      cfg,
		logger:   logger.With("component", "loader"),
	}
}

// Load fetches, decodes and registers one replay. A failed replay is
// reported to the notifier and never registered.
func (l *Loader) Load(ctx context.Context, meta core.TraceMeta) (*core.Trace, error) {
	tr, err := l.Prepare(ctx, meta)
	if err == nil {
		err = l.register(ctx, tr)
	}
	if err != nil {
		l.fail(meta, err)
		return nil, err
	}
	return tr, nil
}

// LoadAll prepares replays concurrently and registers the successful ones
// in the order given. Failures are reported and skipped. Only a cancelled
// context is returned as an error.
func (l *Loader) LoadAll(ctx context.Context, metas []core.TraceMeta) ([]*core.Trace, error) {
	traces := make([]*core.Trace, len(metas))
	errs := make([]error, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	if l.cfg.Concurrency > 0 {
		g.SetLimit(l.cfg.Concurrency)
	}
	for i, meta := range metas {
		g.Go(func() error {
			traces[i], errs[i] = l.Prepare(gctx, meta)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var loaded []*core.Trace
	for i, tr := range traces {
		err := errs[i]
		if err == nil {
			err = l.register(ctx, tr)
		}
		if err != nil {
			l.fail(metas[i], err)
			continue
		}
		loaded = append(loaded, tr)
	}
	return loaded, nil
}

// LoadFile decodes a replay buffer from disk and registers it. meta.ID
// defaults to the file path.
func (l *Loader) LoadFile(ctx context.Context, path string, meta core.TraceMeta) (*core.Trace, error) {
	if meta.ID == "" {
		meta.ID = core.TraceID(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("read %s: %w", path, err)
		l.fail(meta, err)
		return nil, err
	}

	tr, err := l.decode(meta, data, l.decoder.Layout)
	if err == nil {
		err = l.register(ctx, tr)
	}
	if err != nil {
		l.fail(meta, err)
		return nil, err
	}
	return tr, nil
}

// Prepare fetches and decodes a replay without registering it. Buffers are
// taken from the store when cached and written back after a successful
// decode.
func (l *Loader) Prepare(ctx context.Context, meta core.TraceMeta) (*core.Trace, error) {
	if cached, ok := l.cached(ctx, meta.ID); ok {
		layout := l.decoder.Layout
		if parsed, err := telemetry.ParseLayout(cached.Layout); err == nil {
			layout = parsed
		}
		return l.decode(meta, cached.Data, layout)
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("replay %q not cached and no fetcher configured", meta.ID)
	}
	data, err := l.fetcher.FetchReplayData(ctx, meta)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr, err := l.decode(meta, data, l.decoder.Layout)
	if err != nil {
		return nil, err
	}
	l.cache(ctx, tr, data)
	return tr, nil
}

// MapBlocks returns the block list of a map, from the store when cached.
func (l *Loader) MapBlocks(ctx context.Context, mapUID string) ([]core.MapBlock, error) {
	if l.store != nil {
		cached, err := l.store.GetMapBlocks(ctx, mapUID)
		if err == nil {
			return cached.Blocks, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("Map block cache lookup failed", "map", mapUID, "error", err)
		}
	}

	if l.fetcher == nil {
		return nil, fmt.Errorf("blocks of map %q not cached and no fetcher configured", mapUID)
	}
	blocks, err := l.fetcher.FetchMapBlocks(ctx, mapUID)
	if err != nil {
		return nil, err
	}

	if l.store != nil {
		err := l.store.PutMapBlocks(ctx, core.MapBlocks{MapUID: mapUID, Blocks: blocks, CachedAt: time.Now().UTC()})
		if err != nil {
			l.logger.Warn("Failed to cache map blocks", "map", mapUID, "error", err)
		}
	}
	return blocks, nil
}

func (l *Loader) cached(ctx context.Context, id core.TraceID) (core.StoredReplay, bool) {
	if l.store == nil {
		return core.StoredReplay{}, false
	}
	r, err := l.store.GetReplay(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.logger.Warn("Replay cache lookup failed", "trace", id, "error", err)
		}
		return core.StoredReplay{}, false
	}
	l.logger.Debug("Replay cache hit", "trace", id)
	return r, true
}

func (l *Loader) cache(ctx context.Context, tr *core.Trace, data []byte) {
	if l.store == nil {
		return
	}
	r := core.StoredReplay{
		Meta:        tr.Meta,
		Layout:      l.decoder.Layout.String(),
		Data:        data,
		SampleCount: tr.Len(),
		Bounds:      tr.Bounds,
		RacingLine:  geo.RacingLineWKT(tr),
		CachedAt:    time.Now().UTC(),
	}
	if err := l.store.PutReplay(ctx, r); err != nil {
		l.logger.Warn("Failed to cache replay", "trace", tr.Meta.ID, "error", err)
	}
}

func (l *Loader) decode(meta core.TraceMeta, data []byte, layout telemetry.Layout) (*core.Trace, error) {
	opts := append(l.decoder.Options(), telemetry.WithLayout(layout), telemetry.WithLogger(l.logger))
	tr, err := telemetry.Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", meta.ID, err)
	}
	if meta.Color == (core.Color{}) {
		meta.Color = ColorFor(meta.ID)
	}
	tr.Meta = meta
	l.logger.Debug("Replay decoded",
		"trace", meta.ID,
		"samples", tr.Len(),
		"dnf", tr.DidNotFinish(),
		"layout", layout.String())
	return tr, nil
}

func (l *Loader) register(ctx context.Context, tr *core.Trace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.target == nil {
		return nil
	}
	return l.target.Load(tr)
}

func (l *Loader) fail(meta core.TraceMeta, err error) {
	if errors.Is(err, context.Canceled) {
		l.logger.Debug("Replay load cancelled", "trace", meta.ID)
		return
	}
	l.logger.Warn("Replay rejected", "trace", meta.ID, "player", meta.PlayerName, "error", err)
	if l.notifier != nil {
		l.notifier.LoadFailed(meta, err)
	}
}

// ColorFor picks a stable palette color for id.
func ColorFor(id core.TraceID) core.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return Palette[h.Sum32()%uint32(len(Palette))]
}
