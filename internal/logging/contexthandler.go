package logging

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// PlaybackContext publishes the playback position to log records. The tick
// goroutine calls Update; any goroutine may log concurrently.
type PlaybackContext struct {
	sessionID  string
	raceTimeMs atomic.Uint64
	frame      atomic.Uint64
	traces     atomic.Int64
}

// NewPlaybackContext creates a context for the given session.
func NewPlaybackContext(sessionID string) *PlaybackContext {
	return &PlaybackContext{sessionID: sessionID}
}

// Update records the state after a tick.
func (c *PlaybackContext) Update(raceTimeMs float64, frame uint64, traces int) {
	c.raceTimeMs.Store(math.Float64bits(raceTimeMs))
	c.frame.Store(frame)
	c.traces.Store(int64(traces))
}

// Attrs returns the current attributes. It satisfies ContextProvider.
func (c *PlaybackContext) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("session", c.sessionID),
		slog.Float64("raceTimeMs", math.Float64frombits(c.raceTimeMs.Load())),
		slog.Uint64("frame", c.frame.Load()),
		slog.Int64("traces", c.traces.Load()),
	}
}
