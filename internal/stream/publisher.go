// Package stream publishes per-tick render states to a websocket consumer.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/pkg/core"
	"github.com/tmdojo/viewer/pkg/streaming"
)

// Publisher streams session events over WebSocket. Frames are
// fire-and-forget; session start and end wait for a server ack.
type Publisher struct {
	conn      *connection
	cfg       config.StreamConfig
	sessionID string
}

// New creates a publisher for one playback session. It does not connect
// until Init.
func New(cfg config.StreamConfig, sessionID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:      newConnection(cfg.SendBuffer, cfg.ReconnectMin, cfg.ReconnectMax, logger.With("component", "stream")),
		cfg:       cfg,
		sessionID: sessionID,
	}
}

// Init connects to the WebSocket server.
func (p *Publisher) Init() error {
	return p.conn.dial(p.cfg.URL, p.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (p *Publisher) Close() error {
	return p.conn.close()
}

// Dropped returns the number of messages dropped because the send buffer
// was full.
func (p *Publisher) Dropped() uint64 {
	return p.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func (p *Publisher) marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Session: p.sessionID, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (p *Publisher) sendEnvelope(msgType string, payload any) error {
	data, err := p.marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	p.conn.send(data)
	return nil
}

// StartSession announces the session and waits for the server ack. The
// message is replayed after every reconnect.
func (p *Publisher) StartSession(fps int, traces []core.TraceMeta) error {
	data, err := p.marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{FPS: fps, Traces: traces})
	if err != nil {
		return err
	}

	p.conn.mu.Lock()
	p.conn.cachedSessionMsg = data
	p.conn.mu.Unlock()

	return p.conn.sendAndWait(data, streaming.TypeSessionStart, ackTimeout)
}

// EndSession sends session_end and waits for the server ack.
func (p *Publisher) EndSession() error {
	data, err := p.marshalEnvelope(streaming.TypeSessionEnd, nil)
	if err != nil {
		return err
	}
	err = p.conn.sendAndWait(data, streaming.TypeSessionEnd, ackTimeout)

	// Clear cached state regardless of error.
	p.conn.mu.Lock()
	p.conn.cachedSessionMsg = nil
	p.conn.mu.Unlock()

	return err
}

// PublishFrame sends the render states produced by one tick.
func (p *Publisher) PublishFrame(snap playback.Snapshot, states []frame.RenderState) error {
	return p.sendEnvelope(streaming.TypeFrame, streaming.FramePayload{
		Frame:      snap.Frame,
		RaceTimeMs: snap.RaceTimeMs,
		Paused:     snap.State == playback.Paused,
		States:     states,
	})
}

// TraceLoaded announces a trace added to the session.
func (p *Publisher) TraceLoaded(meta core.TraceMeta) error {
	return p.sendEnvelope(streaming.TypeTraceLoaded, meta)
}

// TraceUnloaded announces a trace removed from the session.
func (p *Publisher) TraceUnloaded(id core.TraceID) error {
	return p.sendEnvelope(streaming.TypeTraceUnloaded, streaming.TraceUnloadedPayload{ID: id})
}
