package streaming

import (
	"encoding/json"

	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeSessionStart  = "session_start"
	TypeSessionEnd    = "session_end"
	TypeFrame         = "frame"
	TypeTraceLoaded   = "trace_loaded"
	TypeTraceUnloaded = "trace_unloaded"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionStartPayload announces a playback session and its loaded traces.
type SessionStartPayload struct {
	FPS    int              `json:"fps"`
	Traces []core.TraceMeta `json:"traces"`
}

// FramePayload carries the render states of one tick.
type FramePayload struct {
	Frame      uint64              `json:"frame"`
	RaceTimeMs float64             `json:"raceTimeMs"`
	Paused     bool                `json:"paused"`
	States     []frame.RenderState `json:"states"`
}

// TraceUnloadedPayload names a trace removed from the session.
type TraceUnloadedPayload struct {
	ID core.TraceID `json:"id"`
}
