package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/frame"
	"github.com/tmdojo/viewer/internal/playback"
	"github.com/tmdojo/viewer/pkg/core"
	"github.com/tmdojo/viewer/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks session_start/session_end.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeSessionStart || env.Type == streaming.TypeSessionEnd {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newPublisher(t *testing.T, srv *httptest.Server) *Publisher {
	t.Helper()
	p := New(config.StreamConfig{URL: wsURL(srv), Secret: "s3cret"}, "session-1", nil)
	require.NoError(t, p.Init())
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	p := newPublisher(t, srv)

	require.NoError(t, p.StartSession(60, []core.TraceMeta{{ID: "r1", PlayerName: "a"}}))
	require.NoError(t, p.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeSessionStart, msgs[0].Type)
	assert.Equal(t, "session-1", msgs[0].Session)
	assert.Equal(t, streaming.TypeSessionEnd, msgs[len(msgs)-1].Type)

	var start streaming.SessionStartPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, 60, start.FPS)
	require.Len(t, start.Traces, 1)
	assert.Equal(t, core.TraceID("r1"), start.Traces[0].ID)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	p := newPublisher(t, srv)
	require.NoError(t, p.StartSession(30, nil))

	snap := playback.Snapshot{Frame: 7, RaceTimeMs: 1234.5, State: playback.Paused}
	states := []frame.RenderState{{TraceID: "r1", RaceTimeMs: 1234.5, Scale: 0.01}}
	require.NoError(t, p.PublishFrame(snap, states))
	require.NoError(t, p.TraceLoaded(core.TraceMeta{ID: "r2"}))
	require.NoError(t, p.TraceUnloaded("r2"))
	require.NoError(t, p.EndSession())

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	types := make(map[string]int)
	var framePayload streaming.FramePayload
	for _, m := range ml.all() {
		types[m.Type]++
		if m.Type == streaming.TypeFrame {
			require.NoError(t, json.Unmarshal(m.Payload, &framePayload))
		}
	}

	assert.Equal(t, 1, types[streaming.TypeSessionStart])
	assert.Equal(t, 1, types[streaming.TypeFrame])
	assert.Equal(t, 1, types[streaming.TypeTraceLoaded])
	assert.Equal(t, 1, types[streaming.TypeTraceUnloaded])
	assert.Equal(t, 1, types[streaming.TypeSessionEnd])

	assert.Equal(t, uint64(7), framePayload.Frame)
	assert.True(t, framePayload.Paused)
	require.Len(t, framePayload.States, 1)
	assert.Equal(t, core.TraceID("r1"), framePayload.States[0].TraceID)
}

func TestInit_DialFailure(t *testing.T) {
	p := New(config.StreamConfig{URL: "ws://127.0.0.1:1/none"}, "s", nil)
	require.Error(t, p.Init())
	require.NoError(t, p.Close())
}

func TestSend_DropsWhenBufferFull(t *testing.T) {
	// Not dialed: nothing drains the buffer.
	p := New(config.StreamConfig{SendBuffer: 1}, "s", nil)

	require.NoError(t, p.TraceUnloaded("a"))
	require.NoError(t, p.TraceUnloaded("b"))
	require.NoError(t, p.TraceUnloaded("c"))

	assert.Equal(t, uint64(2), p.Dropped())
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	p := New(config.StreamConfig{URL: wsURL(srv)}, "s", nil)
	require.NoError(t, p.Init())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestNewConnection_Defaults(t *testing.T) {
	c := newConnection(0, 0, 0, nil)

	assert.Equal(t, defaultSendBuffer, cap(c.sendCh))
	assert.Equal(t, defaultReconnectMin, c.reconnectMin)
	assert.Equal(t, defaultReconnectMax, c.reconnectMax)
}
