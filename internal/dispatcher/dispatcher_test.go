package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

func (l *testLogger) log(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		cmd     string
		args    []string
		wantErr bool
	}{
		{name: "no args", line: ":PAUSE:", cmd: ":PAUSE:", args: []string{}},
		{name: "one arg", line: ":seek: 1500", cmd: ":SEEK:", args: []string{"1500"}},
		{name: "extra spaces", line: "  :FOLLOW:   run-1  ", cmd: ":FOLLOW:", args: []string{"run-1"}},
		{name: "blank", line: "   ", wantErr: true},
		{name: "unwrapped", line: "PAUSE", wantErr: true},
		{name: "lone colons", line: "::", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, e.Command)
			assert.Equal(t, tt.args, e.Args)
			assert.False(t, e.Timestamp.IsZero())
		})
	}
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":SEEK:", func(e Event) (any, error) {
		got = e
		return "ok", nil
	})

	result, err := d.DispatchLine(":SEEK: 42")
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []string{"42"}, got.Args)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})
	assert.Error(t, err)

	_, err = d.DispatchLine("")
	assert.ErrorIs(t, err, ErrEmptyLine)
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":BUFFERED:", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for range 3 {
		result, err := d.Dispatch(Event{Command: ":BUFFERED:"})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	d.Close()
	assert.Equal(t, int32(3), processed.Load())
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(":FULL:", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))

	_, err := d.Dispatch(Event{Command: ":FULL:"})
	require.NoError(t, err)
	<-started

	_, err = d.Dispatch(Event{Command: ":FULL:"})
	require.NoError(t, err)
	_, err = d.Dispatch(Event{Command: ":FULL:"})
	require.NoError(t, err)

	_, err = d.Dispatch(Event{Command: ":FULL:"})
	assert.Error(t, err)

	close(block)
	d.Close()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
	d.Close()
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":FAIL:", func(e Event) (any, error) {
		return nil, fmt.Errorf("bad argument")
	}, Buffered(4))

	_, err := d.Dispatch(Event{Command: ":FAIL:"})
	require.NoError(t, err)
	d.Close()

	msgs := logger.snapshot()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "bad argument")
}

func TestDispatcher_DispatchAfterClose(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":Q:", func(e Event) (any, error) { return nil, nil }, Buffered(1))

	d.Close()
	d.Close()

	_, err := d.Dispatch(Event{Command: ":Q:"})
	assert.Error(t, err)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(logger.snapshot()), 2)
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":ERROR:"})
	require.Error(t, err)

	hasError := false
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
		}
	}
	assert.True(t, hasError, "expected error log message")
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	noop := func(e Event) (any, error) { return nil, nil }

	d.Register(":SPEED:", noop)
	d.Register(":PAUSE:", noop)

	assert.True(t, d.HasHandler(":PAUSE:"))
	assert.False(t, d.HasHandler(":RESUME:"))
	assert.Equal(t, []string{":PAUSE:", ":SPEED:"}, d.Commands())
}
