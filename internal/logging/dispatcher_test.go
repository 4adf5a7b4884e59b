package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(dl *DispatcherLogger)
		want  map[string]any
	}{
		{
			level: "DEBUG",
			log:   func(dl *DispatcherLogger) { dl.Debug("handling event", "command", ":SEEK:", "args", 1) },
			want:  map[string]any{"msg": "handling event", "command": ":SEEK:", "args": float64(1)},
		},
		{
			level: "INFO",
			log:   func(dl *DispatcherLogger) { dl.Info("registered", "command", ":PAUSE:") },
			want:  map[string]any{"msg": "registered", "command": ":PAUSE:"},
		},
		{
			level: "ERROR",
			log:   func(dl *DispatcherLogger) { dl.Error("event failed", "error", "bad seek") },
			want:  map[string]any{"msg": "event failed", "error": "bad seek"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			tt.log(NewDispatcherLogger(logger))

			entry := decodeEntry(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
		})
	}
}

func TestDispatcherLogger_NilUsesDefault(t *testing.T) {
	dl := NewDispatcherLogger(nil)
	require.NotNil(t, dl)
	assert.Equal(t, slog.Default(), dl.logger)
}
