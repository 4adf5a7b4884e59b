package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/config"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "tmdojo",
		Bucket:   "playback",
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, "", nil)

	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnect_UnreachableNoBackup(t *testing.T) {
	m := NewManager(unreachable(), "", nil)

	require.Error(t, m.Connect(context.Background()))
	assert.False(t, m.Valid())
}

func TestWriteTick_Backup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(unreachable(), path, nil)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.Valid())

	require.NoError(t, m.WriteTick(Tick{
		SessionID:  "s1",
		Frame:      12,
		RaceTimeMs: 200,
		DeltaMs:    16.6,
		Traces:     2,
		Duration:   150 * time.Microsecond,
	}))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := strings.TrimSpace(string(raw))
	assert.True(t, strings.HasPrefix(line, MeasurementTick+",session=s1 "), line)
	assert.Contains(t, line, "frame=12i")
	assert.Contains(t, line, "traces=2i")
	assert.Contains(t, line, "tick_us=150i")
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(unreachable(), "", nil)

	require.Error(t, m.WriteTick(Tick{}))
}

func TestTickPoint(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	p := TickPoint(Tick{SessionID: "s", Frame: 3, Paused: true, At: at})

	assert.Equal(t, MeasurementTick, p.Name())
	assert.Equal(t, at, p.Time())

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(3), fields["frame"])
	assert.Equal(t, true, fields["paused"])
}
