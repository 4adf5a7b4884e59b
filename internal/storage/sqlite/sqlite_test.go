package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/database"
	"github.com/tmdojo/viewer/internal/storage"
	"github.com/tmdojo/viewer/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Dumper  = (*Backend)(nil)
)

func TestBackend_CloseWritesDump(t *testing.T) {
	ctx := context.Background()
	dumpPath := filepath.Join(t.TempDir(), "replays.db")

	b, err := New(Config{DumpPath: dumpPath}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.PutReplay(ctx, core.StoredReplay{
		Meta: core.TraceMeta{ID: "r1", MapUID: "map-a", UploadedAt: time.Now().UTC()},
		Data: []byte{7, 7},
	}))
	require.NoError(t, b.Close())

	_, err = os.Stat(dumpPath)
	require.NoError(t, err)

	dumped, err := database.OpenSQLite(dumpPath)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dumped.Table("replays").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBackend_DumpLoop(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "periodic.db")

	b, err := New(Config{DumpPath: dumpPath, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBackend_NoDumpPath(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	_, err = b.GetReplay(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Close())
}
