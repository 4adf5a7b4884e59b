package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/model"
)

func TestOpenSQLite_FileAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&model.Replay{}))
	assert.True(t, db.Migrator().HasTable(&model.ReplayBlob{}))
	assert.True(t, db.Migrator().HasTable(&model.MapBlocks{}))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Replay{
		ID:   "r1",
		Blob: model.ReplayBlob{Data: []byte{1, 2}},
	}).Error)

	out := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, DumpMemoryDBToDisk(db, out))

	dumped, err := OpenSQLite(out)
	require.NoError(t, err)
	var blob model.ReplayBlob
	require.NoError(t, dumped.First(&blob, "replay_id = ?", "r1").Error)
	assert.Equal(t, []byte{1, 2}, blob.Data)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	err := DumpMemoryDBToDisk(nil, "")
	require.Error(t, err)
}
