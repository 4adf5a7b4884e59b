// Package gormstorage implements storage.Backend on top of a gorm database.
// It serves both the Postgres and SQLite backends.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmdojo/viewer/internal/database"
	"github.com/tmdojo/viewer/internal/model"
	"github.com/tmdojo/viewer/internal/model/convert"
	"github.com/tmdojo/viewer/internal/storage"
	"github.com/tmdojo/viewer/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend caches replays in a relational database through gorm.
type Backend struct {
	db *gorm.DB
}

// New creates a gorm backend on an open database. Init migrates the schema.
func New(db *gorm.DB) *Backend {
	return &Backend{db: db}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the cache schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gorm backend: no database")
	}
	return database.Migrate(b.db)
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PutReplay inserts or replaces a cached replay and its blob.
func (b *Backend) PutReplay(ctx context.Context, r core.StoredReplay) error {
	m, err := convert.CoreToReplay(r)
	if err != nil {
		return fmt.Errorf("replay %q: %w", r.Meta.ID, err)
	}
	blob := m.Blob

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Blob").Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
			return fmt.Errorf("upsert replay %q: %w", r.Meta.ID, err)
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&blob).Error; err != nil {
			return fmt.Errorf("upsert blob %q: %w", r.Meta.ID, err)
		}
		return nil
	})
}

// GetReplay returns a cached replay with its raw buffer.
func (b *Backend) GetReplay(ctx context.Context, id core.TraceID) (core.StoredReplay, error) {
	m, err := model.FindReplay(b.db.WithContext(ctx), string(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.StoredReplay{}, fmt.Errorf("replay %q: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.StoredReplay{}, fmt.Errorf("replay %q: %w", id, err)
	}
	return convert.ReplayToCore(m)
}

// ListReplays returns metadata of the cached replays of mapUID, newest upload
// first. Blobs are not loaded. An empty mapUID lists every replay.
func (b *Backend) ListReplays(ctx context.Context, mapUID string) ([]core.TraceMeta, error) {
	q := b.db.WithContext(ctx).Model(&model.Replay{}).Order("uploaded_at DESC")
	if mapUID != "" {
		q = q.Where("map_uid = ?", mapUID)
	}

	var rows []model.Replay
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list replays: %w", err)
	}

	metas := make([]core.TraceMeta, len(rows))
	for i, row := range rows {
		metas[i] = convert.ReplayToMeta(row)
	}
	return metas, nil
}

// DeleteReplay removes a cached replay and its blob.
func (b *Backend) DeleteReplay(ctx context.Context, id core.TraceID) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("replay_id = ?", string(id)).Delete(&model.ReplayBlob{}).Error; err != nil {
			return fmt.Errorf("delete blob %q: %w", id, err)
		}
		if err := tx.Where("id = ?", string(id)).Delete(&model.Replay{}).Error; err != nil {
			return fmt.Errorf("delete replay %q: %w", id, err)
		}
		return nil
	})
}

// PutMapBlocks inserts or replaces the block list of a map.
func (b *Backend) PutMapBlocks(ctx context.Context, blocks core.MapBlocks) error {
	m := convert.CoreToMapBlocks(blocks)
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert blocks of map %q: %w", blocks.MapUID, err)
	}
	return nil
}

// GetMapBlocks returns the cached block list of a map.
func (b *Backend) GetMapBlocks(ctx context.Context, mapUID string) (core.MapBlocks, error) {
	var m model.MapBlocks
	err := b.db.WithContext(ctx).Where("map_uid = ?", mapUID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.MapBlocks{}, fmt.Errorf("blocks of map %q: %w", mapUID, storage.ErrNotFound)
	}
	if err != nil {
		return core.MapBlocks{}, fmt.Errorf("blocks of map %q: %w", mapUID, err)
	}
	return convert.MapBlocksToCore(m), nil
}
