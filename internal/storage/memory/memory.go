// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/storage"
	"github.com/tmdojo/viewer/pkg/core"
)

// Backend keeps cached replays in memory. With a positive MaxEntries the
// oldest inserted replays are evicted first.
type Backend struct {
	cfg config.MemoryConfig

	replays map[core.TraceID]core.StoredReplay
	order   []core.TraceID
	blocks  map[string]core.MapBlocks

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		replays: make(map[core.TraceID]core.StoredReplay),
		blocks:  make(map[string]core.MapBlocks),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// PutReplay stores r, replacing an existing entry with the same id.
func (b *Backend) PutReplay(ctx context.Context, r core.StoredReplay) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := r.Meta.ID
	if _, ok := b.replays[id]; ok {
		b.order = slices.DeleteFunc(b.order, func(o core.TraceID) bool { return o == id })
	}
	r.Data = slices.Clone(r.Data)
	b.replays[id] = r
	b.order = append(b.order, id)

	for b.cfg.MaxEntries > 0 && len(b.order) > b.cfg.MaxEntries {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.replays, oldest)
	}
	return nil
}

// GetReplay returns the cached replay with the given id.
func (b *Backend) GetReplay(ctx context.Context, id core.TraceID) (core.StoredReplay, error) {
	if err := ctx.Err(); err != nil {
		return core.StoredReplay{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.replays[id]
	if !ok {
		return core.StoredReplay{}, fmt.Errorf("replay %q: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

// ListReplays returns the metadata of cached replays of mapUID, newest
// upload first. An empty mapUID lists every replay.
func (b *Backend) ListReplays(ctx context.Context, mapUID string) ([]core.TraceMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []core.TraceMeta
	for _, r := range b.replays {
		if mapUID == "" || r.Meta.MapUID == mapUID {
			out = append(out, r.Meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// DeleteReplay removes a cached replay. Deleting a missing id is not an
// error.
func (b *Backend) DeleteReplay(ctx context.Context, id core.TraceID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.replays, id)
	b.order = slices.DeleteFunc(b.order, func(o core.TraceID) bool { return o == id })
	return nil
}

// PutMapBlocks stores the block list of a map.
func (b *Backend) PutMapBlocks(ctx context.Context, blocks core.MapBlocks) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	blocks.Blocks = slices.Clone(blocks.Blocks)
	b.blocks[blocks.MapUID] = blocks
	return nil
}

// GetMapBlocks returns the cached block list of a map.
func (b *Backend) GetMapBlocks(ctx context.Context, mapUID string) (core.MapBlocks, error) {
	if err := ctx.Err(); err != nil {
		return core.MapBlocks{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	blocks, ok := b.blocks[mapUID]
	if !ok {
		return core.MapBlocks{}, fmt.Errorf("blocks of map %q: %w", mapUID, storage.ErrNotFound)
	}
	return blocks, nil
}

// Len returns the number of cached replays.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.replays)
}
