// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/tmdojo/viewer/pkg/core"
)

// ErrNotFound is returned when a replay or block list is not cached.
var ErrNotFound = errors.New("not found in storage")

// Backend is the interface all replay cache implementations must satisfy.
// Implementations are safe for concurrent use.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Replays
	PutReplay(ctx context.Context, r core.StoredReplay) error
	GetReplay(ctx context.Context, id core.TraceID) (core.StoredReplay, error)
	ListReplays(ctx context.Context, mapUID string) ([]core.TraceMeta, error)
	DeleteReplay(ctx context.Context, id core.TraceID) error

	// Map geometry
	PutMapBlocks(ctx context.Context, b core.MapBlocks) error
	GetMapBlocks(ctx context.Context, mapUID string) (core.MapBlocks, error)
}

// Dumper is an optional interface for backends that can persist a snapshot
// of their contents to disk.
type Dumper interface {
	Dump(path string) error
}
