// pkg/core/replay.go
package core

import "time"

// StoredReplay is a replay as kept by a cache backend: its metadata, the
// raw telemetry buffer and what was learned while decoding it.
type StoredReplay struct {
	Meta        TraceMeta `json:"meta"`
	Layout      string    `json:"layout"`
	Data        []byte    `json:"-"`
	SampleCount int       `json:"sampleCount"`
	Bounds      *Box      `json:"bounds,omitempty"`

	// RacingLine is the sample path as WKT, empty when fewer than two
	// samples were decoded.
	RacingLine string    `json:"racingLine,omitempty"`
	CachedAt   time.Time `json:"cachedAt"`
}

// MapBlocks is the decoded block list of one map.
type MapBlocks struct {
	MapUID   string     `json:"mapUid"`
	Blocks   []MapBlock `json:"blocks"`
	CachedAt time.Time  `json:"cachedAt"`
}
