// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/tmdojo/viewer/internal/model"
	"github.com/tmdojo/viewer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// CoreToReplay converts a core.StoredReplay to a GORM model.Replay.
func CoreToReplay(r core.StoredReplay) (model.Replay, error) {
	m := model.Replay{
		ID:          string(r.Meta.ID),
		MapUID:      r.Meta.MapUID,
		PlayerName:  r.Meta.PlayerName,
		WebID:       r.Meta.WebID,
		Color:       datatypes.NewJSONType(model.ReplayColor(r.Meta.Color)),
		Finished:    r.Meta.Finished,
		EndRaceTime: r.Meta.EndRaceTime,
		UploadedAt:  r.Meta.UploadedAt,
		ObjectPath:  r.Meta.ObjectPath,
		Layout:      r.Layout,
		SampleCount: r.SampleCount,
		CachedAt:    r.CachedAt,
		Blob: model.ReplayBlob{
			ReplayID: string(r.Meta.ID),
			Data:     r.Data,
		},
	}

	if r.Bounds != nil {
		b, err := json.Marshal(r.Bounds)
		if err != nil {
			return model.Replay{}, fmt.Errorf("marshal bounds: %w", err)
		}
		m.Bounds = datatypes.JSON(b)
	}

	if r.RacingLine != "" {
		g, err := geom.UnmarshalWKT(r.RacingLine)
		if err != nil {
			return model.Replay{}, fmt.Errorf("parse racing line: %w", err)
		}
		ls, ok := g.AsLineString()
		if !ok {
			return model.Replay{}, fmt.Errorf("racing line is %s, not a LineString", g.Type())
		}
		m.RacingLine = ls
	}

	return m, nil
}

// ReplayToCore converts a GORM model.Replay back to a core.StoredReplay.
// The blob must have been preloaded for Data to be set.
func ReplayToCore(m model.Replay) (core.StoredReplay, error) {
	r := core.StoredReplay{
		Meta:        ReplayToMeta(m),
		Layout:      m.Layout,
		Data:        m.Blob.Data,
		SampleCount: m.SampleCount,
		CachedAt:    m.CachedAt,
	}

	if len(m.Bounds) > 0 && string(m.Bounds) != "null" {
		var box core.Box
		if err := json.Unmarshal(m.Bounds, &box); err != nil {
			return core.StoredReplay{}, fmt.Errorf("unmarshal bounds: %w", err)
		}
		r.Bounds = &box
	}

	if !m.RacingLine.IsEmpty() {
		r.RacingLine = m.RacingLine.AsText()
	}

	return r, nil
}

// ReplayToMeta extracts the metadata of a GORM model.Replay.
func ReplayToMeta(m model.Replay) core.TraceMeta {
	return core.TraceMeta{
		ID:          core.TraceID(m.ID),
		MapUID:      m.MapUID,
		PlayerName:  m.PlayerName,
		WebID:       m.WebID,
		Color:       core.Color(m.Color.Data()),
		Finished:    m.Finished,
		EndRaceTime: m.EndRaceTime,
		UploadedAt:  m.UploadedAt,
		ObjectPath:  m.ObjectPath,
	}
}

// CoreToMapBlocks converts a core.MapBlocks to a GORM model.MapBlocks.
func CoreToMapBlocks(b core.MapBlocks) model.MapBlocks {
	blocks := make(datatypes.JSONSlice[model.MapBlock], len(b.Blocks))
	for i, blk := range b.Blocks {
		blocks[i] = model.MapBlock{
			Name:     blk.Name,
			Position: [3]float64(blk.Position),
			Rotation: [3]float64(blk.Rotation),
		}
	}
	return model.MapBlocks{
		MapUID:   b.MapUID,
		Blocks:   blocks,
		CachedAt: b.CachedAt,
	}
}

// MapBlocksToCore converts a GORM model.MapBlocks to a core.MapBlocks.
func MapBlocksToCore(m model.MapBlocks) core.MapBlocks {
	blocks := make([]core.MapBlock, len(m.Blocks))
	for i, blk := range m.Blocks {
		blocks[i] = core.MapBlock{
			Name:     blk.Name,
			Position: blk.Position,
			Rotation: blk.Rotation,
		}
	}
	return core.MapBlocks{
		MapUID:   m.MapUID,
		Blocks:   blocks,
		CachedAt: m.CachedAt,
	}
}
