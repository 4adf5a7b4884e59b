package geo

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tmdojo/viewer/pkg/core"
)

// RacingLine builds an XYZ line string through every sample position.
func RacingLine(tr *core.Trace) (geom.LineString, error) {
	if tr.Len() < 2 {
		return geom.LineString{}, fmt.Errorf("racing line needs at least 2 samples, got %d", tr.Len())
	}

	flatCoords := make([]float64, 0, tr.Len()*3)
	for i := range tr.Samples {
		p := tr.Samples[i].Position
		flatCoords = append(flatCoords, p[0], p[1], p[2])
	}

	seq := geom.NewSequence(flatCoords, geom.DimXYZ)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("racing line: %w", err)
	}
	return ls, nil
}

// RacingLineWKT returns the racing line as well known text, or an empty
// string when the trace is too short to form a line.
func RacingLineWKT(tr *core.Trace) string {
	ls, err := RacingLine(tr)
	if err != nil {
		return ""
	}
	return ls.AsText()
}

// GearChange marks a sample where the gear differs from the previous one.
type GearChange struct {
	TimeMs   int32
	Position mgl64.Vec3
	From     int32
	To       int32
}

// GearChanges lists every gear change along the trace.
func GearChanges(tr *core.Trace) []GearChange {
	var out []GearChange
	for i := 1; i < tr.Len(); i++ {
		prev, cur := &tr.Samples[i-1], &tr.Samples[i]
		if prev.Gear == cur.Gear {
			continue
		}
		out = append(out, GearChange{
			TimeMs:   cur.TimeMs,
			Position: cur.Position,
			From:     prev.Gear,
			To:       cur.Gear,
		})
	}
	return out
}

// GearChangePoints returns gear change positions as an XYZ multipoint.
func GearChangePoints(changes []GearChange) (geom.MultiPoint, error) {
	points := make([]geom.Point, len(changes))
	for i, c := range changes {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: c.Position[0], Y: c.Position[1]},
			Z:    c.Position[2],
			Type: geom.DimXYZ,
		})
		if err != nil {
			return geom.MultiPoint{}, fmt.Errorf("gear change at %dms: %w", c.TimeMs, err)
		}
		points[i] = pt
	}
	return geom.NewMultiPoint(points), nil
}
