// Package stats computes aggregate end-time statistics for the replays of a
// map.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/tmdojo/viewer/pkg/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the end race times of a replay set, in milliseconds.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Bin is one histogram bucket covering [Start, Start+Size).
type Bin struct {
	Start float64 `json:"start"`
	Size  float64 `json:"size"`
	Count int     `json:"count"`
}

// FilterFinished keeps the replays that reached the finish line.
func FilterFinished(metas []core.TraceMeta) []core.TraceMeta {
	var out []core.TraceMeta
	for _, m := range metas {
		if m.Finished {
			out = append(out, m)
		}
	}
	return out
}

// FilterPersonal keeps the replays uploaded by webID. An empty webID keeps
// everything.
func FilterPersonal(metas []core.TraceMeta, webID string) []core.TraceMeta {
	if webID == "" {
		return metas
	}
	var out []core.TraceMeta
	for _, m := range metas {
		if m.WebID == webID {
			out = append(out, m)
		}
	}
	return out
}

func endTimes(metas []core.TraceMeta) []float64 {
	x := make([]float64, len(metas))
	for i, m := range metas {
		x[i] = float64(m.EndRaceTime)
	}
	sort.Float64s(x)
	return x
}

// Summarize aggregates the end race times of metas. The zero Summary is
// returned for an empty set.
func Summarize(metas []core.TraceMeta) Summary {
	if len(metas) == 0 {
		return Summary{}
	}
	x := endTimes(metas)
	return Summary{
		Count:  len(x),
		Min:    floats.Min(x),
		Mean:   stat.Mean(x, nil),
		Median: stat.Quantile(0.5, stat.Empirical, x, nil),
		Max:    floats.Max(x),
	}
}

// BinSize picks a histogram bucket width one order of magnitude below the
// spread of end times, never below 1 ms. It returns 0 for an empty set.
func BinSize(metas []core.TraceMeta) float64 {
	if len(metas) == 0 {
		return 0
	}
	x := endTimes(metas)
	spread := floats.Max(x) - floats.Min(x)
	return math.Max(math.Pow(10, math.Floor(math.Log10(spread))-1), 1)
}

// Histogram buckets the end race times of metas into bins of the given size.
// Bins are aligned to multiples of size and empty ones inside the range are
// kept.
func Histogram(metas []core.TraceMeta, size float64) []Bin {
	if len(metas) == 0 || size <= 0 {
		return nil
	}
	x := endTimes(metas)

	start := math.Floor(x[0]/size) * size
	n := int(math.Floor((x[len(x)-1]-start)/size)) + 1
	dividers := make([]float64, n+1)
	floats.Span(dividers, start, start+float64(n)*size)

	counts := stat.Histogram(nil, dividers, x, nil)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Start: start + float64(i)*size, Size: size, Count: int(counts[i])}
	}
	return bins
}

// FastestProgression returns the replays that set a new best end time, in
// upload order.
func FastestProgression(metas []core.TraceMeta) []core.TraceMeta {
	sorted := make([]core.TraceMeta, len(metas))
	copy(sorted, metas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadedAt.Before(sorted[j].UploadedAt)
	})

	var out []core.TraceMeta
	for _, m := range sorted {
		if len(out) == 0 || m.EndRaceTime < out[len(out)-1].EndRaceTime {
			out = append(out, m)
		}
	}
	return out
}

// FormatRaceTime renders a race time in milliseconds as m:ss.mmm.
func FormatRaceTime(raceTime int32) string {
	ms := int64(raceTime)
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%s%d:%02d.%03d", sign, minutes, seconds, millis)
}
