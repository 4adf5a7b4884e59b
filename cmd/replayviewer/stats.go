package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tmdojo/viewer/internal/stats"
	"github.com/tmdojo/viewer/pkg/core"
)

const histogramWidth = 40

// stats prints the race time distribution of a map.
func (a *app) stats(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	webID := fs.String("personal", "", "only count replays of this player webId")
	binSize := fs.Float64("bin", 0, "histogram bin size in ms (0 picks one)")
	cached := fs.Bool("cached", false, "read metadata from the local replay cache instead of the API")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("stats needs a map uid: %w", errUsage)
	}
	mapUID := fs.Arg(0)

	var (
		metas []core.TraceMeta
		err   error
	)
	if *cached {
		metas, err = a.storage.ListReplays(ctx, mapUID)
	} else {
		metas, err = a.client.ListReplays(ctx, mapUID)
	}
	if err != nil {
		return fmt.Errorf("list replays of %s: %w", mapUID, err)
	}

	finished := stats.FilterPersonal(stats.FilterFinished(metas), *webID)
	if len(finished) == 0 {
		fmt.Fprintf(stdout, "%s: no finished replays out of %d\n", mapUID, len(metas))
		return nil
	}
	printStats(stdout, mapUID, len(metas), finished, *binSize)
	return nil
}

func printStats(w io.Writer, mapUID string, total int, finished []core.TraceMeta, size float64) {
	sum := stats.Summarize(finished)
	fmt.Fprintf(w, "%s: %d finished of %d replays\n", mapUID, sum.Count, total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "min\tmean\tmedian\tmax")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		stats.FormatRaceTime(int32(sum.Min)),
		stats.FormatRaceTime(int32(sum.Mean)),
		stats.FormatRaceTime(int32(sum.Median)),
		stats.FormatRaceTime(int32(sum.Max)))
	_ = tw.Flush()

	if size <= 0 {
		size = stats.BinSize(finished)
	}
	bins := stats.Histogram(finished, size)
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}
	fmt.Fprintln(w)
	for _, b := range bins {
		bar := 0
		if peak > 0 {
			bar = b.Count * histogramWidth / peak
		}
		fmt.Fprintf(w, "%10s %4d %s\n", stats.FormatRaceTime(int32(b.Start)), b.Count, strings.Repeat("#", bar))
	}

	fmt.Fprintln(w, "\nprogression:")
	for _, m := range stats.FastestProgression(finished) {
		fmt.Fprintf(w, "  %s  %s  %s\n", m.UploadedAt.Format("2006-01-02"), stats.FormatRaceTime(m.EndRaceTime), m.PlayerName)
	}
}
