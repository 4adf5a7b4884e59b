package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/geo"
	"github.com/tmdojo/viewer/internal/stats"
	"github.com/tmdojo/viewer/internal/telemetry"
	"github.com/tmdojo/viewer/pkg/core"
)

// inspect decodes one replay file and prints what the decoder found.
func (a *app) inspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	layoutFlag := fs.String("layout", "", "override decoder.layout (legacy or extended)")
	wkt := fs.Bool("wkt", false, "print the racing line as WKT")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect needs exactly one file: %w", errUsage)
	}
	path := fs.Arg(0)

	decoderCfg, err := config.GetDecoderConfig()
	if err != nil {
		return err
	}
	if *layoutFlag != "" {
		if decoderCfg.Layout, err = telemetry.ParseLayout(*layoutFlag); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	opts := append(decoderCfg.Options(), telemetry.WithLogger(a.slogManager.Component("decoder")))
	tr, err := telemetry.Decode(data, opts...)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	tr.Meta.ID = core.TraceID(path)

	printTrace(stdout, tr, decoderCfg.Layout, len(data))
	if *wkt {
		fmt.Fprintln(stdout, geo.RacingLineWKT(tr))
	}
	return nil
}

func printTrace(w io.Writer, tr *core.Trace, layout telemetry.Layout, size int) {
	fmt.Fprintf(w, "file:      %s\n", tr.Meta.ID)
	fmt.Fprintf(w, "layout:    %s (%d bytes, stride %d)\n", layout, size, layout.Stride())
	fmt.Fprintf(w, "samples:   %d\n", tr.Len())
	fmt.Fprintf(w, "race time: %s\n", stats.FormatRaceTime(tr.EndTimeMs()))
	if tr.DidNotFinish() {
		p := *tr.DNFPosition
		fmt.Fprintf(w, "finished:  no, last position %.1f %.1f %.1f\n", p[0], p[1], p[2])
	} else {
		fmt.Fprintln(w, "finished:  yes")
	}
	if tr.Bounds != nil {
		b := tr.Bounds
		fmt.Fprintf(w, "bounds:    [%.1f %.1f %.1f] - [%.1f %.1f %.1f]\n",
			b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
	}
	changes := geo.GearChanges(tr)
	fmt.Fprintf(w, "gears:     %d changes\n", len(changes))
	for _, c := range changes {
		fmt.Fprintf(w, "  %s  %d -> %d\n", stats.FormatRaceTime(c.TimeMs), c.From, c.To)
	}
}
