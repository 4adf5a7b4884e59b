package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "replay_viewer"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `%s %s (%s)

Usage:
  %s [-config dir] play [-until-end] [-map uid] [replay files or ids...]
  %s [-config dir] inspect [-layout legacy|extended] <file>
  %s [-config dir] stats [-personal webId] <mapUID>
  %s version
`, AppName, CurrentVersion, BuildDate, AppName, AppName, AppName, AppName)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stdout)
	configDir := fs.String("config", ".", "directory containing the config file")
	fs.Usage = func() { usage(stdout) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stdout)
		return errUsage
	}

	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	}

	a, err := newApp(ctx, *configDir, time.Now())
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "play":
		return a.play(ctx, cmdArgs, stdin)
	case "inspect":
		return a.inspect(cmdArgs, stdout)
	case "stats":
		return a.stats(ctx, cmdArgs, stdout)
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}
