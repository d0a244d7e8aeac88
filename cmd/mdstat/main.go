// The mdstat command prints the rate of metadata operations
// on a Lustre metadata target by sampling its md_stats file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/ansiterm"
	"github.com/juju/loggo"
	"github.com/spf13/pflag"

	"github.com/rogpeppe/mdstat/mdreport"
	"github.com/rogpeppe/mdstat/mdstats"
	"github.com/rogpeppe/mdstat/monitor"
)

var logger = loggo.GetLogger("mdstat.cmd")

func main() {
	ctx, stop := interruptContext(context.Background())
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// interruptContext returns a context that is cancelled by the first
// interrupt or termination signal. From then on the signals have their
// default behaviour again, so a second interrupt kills the process
// even when it's stuck reading the statistics file.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

// run runs the command with the given arguments and returns
// its exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "mdstat: %v\n", err)
		fs.Usage()
		return 1
	}
	if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
		fmt.Fprintf(stderr, "mdstat: invalid log level %q: %v\n", cfg.LogLevel, err)
		return 1
	}
	logger.Debugf("monitoring %q every %ds (count %d, mode %v)", cfg.Target, cfg.Interval, cfg.Count, cfg.mode())

	schema := mdstats.MDTSchema
	m, err := monitor.New(monitor.Params{
		Source:   &mdstats.FileSource{Root: cfg.Root},
		Target:   cfg.Target,
		Schema:   schema,
		Renderer: mdreport.NewRenderer(ansiterm.NewWriter(stdout), schema, cfg.mode()),
		Interval: time.Duration(cfg.Interval) * time.Second,
		Count:    cfg.Count,
		NoHeader: cfg.NoHeader,
		Retries:  cfg.Retries,
		Notices:  stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "mdstat: %v\n", err)
		fs.Usage()
		return 1
	}
	if err := m.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "mdstat: %v\n", err)
		return 1
	}
	return 0
}
