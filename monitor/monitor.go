// Package monitor implements a loop that periodically samples the
// statistics of a metadata target and prints the deltas between samples.
//
// The loop is strictly sequential: one read, one update, one render,
// then a sleep that can be interrupted by cancelling the context.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo"
	"gopkg.in/errgo.v1"
	"gopkg.in/retry.v1"

	"github.com/rogpeppe/mdstat/mdstats"
)

var logger = loggo.GetLogger("mdstat.monitor")

// ErrInvalidConfiguration is the cause of errors returned by New
// when the parameters are not valid.
var ErrInvalidConfiguration = errgo.New("invalid configuration")

// Renderer is used by the monitor to print records.
// It is implemented by *mdreport.Renderer.
type Renderer interface {
	WriteHeader() error
	WriteRecord(rec mdstats.Record) error
}

// Clock is used by the monitor to wait between samples.
// It is implemented by clock.WallClock.
type Clock interface {
	Now() time.Time
	After(time.Duration) <-chan time.Time
}

// Params holds the parameters for a call to New.
type Params struct {
	// Source holds the source of the statistics.
	Source mdstats.Source
	// Target holds the name of the target to monitor.
	Target string
	// Schema holds the counters to monitor.
	// If it's nil, mdstats.MDTSchema is used.
	Schema *mdstats.Schema
	// Renderer is used to print the header and the records.
	// It should have been created with the same schema.
	Renderer Renderer
	// Interval holds the time to wait between samples.
	// It must be positive.
	Interval time.Duration
	// Count holds the number of records to print.
	// If it's zero, the monitor runs until interrupted.
	Count int
	// NoHeader suppresses the header.
	NoHeader bool
	// Retries holds the number of times a failed read is retried
	// before giving up. By default a failed read is fatal.
	Retries int
	// Clock is used to wait between samples and between retries.
	// If it's nil, clock.WallClock will be used.
	Clock Clock
	// Notices receives the message printed when the
	// monitor is interrupted. If it's nil, os.Stderr is used.
	Notices io.Writer
}

// Monitor runs the sampling loop.
type Monitor struct {
	p           Params
	engine      *mdstats.Engine
	state       State
	iteration   int
	rendered    int
	interrupted bool
}

var retryStrategy = retry.Exponential{
	Initial:  100 * time.Millisecond,
	Factor:   1.5,
	MaxDelay: 5 * time.Second,
}

// New returns a new Monitor that will sample according to the
// given parameters once Run is called. Invalid parameters result in an
// error with an ErrInvalidConfiguration cause.
func New(p Params) (*Monitor, error) {
	if p.Interval <= 0 {
		return nil, errgo.WithCausef(nil, ErrInvalidConfiguration, "interval must be greater than 0 (got %v)", p.Interval)
	}
	if p.Count < 0 {
		return nil, errgo.WithCausef(nil, ErrInvalidConfiguration, "count must not be negative (got %d)", p.Count)
	}
	if p.Retries < 0 {
		return nil, errgo.WithCausef(nil, ErrInvalidConfiguration, "retries must not be negative (got %d)", p.Retries)
	}
	if p.Source == nil {
		return nil, errgo.WithCausef(nil, ErrInvalidConfiguration, "no statistics source")
	}
	if p.Renderer == nil {
		return nil, errgo.WithCausef(nil, ErrInvalidConfiguration, "no renderer")
	}
	if err := mdstats.CheckTarget(p.Target); err != nil {
		return nil, errgo.WithCausef(err, ErrInvalidConfiguration, "")
	}
	if p.Schema == nil {
		p.Schema = mdstats.MDTSchema
	}
	if p.Clock == nil {
		p.Clock = clock.WallClock
	}
	if p.Notices == nil {
		p.Notices = os.Stderr
	}
	return &Monitor{
		p:     p,
		state: Init,
	}, nil
}

// State returns the current state of the monitor.
// After Run has returned, it is always Done.
func (m *Monitor) State() State {
	return m.state
}

// Iterations returns the number of records printed so far.
func (m *Monitor) Iterations() int {
	return m.rendered
}

// Interrupted reports whether Run returned because
// its context was cancelled.
func (m *Monitor) Interrupted() bool {
	return m.interrupted
}

// Run runs the sampling loop until the requested number of records
// has been printed, an error occurs or ctx is cancelled.
// Cancellation is not treated as an error: Run prints an acknowledgment
// to the Notices writer and returns nil.
//
// Errors from the source have an mdstats.ErrSourceUnavailable cause;
// malformed counters result in an error with an mdstats.ErrMalformedCounter
// cause and nothing is printed for that sample.
//
// Run may only be called once.
func (m *Monitor) Run(ctx context.Context) error {
	if m.state != Init {
		return errgo.Newf("monitor already run")
	}
	if ctx.Err() != nil {
		return m.interrupt()
	}
	m.engine = mdstats.NewEngine(m.p.Schema)
	if !m.p.NoHeader {
		if err := m.p.Renderer.WriteHeader(); err != nil {
			return m.fail(errgo.Notef(err, "cannot write header"))
		}
	}
	m.iteration = 1
	for {
		m.setState(Waiting)
		if ctx.Err() != nil {
			return m.interrupt()
		}
		m.setState(Sampling)
		snap, err := m.readSnapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return m.interrupt()
			}
			return m.fail(errgo.NoteMask(err, "cannot sample statistics", errgo.Is(mdstats.ErrSourceUnavailable)))
		}
		rec, err := m.engine.Update(snap)
		if err != nil {
			return m.fail(errgo.NoteMask(err, fmt.Sprintf("bad statistics for %q", m.p.Target), errgo.Is(mdstats.ErrMalformedCounter)))
		}
		m.setState(Rendering)
		if err := m.p.Renderer.WriteRecord(rec); err != nil {
			return m.fail(errgo.Notef(err, "cannot write record"))
		}
		m.rendered++
		if m.p.Count > 0 && m.iteration >= m.p.Count {
			m.setState(Done)
			return nil
		}
		m.setState(Sleeping)
		select {
		case <-m.p.Clock.After(m.p.Interval):
		case <-ctx.Done():
			return m.interrupt()
		}
		m.iteration++
	}
}

// readSnapshot reads a snapshot from the source, retrying
// if configured to do so.
func (m *Monitor) readSnapshot(ctx context.Context) (mdstats.Snapshot, error) {
	if m.p.Retries == 0 {
		return m.p.Source.ReadSnapshot(m.p.Target)
	}
	var err error
	strategy := retry.LimitCount(m.p.Retries+1, retryStrategy)
	for a := retry.StartWithCancel(strategy, m.p.Clock, ctx.Done()); a.Next(); {
		var snap mdstats.Snapshot
		snap, err = m.p.Source.ReadSnapshot(m.p.Target)
		if err == nil {
			return snap, nil
		}
		if errgo.Cause(err) != mdstats.ErrSourceUnavailable {
			return nil, err
		}
		if a.More() {
			logger.Warningf("cannot read statistics for %q (attempt %d): %v", m.p.Target, a.Count(), err)
		}
	}
	if err == nil {
		// The attempt was stopped before the first read.
		err = ctx.Err()
	}
	return nil, err
}

func (m *Monitor) interrupt() error {
	m.setState(Interrupted)
	m.interrupted = true
	fmt.Fprintln(m.p.Notices, "Exiting")
	m.setState(Done)
	return nil
}

func (m *Monitor) fail(err error) error {
	m.setState(Done)
	return err
}

func (m *Monitor) setState(s State) {
	logger.Tracef("iteration %d: %v -> %v", m.iteration, m.state, s)
	m.state = s
}
