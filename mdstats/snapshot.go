package mdstats

import (
	"bufio"
	"io"
	"strings"

	"gopkg.in/errgo.v1"
)

// ErrSourceUnavailable is the cause of errors returned when
// a snapshot cannot be read from its source.
var ErrSourceUnavailable = errgo.New("statistics source unavailable")

// Snapshot holds one reading of the counters of a target,
// mapping counter name to its raw value as found in the source.
// The set of names is not guaranteed to match any Schema.
type Snapshot map[string]string

// Source represents a provider of snapshots.
type Source interface {
	// ReadSnapshot returns the current counters of the given target.
	// An error with an ErrSourceUnavailable cause is returned
	// when the target cannot be read.
	ReadSnapshot(target string) (Snapshot, error)
}

// ParseSnapshot reads a snapshot in md_stats format from r. Each
// line holds a counter name followed by its value; any further fields
// (sample counts, units) are ignored, as are lines with fewer than
// two fields. For example:
//
//	snapshot_time             1409777887.590578 secs.usecs
//	open                      2 samples [reqs]
//	getattr                   3 samples [reqs]
func ParseSnapshot(r io.Reader) (Snapshot, error) {
	snap := make(Snapshot)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		snap[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, errgo.Notef(err, "cannot read snapshot")
	}
	return snap, nil
}

// NewMemSource returns a Source that returns each of
// the given snapshots in turn, regardless of the target.
// When the snapshots are exhausted, ReadSnapshot returns
// an ErrSourceUnavailable error.
func NewMemSource(snaps ...Snapshot) *MemSource {
	return &MemSource{
		snaps: snaps,
	}
}

// MemSource is a Source that holds its snapshots in memory.
type MemSource struct {
	snaps []Snapshot
	// Reads holds the number of ReadSnapshot calls made so far.
	Reads int
}

func (src *MemSource) ReadSnapshot(target string) (Snapshot, error) {
	src.Reads++
	if len(src.snaps) == 0 {
		return nil, errgo.WithCausef(nil, ErrSourceUnavailable, "no more snapshots for %q", target)
	}
	s := src.snaps[0]
	src.snaps = src.snaps[1:]
	return s, nil
}
