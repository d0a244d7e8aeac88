package mdstats

import (
	"path"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/errgo.v1"
)

// DefaultRoot holds the directory under which Lustre exports
// one directory per metadata target (Lustre 2.5 and later).
const DefaultRoot = "/proc/fs/lustre/mdt"

// DefaultTarget holds the target monitored when none is specified.
const DefaultTarget = "scratch-MDT0000"

// statsFile holds the name of the statistics file within a target directory.
const statsFile = "md_stats"

// ErrInvalidTarget is the cause of errors returned by CheckTarget.
var ErrInvalidTarget = errgo.New("invalid target")

// CheckTarget checks that target can name a directory under the
// statistics root. Targets are usually of the form <fsname>-MDT<index>
// but that isn't enforced.
func CheckTarget(target string) error {
	switch {
	case target == "":
		return errgo.WithCausef(nil, ErrInvalidTarget, "empty target name")
	case target == "." || target == "..":
		return errgo.WithCausef(nil, ErrInvalidTarget, "invalid target name %q", target)
	case strings.ContainsAny(target, `/\`):
		return errgo.WithCausef(nil, ErrInvalidTarget, "target name %q contains a path separator", target)
	}
	return nil
}

// FileSource is a Source that reads md_stats files.
type FileSource struct {
	// Fs holds the filesystem to read from.
	// If it's nil, the OS filesystem is used.
	Fs afero.Fs
	// Root holds the directory holding the target directories.
	// If it's empty, DefaultRoot is used.
	Root string
}

// Path returns the path of the statistics file for the given target.
func (src *FileSource) Path(target string) string {
	root := src.Root
	if root == "" {
		root = DefaultRoot
	}
	return path.Join(root, target, statsFile)
}

// ReadSnapshot implements Source.ReadSnapshot by reading
// the md_stats file of the target.
//
// Note that there is no timeout on the read.
func (src *FileSource) ReadSnapshot(target string) (Snapshot, error) {
	if err := CheckTarget(target); err != nil {
		return nil, errgo.WithCausef(err, ErrSourceUnavailable, "")
	}
	fs := src.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	p := src.Path(target)
	f, err := fs.Open(p)
	if err != nil {
		return nil, errgo.WithCausef(err, ErrSourceUnavailable, "cannot open statistics")
	}
	defer f.Close()
	snap, err := ParseSnapshot(f)
	if err != nil {
		return nil, errgo.WithCausef(err, ErrSourceUnavailable, "cannot read %q", p)
	}
	logger.Tracef("read %d counters from %q", len(snap), p)
	return snap, nil
}
