// Package mdstats reads the metadata statistics exported by a Lustre
// metadata target and computes deltas between successive readings.
package mdstats

import (
	"gopkg.in/errgo.v1"
)

// ErrInvalidSchema is the cause of errors returned by NewSchema.
var ErrInvalidSchema = errgo.New("invalid counter schema")

// Counter describes one entry of a Schema.
type Counter struct {
	Name string
	// Timestamp reports whether the entry holds a point-in-time
	// value rather than a cumulative counter. Timestamp values
	// are reported verbatim and never diffed.
	Timestamp bool
}

// Schema holds the ordered set of counters that are recognized
// in a snapshot. A Schema is immutable once created.
type Schema struct {
	counters []Counter
	index    map[string]int
}

// MDTSchema holds the counters exported by a Lustre MDT in
// its md_stats file, in the order they're displayed.
var MDTSchema = mustNewSchema(
	Counter{Name: "snapshot_time", Timestamp: true},
	Counter{Name: "open"},
	Counter{Name: "close"},
	Counter{Name: "mknod"},
	Counter{Name: "link"},
	Counter{Name: "unlink"},
	Counter{Name: "mkdir"},
	Counter{Name: "rmdir"},
	Counter{Name: "rename"},
	Counter{Name: "getattr"},
	Counter{Name: "setattr"},
	Counter{Name: "getxattr"},
	Counter{Name: "setxattr"},
	Counter{Name: "statfs"},
	Counter{Name: "sync"},
	Counter{Name: "samedir_rename"},
)

// NewSchema returns a schema holding the given counters.
// Exactly one of the counters must be a timestamp and
// all names must be unique and non-empty.
func NewSchema(counters ...Counter) (*Schema, error) {
	s := &Schema{
		counters: append([]Counter(nil), counters...),
		index:    make(map[string]int),
	}
	timestamps := 0
	for i, c := range s.counters {
		if c.Name == "" {
			return nil, errgo.WithCausef(nil, ErrInvalidSchema, "counter %d has no name", i)
		}
		if _, ok := s.index[c.Name]; ok {
			return nil, errgo.WithCausef(nil, ErrInvalidSchema, "duplicate counter %q", c.Name)
		}
		s.index[c.Name] = i
		if c.Timestamp {
			timestamps++
		}
	}
	if timestamps != 1 {
		return nil, errgo.WithCausef(nil, ErrInvalidSchema, "schema has %d timestamp entries, want exactly one", timestamps)
	}
	return s, nil
}

func mustNewSchema(counters ...Counter) *Schema {
	s, err := NewSchema(counters...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of counters in the schema.
func (s *Schema) Len() int {
	return len(s.counters)
}

// Counters returns the schema entries in order.
// The caller must not modify the returned slice.
func (s *Schema) Counters() []Counter {
	return s.counters
}

// Names returns the counter names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.counters))
	for i, c := range s.counters {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named counter
// in the schema, or -1 if there is none.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// IsTimestamp reports whether the named counter is
// the schema's timestamp entry.
func (s *Schema) IsTimestamp(name string) bool {
	i := s.Index(name)
	return i >= 0 && s.counters[i].Timestamp
}
