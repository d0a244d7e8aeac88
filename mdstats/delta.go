package mdstats

import (
	"strconv"

	"gopkg.in/errgo.v1"
)

// ErrMalformedCounter is the cause of errors returned by Engine.Update
// when a counter value isn't a valid integer.
var ErrMalformedCounter = errgo.New("malformed counter value")

// Field holds one entry of a Record.
type Field struct {
	Name string
	// Timestamp reports whether this is the schema's timestamp entry.
	Timestamp bool
	// Delta holds the difference between the counter's value and
	// its value in the previous snapshot. It is zero for the
	// timestamp entry.
	//
	// Counters are unsigned 64-bit values and the difference is
	// taken modulo 2^64, so Delta is exact whenever the change
	// between two snapshots fits in an int64.
	Delta int64
	// Raw holds the value of the timestamp entry as read from
	// the snapshot. It is empty for ordinary counters.
	Raw string
}

// Value returns the field's value as it should be displayed.
func (f Field) Value() string {
	if f.Timestamp {
		return f.Raw
	}
	return strconv.FormatInt(f.Delta, 10)
}

// Record holds the result of one call to Engine.Update,
// with one field for each schema entry, in schema order.
type Record []Field

// Lookup returns the field with the given name.
func (r Record) Lookup(name string) (Field, bool) {
	for _, f := range r {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values returns the display values of all the fields, in order.
func (r Record) Values() []string {
	vals := make([]string, len(r))
	for i, f := range r {
		vals[i] = f.Value()
	}
	return vals
}

// Engine computes deltas between successive snapshots.
// It is not safe to call its methods concurrently.
type Engine struct {
	schema *Schema
	// prev holds the most recent value of each ordinary
	// counter, indexed by schema position.
	prev []uint64
	// prevTime holds the most recent raw timestamp value.
	prevTime string
}

// NewEngine returns an Engine that computes deltas for the
// counters in the given schema. All previous values start at zero,
// so the first Update reports each counter's absolute value.
func NewEngine(schema *Schema) *Engine {
	return &Engine{
		schema:   schema,
		prev:     make([]uint64, schema.Len()),
		prevTime: "0",
	}
}

// Schema returns the schema used by the engine.
func (e *Engine) Schema() *Schema {
	return e.schema
}

// Previous returns the last observed value of the named counter
// in the same form found in a Record: the raw value for the
// timestamp entry, the absolute value otherwise.
func (e *Engine) Previous(name string) (string, bool) {
	i := e.schema.Index(name)
	if i < 0 {
		return "", false
	}
	if e.schema.counters[i].Timestamp {
		return e.prevTime, true
	}
	return strconv.FormatUint(e.prev[i], 10), true
}

// Update returns the difference between snap and the previously
// updated snapshot and records snap as the new previous snapshot.
//
// The timestamp entry is copied verbatim; if it's missing, the
// previously recorded timestamp is reported again. An ordinary
// counter missing from snap reports a zero delta and keeps its
// previous value. Names in snap that aren't in the schema are ignored.
//
// Counter values must be unsigned decimal integers that fit in 64 bits.
// If any counter is malformed, Update returns an error with an
// ErrMalformedCounter cause and the engine state is unchanged.
func (e *Engine) Update(snap Snapshot) (Record, error) {
	counters := e.schema.counters
	// Parse everything before changing any state so that a
	// malformed snapshot leaves the engine untouched.
	vals := make([]uint64, len(counters))
	present := make([]bool, len(counters))
	for i, c := range counters {
		s, ok := snap[c.Name]
		if !ok || c.Timestamp {
			present[i] = ok
			continue
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errgo.WithCausef(nil, ErrMalformedCounter, "invalid value %q for counter %q", s, c.Name)
		}
		vals[i], present[i] = v, true
	}
	if logger.IsTraceEnabled() {
		for name := range snap {
			if e.schema.Index(name) < 0 {
				logger.Tracef("ignoring unknown counter %q", name)
			}
		}
	}
	rec := make(Record, len(counters))
	for i, c := range counters {
		f := Field{
			Name:      c.Name,
			Timestamp: c.Timestamp,
		}
		switch {
		case c.Timestamp:
			if present[i] {
				e.prevTime = snap[c.Name]
			}
			f.Raw = e.prevTime
		case present[i]:
			f.Delta = int64(vals[i] - e.prev[i])
			if vals[i] < e.prev[i] {
				logger.Warningf("counter %q went backwards (%d to %d)", c.Name, e.prev[i], vals[i])
			}
			e.prev[i] = vals[i]
		default:
			logger.Tracef("counter %q missing from snapshot", c.Name)
		}
		rec[i] = f
	}
	return rec, nil
}
