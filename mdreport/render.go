// Package mdreport formats metadata statistics records for display.
package mdreport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/juju/ansiterm"
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/mdstat/mdstats"
)

// Mode represents an output format.
type Mode int

const (
	// Plain prints one "name value" line per counter.
	Plain Mode = iota
	// Table prints all counters on a single fixed-width line.
	Table
	// CSV prints all counters on a single comma-separated line.
	CSV
)

var modeNames = []string{
	Plain: "plain",
	Table: "table",
	CSV:   "csv",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode returns the mode with the given name.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, errgo.Newf("unknown output mode %q", s)
}

// Widths used in Plain mode.
const (
	plainNameWidth  = 18
	plainValueWidth = 10
)

// Widths used in Table mode.
const (
	tableFirstWidth = 18
	tableWidth      = 8
	tableLastWidth  = 14
)

// Column describes a column in Table mode.
type Column struct {
	Name  string
	Width int
}

// Columns returns the table columns for the given schema, in schema
// order. The first column (the timestamp in MDTSchema) and the last
// column are wider than the others.
func Columns(schema *mdstats.Schema) []Column {
	names := schema.Names()
	cols := make([]Column, len(names))
	for i, name := range names {
		w := tableWidth
		switch i {
		case 0:
			w = tableFirstWidth
		case len(names) - 1:
			w = tableLastWidth
		}
		cols[i] = Column{
			Name:  name,
			Width: w,
		}
	}
	return cols
}

// Renderer writes records to an io.Writer.
type Renderer struct {
	w       io.Writer
	mode    Mode
	schema  *mdstats.Schema
	columns []Column
}

// NewRenderer returns a Renderer that writes records produced
// for the given schema to w in the given mode.
//
// If w is an *ansiterm.Writer, headers are shown in bold
// when the terminal supports it.
func NewRenderer(w io.Writer, schema *mdstats.Schema, mode Mode) *Renderer {
	return &Renderer{
		w:       w,
		mode:    mode,
		schema:  schema,
		columns: Columns(schema),
	}
}

// Mode returns the renderer's output mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// WriteHeader writes the column titles.
func (r *Renderer) WriteHeader() error {
	switch r.mode {
	case Plain:
		return r.writeHeaderLine(fmt.Sprintf("%-*s %-*s", plainNameWidth, "Stat", plainValueWidth, "Value"))
	case Table:
		return r.writeHeaderLine(r.tableLine(r.schema.Names()))
	case CSV:
		return r.writeCSV(r.schema.Names())
	}
	return errgo.Newf("unknown output mode %v", r.mode)
}

// WriteRecord writes a single record, which must have been
// produced by an engine using the renderer's schema.
func (r *Renderer) WriteRecord(rec mdstats.Record) error {
	if err := r.checkRecord(rec); err != nil {
		return errgo.Mask(err)
	}
	switch r.mode {
	case Plain:
		var buf bytes.Buffer
		for _, f := range rec {
			fmt.Fprintf(&buf, "%-*s %-*s\n", plainNameWidth, f.Name, plainValueWidth, f.Value())
		}
		_, err := r.w.Write(buf.Bytes())
		return errgo.Mask(err)
	case Table:
		_, err := io.WriteString(r.w, r.tableLine(rec.Values())+"\n")
		return errgo.Mask(err)
	case CSV:
		return r.writeCSV(rec.Values())
	}
	return errgo.Newf("unknown output mode %v", r.mode)
}

func (r *Renderer) checkRecord(rec mdstats.Record) error {
	if len(rec) != len(r.columns) {
		return errgo.Newf("record has %d fields, want %d", len(rec), len(r.columns))
	}
	for i, f := range rec {
		if f.Name != r.columns[i].Name {
			return errgo.Newf("record field %d is %q, want %q", i, f.Name, r.columns[i].Name)
		}
	}
	return nil
}

func (r *Renderer) tableLine(vals []string) string {
	var buf strings.Builder
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%*s", col.Width, vals[i])
	}
	return buf.String()
}

func (r *Renderer) writeHeaderLine(line string) error {
	if aw, ok := r.w.(*ansiterm.Writer); ok {
		aw.SetStyle(ansiterm.Bold)
		_, err := io.WriteString(aw, line)
		aw.Reset()
		if err != nil {
			return errgo.Mask(err)
		}
		_, err = io.WriteString(aw, "\n")
		return errgo.Mask(err)
	}
	_, err := io.WriteString(r.w, line+"\n")
	return errgo.Mask(err)
}

func (r *Renderer) writeCSV(vals []string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(vals); err != nil {
		return errgo.Mask(err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errgo.Mask(err)
	}
	_, err := io.WriteString(r.w, strings.TrimRight(buf.String(), " \t\r\n")+"\n")
	return errgo.Mask(err)
}
