package mdreport_test

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/juju/ansiterm"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/rogpeppe/mdstat/mdreport"
	"github.com/rogpeppe/mdstat/mdstats"
)

type renderSuite struct{}

var _ = gc.Suite(renderSuite{})

var smallSchema = mustNewSchema(
	mdstats.Counter{Name: "snapshot_time", Timestamp: true},
	mdstats.Counter{Name: "open"},
	mdstats.Counter{Name: "close"},
)

var smallRecord = mdstats.Record{
	{Name: "snapshot_time", Timestamp: true, Raw: "1409777887.590578"},
	{Name: "open", Delta: 2},
	{Name: "close", Delta: 0},
}

var renderTests = []struct {
	about        string
	mode         mdreport.Mode
	expectHeader string
	expectRecord string
}{{
	about: "plain",
	mode:  mdreport.Plain,
	expectHeader: "" +
		"Stat               Value     \n",
	expectRecord: "" +
		"snapshot_time      1409777887.590578\n" +
		"open               2         \n" +
		"close              0         \n",
}, {
	about: "table",
	mode:  mdreport.Table,
	expectHeader: "" +
		"     snapshot_time     open          close\n",
	expectRecord: "" +
		" 1409777887.590578        2              0\n",
}, {
	about:        "csv",
	mode:         mdreport.CSV,
	expectHeader: "snapshot_time,open,close\n",
	expectRecord: "1409777887.590578,2,0\n",
}}

func (renderSuite) TestRender(c *gc.C) {
	for i, test := range renderTests {
		c.Logf("test %d: %s", i, test.about)
		var buf bytes.Buffer
		r := mdreport.NewRenderer(&buf, smallSchema, test.mode)
		c.Assert(r.Mode(), gc.Equals, test.mode)
		err := r.WriteHeader()
		c.Assert(err, jc.ErrorIsNil)
		c.Check(buf.String(), gc.Equals, test.expectHeader)
		buf.Reset()
		err = r.WriteRecord(smallRecord)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(buf.String(), gc.Equals, test.expectRecord)
	}
}

func (renderSuite) TestTableColumns(c *gc.C) {
	cols := mdreport.Columns(mdstats.MDTSchema)
	c.Assert(cols, gc.HasLen, 16)
	c.Assert(cols[0], jc.DeepEquals, mdreport.Column{Name: "snapshot_time", Width: 18})
	c.Assert(cols[1], jc.DeepEquals, mdreport.Column{Name: "open", Width: 8})
	c.Assert(cols[14], jc.DeepEquals, mdreport.Column{Name: "sync", Width: 8})
	c.Assert(cols[15], jc.DeepEquals, mdreport.Column{Name: "samedir_rename", Width: 14})
	for i, col := range cols {
		c.Check(col.Name, gc.Equals, mdstats.MDTSchema.Names()[i])
	}
}

func (renderSuite) TestTableMDTSchema(c *gc.C) {
	// Even when the snapshot holds only a few counters,
	// the table always has all the schema's columns.
	e := mdstats.NewEngine(mdstats.MDTSchema)
	rec, err := e.Update(mdstats.Snapshot{
		"snapshot_time": "1409777887.590578",
		"open":          "12",
		"whatever":      "5",
	})
	c.Assert(err, jc.ErrorIsNil)

	var buf bytes.Buffer
	r := mdreport.NewRenderer(&buf, mdstats.MDTSchema, mdreport.Table)
	err = r.WriteHeader()
	c.Assert(err, jc.ErrorIsNil)
	err = r.WriteRecord(rec)
	c.Assert(err, jc.ErrorIsNil)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	c.Assert(lines, gc.HasLen, 2)
	c.Assert(strings.Fields(lines[0]), jc.DeepEquals, mdstats.MDTSchema.Names())
	c.Assert(strings.Fields(lines[1]), gc.HasLen, 16)
	c.Assert(strings.Fields(lines[1])[1], gc.Equals, "12")
	// 18 + 14*8 + 14 plus 15 separators.
	c.Assert(lines[0], gc.HasLen, 159)
	c.Assert(lines[1], gc.HasLen, 159)
}

func (renderSuite) TestCSVMatchesPlain(c *gc.C) {
	var plainBuf, csvBuf bytes.Buffer
	err := mdreport.NewRenderer(&plainBuf, smallSchema, mdreport.Plain).WriteRecord(smallRecord)
	c.Assert(err, jc.ErrorIsNil)
	r := mdreport.NewRenderer(&csvBuf, smallSchema, mdreport.CSV)
	err = r.WriteHeader()
	c.Assert(err, jc.ErrorIsNil)
	err = r.WriteRecord(smallRecord)
	c.Assert(err, jc.ErrorIsNil)

	fromPlain := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSuffix(plainBuf.String(), "\n"), "\n") {
		fields := strings.Fields(line)
		c.Assert(fields, gc.HasLen, 2)
		fromPlain[fields[0]] = fields[1]
	}
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(rows, gc.HasLen, 2)
	fromCSV := make(map[string]string)
	for i, name := range rows[0] {
		fromCSV[name] = rows[1][i]
	}
	c.Assert(fromCSV, jc.DeepEquals, fromPlain)
}

func (renderSuite) TestCSVQuoting(c *gc.C) {
	rec := mdstats.Record{
		{Name: "snapshot_time", Timestamp: true, Raw: `1,5 "secs"`},
		{Name: "open", Delta: -1},
		{Name: "close", Delta: 3},
	}
	var buf bytes.Buffer
	err := mdreport.NewRenderer(&buf, smallSchema, mdreport.CSV).WriteRecord(rec)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(buf.String(), gc.Equals, `"1,5 ""secs""",-1,3`+"\n")
	row, err := csv.NewReader(&buf).Read()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(row, jc.DeepEquals, []string{`1,5 "secs"`, "-1", "3"})
}

func (renderSuite) TestRecordMismatch(c *gc.C) {
	var buf bytes.Buffer
	r := mdreport.NewRenderer(&buf, smallSchema, mdreport.Table)
	err := r.WriteRecord(smallRecord[:2])
	c.Assert(err, gc.ErrorMatches, `record has 2 fields, want 3`)
	err = r.WriteRecord(mdstats.Record{smallRecord[0], smallRecord[2], smallRecord[1]})
	c.Assert(err, gc.ErrorMatches, `record field 1 is "close", want "open"`)
	c.Assert(buf.String(), gc.Equals, "")
}

func (renderSuite) TestHeaderNoColorWriter(c *gc.C) {
	// An ansiterm.Writer that isn't writing to a terminal
	// produces no escape sequences.
	var buf bytes.Buffer
	r := mdreport.NewRenderer(ansiterm.NewWriter(&buf), smallSchema, mdreport.Plain)
	err := r.WriteHeader()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(buf.String(), gc.Equals, "Stat               Value     \n")
}

var parseModeTests = []struct {
	s           string
	expect      mdreport.Mode
	expectError string
}{{
	s:      "plain",
	expect: mdreport.Plain,
}, {
	s:      "table",
	expect: mdreport.Table,
}, {
	s:      "csv",
	expect: mdreport.CSV,
}, {
	s:           "xml",
	expectError: `unknown output mode "xml"`,
}}

func (renderSuite) TestParseMode(c *gc.C) {
	for i, test := range parseModeTests {
		c.Logf("test %d: %q", i, test.s)
		m, err := mdreport.ParseMode(test.s)
		if test.expectError != "" {
			c.Assert(err, gc.ErrorMatches, test.expectError)
			continue
		}
		c.Assert(err, jc.ErrorIsNil)
		c.Assert(m, gc.Equals, test.expect)
		c.Assert(m.String(), gc.Equals, test.s)
	}
	c.Assert(mdreport.Mode(99).String(), gc.Equals, "Mode(99)")
}

func mustNewSchema(counters ...mdstats.Counter) *mdstats.Schema {
	s, err := mdstats.NewSchema(counters...)
	if err != nil {
		panic(err)
	}
	return s
}
