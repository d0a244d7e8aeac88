package mdstats

import "github.com/juju/loggo"

var logger = loggo.GetLogger("mdstat.mdstats")
