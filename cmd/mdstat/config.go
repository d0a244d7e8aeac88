package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/errgo.v1"

	"github.com/rogpeppe/mdstat/mdreport"
	"github.com/rogpeppe/mdstat/mdstats"
	"github.com/rogpeppe/mdstat/monitor"
)

const (
	defaultInterval = 1
	defaultLogLevel = "<root>=WARNING"
)

// config holds the settings of a single mdstat run.
// Values come from, in decreasing priority: command line flags,
// MDSTAT_* environment variables, the config file and the defaults.
type config struct {
	Target   string
	NoHeader bool
	Table    bool
	CSV      bool
	Interval int
	Count    int
	Root     string
	Retries  int
	LogLevel string
}

// mode returns the output mode selected by the configuration.
// CSV takes precedence over table.
func (cfg *config) mode() mdreport.Mode {
	switch {
	case cfg.CSV:
		return mdreport.CSV
	case cfg.Table:
		return mdreport.Table
	}
	return mdreport.Plain
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("mdstat", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: mdstat [options] -t|--target=<target>\n")
		fmt.Fprintf(stderr, "Prints the change in Lustre MDT metadata statistics at regular intervals.\n\n")
		fs.PrintDefaults()
	}
	fs.StringP("target", "t", mdstats.DefaultTarget, "MDT name to monitor, <fsname>-MDT<index>")
	fs.Bool("no-header", false, "don't print the header")
	fs.Bool("table", false, "print values as a table")
	fs.Bool("csv", false, "print values in CSV format (takes precedence over --table)")
	fs.IntP("interval", "i", defaultInterval, "statistics print interval in seconds")
	fs.IntP("count", "c", 0, "number of iterations (0 means run until interrupted)")
	fs.String("root", mdstats.DefaultRoot, "directory holding the MDT statistics")
	fs.Int("retries", 0, "number of times to retry a failed read before giving up")
	fs.String("log-level", defaultLogLevel, "logging configuration, e.g. <root>=DEBUG")
	fs.String("config", "", "configuration file (YAML, TOML or JSON)")
	return fs
}

// loadConfig parses the command line and merges it with the
// environment and any configuration file. It returns an error
// with a monitor.ErrInvalidConfiguration cause if the
// resulting configuration is not valid.
func loadConfig(fs *pflag.FlagSet, args []string) (*config, error) {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, err
		}
		return nil, errgo.WithCausef(err, monitor.ErrInvalidConfiguration, "")
	}
	if fs.NArg() > 0 {
		return nil, errgo.WithCausef(nil, monitor.ErrInvalidConfiguration, "unexpected arguments %q", fs.Args())
	}
	v := viper.New()
	v.SetEnvPrefix("MDSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errgo.Notef(err, "cannot bind flags")
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errgo.WithCausef(err, monitor.ErrInvalidConfiguration, "cannot read configuration file")
		}
		logger.Debugf("using configuration file %q", v.ConfigFileUsed())
	}
	r := &configReader{v: v}
	cfg := &config{
		Target:   r.getString("target"),
		NoHeader: r.getBool("no-header"),
		Table:    r.getBool("table"),
		CSV:      r.getBool("csv"),
		Interval: r.getInt("interval"),
		Count:    r.getInt("count"),
		Root:     r.getString("root"),
		Retries:  r.getInt("retries"),
		LogLevel: r.getString("log-level"),
	}
	if r.err != nil {
		return nil, errgo.Mask(r.err, errgo.Is(monitor.ErrInvalidConfiguration))
	}
	if cfg.Interval <= 0 {
		return nil, errgo.WithCausef(nil, monitor.ErrInvalidConfiguration, "interval must be greater than 0")
	}
	if cfg.Count < 0 {
		return nil, errgo.WithCausef(nil, monitor.ErrInvalidConfiguration, "count must not be negative")
	}
	if err := mdstats.CheckTarget(cfg.Target); err != nil {
		return nil, errgo.WithCausef(err, monitor.ErrInvalidConfiguration, "")
	}
	return cfg, nil
}

// configReader converts configuration values to their
// expected types, remembering the first value that
// could not be converted.
type configReader struct {
	v   *viper.Viper
	err error
}

func (r *configReader) getString(key string) string {
	s, err := cast.ToStringE(r.v.Get(key))
	r.check(key, err)
	return s
}

func (r *configReader) getBool(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	r.check(key, err)
	return b
}

func (r *configReader) getInt(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	r.check(key, err)
	return n
}

func (r *configReader) check(key string, err error) {
	if err != nil && r.err == nil {
		r.err = errgo.WithCausef(nil, monitor.ErrInvalidConfiguration, "invalid value %q for %s", fmt.Sprint(r.v.Get(key)), key)
	}
}
