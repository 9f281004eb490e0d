package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir, Years, Catalog.File, MetricsAddr).
// Used for round-tripping config.yaml ↔ Config conversions.
func (c *Config) ToOptions() []Option {
	var res []Option
	var s string
	var i int
	var d time.Duration

	s = c.Database.URL
	if s != "" {
		res = append(res, OptDatabaseURL(s))
	}
	s = c.Database.Database
	if s != "" {
		res = append(res, OptDatabaseDatabase(s))
	}
	i = c.Database.MaxConns
	if i > 0 {
		res = append(res, OptDatabaseMaxConns(i))
	}

	i = c.Fetch.MaxAttempts
	if i > 0 {
		res = append(res, OptFetchMaxAttempts(i))
	}
	d = c.Fetch.InitialBackoff
	if d > 0 {
		res = append(res, OptFetchInitialBackoff(d))
	}
	d = c.Fetch.MaxBackoff
	if d > 0 {
		res = append(res, OptFetchMaxBackoff(d))
	}
	d = c.Fetch.Timeout
	if d > 0 {
		res = append(res, OptFetchTimeout(d))
	}
	if c.Fetch.MaxBytes > 0 {
		res = append(res, OptFetchMaxBytes(c.Fetch.MaxBytes))
	}

	res = append(res,
		OptImportStripYear(c.Import.StripYear),
		OptImportPromoteNumeric(c.Import.PromoteNumeric),
	)
	if len(c.Import.SkipBadRows) > 0 {
		res = append(res, OptImportSkipBadRows(c.Import.SkipBadRows))
	}
	if c.Import.MaxUnpackedBytes > 0 {
		res = append(res, OptImportMaxUnpackedBytes(c.Import.MaxUnpackedBytes))
	}

	s = c.Catalog.URL
	if s != "" {
		res = append(res, OptCatalogURL(s))
	}

	s = c.Log.Format
	if s != "" {
		res = append(res, OptLogFormat(s))
	}
	s = c.Log.Level
	if s != "" {
		res = append(res, OptLogLevel(s))
	}
	s = c.Log.Destination
	if s != "" {
		res = append(res, OptLogDestination(s))
	}

	i = c.Concurrency
	if i > 0 {
		res = append(res, OptConcurrency(i))
	}
	s = c.OutDir
	if s != "" {
		res = append(res, OptOutDir(s))
	}
	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidSize(name string, n int64) bool {
	res := n > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number of bytes, ignoring %d", name, n)
	}
	return res
}

func isValidDuration(name string, d time.Duration) bool {
	res := d > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive duration, ignoring %s", name, d)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Log.Level":       {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":      {"json": s, "text": s, "tint": s},
		"Log.Destination": {"file": s, "stderr": s, "stdout": s},
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	if _, ok := data[name][val]; ok {
		return true
	}
	gn.Warn(
		"<em>%s</em> does not support '%s' as a value. "+
			"Valid values are: \n%s\nIgnoring...",
		name, val, strings.Join(lines, "\n"),
	)
	return false
}
