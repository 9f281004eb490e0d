package config

import (
	"strings"
	"time"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDatabaseURL sets the PostgreSQL connection string. The string is
// not parsed here, a malformed value fails when connecting.
func OptDatabaseURL(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database URL", s) {
			c.Database.URL = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseMaxConns sets the size of the connection pool.
func OptDatabaseMaxConns(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Max Connections", i) {
			c.Database.MaxConns = i
		}
	}
}

// OptFetchMaxAttempts sets how many times a transient download failure
// is tried.
func OptFetchMaxAttempts(i int) Option {
	return func(c *Config) {
		if isValidInt("Fetch Max Attempts", i) {
			c.Fetch.MaxAttempts = i
		}
	}
}

// OptFetchInitialBackoff sets the delay before the first retry.
func OptFetchInitialBackoff(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Fetch Initial Backoff", d) {
			c.Fetch.InitialBackoff = d
		}
	}
}

// OptFetchMaxBackoff caps the delay between retries.
func OptFetchMaxBackoff(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Fetch Max Backoff", d) {
			c.Fetch.MaxBackoff = d
		}
	}
}

// OptFetchTimeout limits one download request.
func OptFetchTimeout(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Fetch Timeout", d) {
			c.Fetch.Timeout = d
		}
	}
}

// OptFetchMaxBytes limits the size of one downloaded file.
func OptFetchMaxBytes(n int64) Option {
	return func(c *Config) {
		if isValidSize("Fetch Max Bytes", n) {
			c.Fetch.MaxBytes = n
		}
	}
}

// OptImportMaxUnpackedBytes limits the size of a database unpacked
// from a snapshot archive.
func OptImportMaxUnpackedBytes(n int64) Option {
	return func(c *Config) {
		if isValidSize("Import Max Unpacked Bytes", n) {
			c.Import.MaxUnpackedBytes = n
		}
	}
}

// OptImportStripYear sets whether year tokens are removed from source
// table names.
func OptImportStripYear(b bool) Option {
	return func(c *Config) {
		c.Import.StripYear = b
	}
}

// OptImportPromoteNumeric sets whether integer/real conflicts widen to
// real instead of text.
func OptImportPromoteNumeric(b bool) Option {
	return func(c *Config) {
		c.Import.PromoteNumeric = b
	}
}

// OptImportSkipBadRows sets destination tables that skip rows which
// cannot be converted instead of aborting the table import.
func OptImportSkipBadRows(ss []string) Option {
	var tables []string
	for _, v := range ss {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			tables = append(tables, v)
		}
	}
	return func(c *Config) {
		c.Import.SkipBadRows = tables
	}
}

// OptCatalogURL sets the HTML page with the list of snapshots.
func OptCatalogURL(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Catalog URL", s) {
			c.Catalog.URL = s
		}
	}
}

// OptCatalogFile sets a years.yaml file to use instead of the HTML page.
// Runtime-only field - not in ToOptions().
func OptCatalogFile(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Catalog File", s) {
			c.Catalog.File = s
		}
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptConcurrency sets the number of year pipelines running at once.
func OptConcurrency(i int) Option {
	return func(c *Config) {
		if isValidInt("Concurrency", i) {
			c.Concurrency = i
		}
	}
}

// OptOutDir sets the root directory of the artifact archive.
func OptOutDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Output Directory", s) {
			c.OutDir = s
		}
	}
}

// OptYears limits the run to the given years.
// Runtime-only field - not in ToOptions().
func OptYears(ii []int) Option {
	return func(c *Config) {
		var years []int
		for _, v := range ii {
			if isValidInt("Year", v) {
				years = append(years, v)
			}
		}
		if len(years) > 0 {
			c.Years = years
		}
	}
}

// OptMetricsAddr sets the listen address of the metrics endpoint.
// Runtime-only field - not in ToOptions().
func OptMetricsAddr(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Metrics Address", s) {
			c.MetricsAddr = s
		}
	}
}

// OptHomeDir sets the home directory for config and log locations.
// Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
