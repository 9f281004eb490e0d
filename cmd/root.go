/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/cinder/internal/iofs"
	"github.com/gnames/cinder/internal/iologger"
	app "github.com/gnames/cinder/pkg"
	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

// getRootCmd returns the root command. Without subcommands it runs
// ingestion of all yearly snapshots.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "cinder",
		Short:   "Loads yearly IPEDS snapshots into PostgreSQL",
		Long: `Cinder downloads yearly IPEDS Access databases, extracts their tables
and loads them into PostgreSQL. Tables of different years are merged
into one table per logical name, every row keeps its 'source_year'.

Years are processed concurrently. A failed year does not stop others,
the report at the end lists failed years with reasons. Repeated runs
skip work that is already done, so an interrupted run is resumed by
running it again.

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (CINDER_*)
  3. Config file (~/.config/cinder/config.yaml)
  4. Built-in defaults

Exit status is 0 when every year completed, 2 when some years failed
and 1 when the run could not start.

Examples:
  cinder
  cinder --pg postgres://user:pass@db:5432 --dbname ipeds
  cinder --years 2004,2005 --concurrency 2
  cinder --catalog-file years.yaml --out /data/ipeds`,
		PersistentPreRunE: bootstrap,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runIngest(cmd)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Remove the automatic "cinder version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for cinder")

	persistentFlags(rootCmd)
	ingestFlags(rootCmd)

	rootCmd.AddCommand(getYearsCmd())
	rootCmd.AddCommand(getResetCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)

	// Flags override config file and environment
	cfg.Update(flagOptions(cmd))

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings, the log file of the
	// first initialization is kept
	if err = iologger.Init(config.LogDir(cfg.HomeDir), cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded", "config_file", config.ConfigFilePath(homeDir))
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	err := getRootCmd().Execute()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for runs where some years failed, and 1 for all other
// errors.
func exitCode(err error) int {
	var gnErr *gn.Error
	if errors.As(err, &gnErr) && gnErr.Code == errcode.PipelineYearsFailedError {
		return 2
	}
	return 1
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	// booleans are always copied by ToOptions, keep their defaults
	// when config.yaml does not set them
	def := config.New()
	v.SetDefault("import.strip_year", def.Import.StripYear)
	v.SetDefault("import.promote_numeric", def.Import.PromoteNumeric)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are allowed.
	// These match the fields included in config.ToOptions() - i.e., persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix("CINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	_ = v.BindEnv("database.url", "CINDER_DATABASE_URL")
	_ = v.BindEnv("database.database", "CINDER_DATABASE_DATABASE")
	_ = v.BindEnv("database.max_conns", "CINDER_DATABASE_MAX_CONNS")

	// Fetch configuration
	_ = v.BindEnv("fetch.max_attempts", "CINDER_FETCH_MAX_ATTEMPTS")
	_ = v.BindEnv("fetch.initial_backoff", "CINDER_FETCH_INITIAL_BACKOFF")
	_ = v.BindEnv("fetch.max_backoff", "CINDER_FETCH_MAX_BACKOFF")
	_ = v.BindEnv("fetch.timeout", "CINDER_FETCH_TIMEOUT")
	_ = v.BindEnv("fetch.max_bytes", "CINDER_FETCH_MAX_BYTES")

	// Import configuration
	_ = v.BindEnv("import.strip_year", "CINDER_IMPORT_STRIP_YEAR")
	_ = v.BindEnv("import.promote_numeric", "CINDER_IMPORT_PROMOTE_NUMERIC")
	_ = v.BindEnv("import.skip_bad_rows", "CINDER_IMPORT_SKIP_BAD_ROWS")
	_ = v.BindEnv("import.max_unpacked_bytes", "CINDER_IMPORT_MAX_UNPACKED_BYTES")

	_ = v.BindEnv("catalog.url", "CINDER_CATALOG_URL")

	// Log configuration
	_ = v.BindEnv("log.level", "CINDER_LOG_LEVEL")
	_ = v.BindEnv("log.format", "CINDER_LOG_FORMAT")
	_ = v.BindEnv("log.destination", "CINDER_LOG_DESTINATION")

	// General configuration
	_ = v.BindEnv("concurrency", "CINDER_CONCURRENCY")
	_ = v.BindEnv("out_dir", "CINDER_OUT_DIR")

	v.AutomaticEnv()
}
