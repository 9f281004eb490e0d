package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetRootCmd_Exists verifies getRootCmd returns
// a valid command.
func TestGetRootCmd_Exists(t *testing.T) {
	cmd := getRootCmd()
	require.NotNil(t, cmd, "Root command should exist")
	assert.Equal(t, "cinder", cmd.Use)
	assert.NotNil(t, cmd.PersistentPreRunE)
	assert.NotNil(t, cmd.RunE)
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)

	var names []string
	for _, v := range cmd.Commands() {
		names = append(names, v.Name())
	}
	assert.Subset(t, names, []string{"years", "reset"})
}

// TestGetRootCmd_Version verifies version output with
// both flags.
func TestGetRootCmd_Version(t *testing.T) {
	for _, flag := range []string{"--version", "-V"} {
		cmd := getRootCmd()
		cmd.Version = "version: v1.2.3\nbuild:   abc123"

		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetArgs([]string{flag})

		err := cmd.Execute()
		require.NoError(t, err, flag)

		output := buf.String()
		assert.Contains(t, output, "v1.2.3", flag)
		assert.Contains(t, output, "abc123", flag)
		assert.NotContains(t, output, "cinder version", flag)
	}
}

func TestGetRootCmd_HelpText(t *testing.T) {
	cmd := getRootCmd()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpText := buf.String()
	for _, v := range []string{
		"IPEDS", "PostgreSQL", "--pg", "--dbname", "--concurrency", "--out",
	} {
		assert.Contains(t, helpText, v)
	}
}

func TestFlagDefaults(t *testing.T) {
	cmd := getRootCmd()
	def := config.New()

	pf := cmd.PersistentFlags()

	pg, err := pf.GetString("pg")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost", pg)

	dbname, _ := pf.GetString("dbname")
	assert.Equal(t, "cinder", dbname)

	concurrency, err := cmd.Flags().GetInt("concurrency")
	require.NoError(t, err)
	assert.Equal(t, 32, concurrency)

	out, _ := pf.GetString("out")
	assert.Equal(t, "out/rust-raw/", out)
	assert.Equal(t, def.OutDir, out)

	// defaults do not become options
	assert.Empty(t, flagOptions(cmd))
}

func TestFlagOptions(t *testing.T) {
	cmd := getRootCmd()
	err := cmd.ParseFlags([]string{
		"--pg", "postgres://u:p@db:5433",
		"--dbname", "ipeds",
		"--concurrency", "4",
		"--out", "/data/ipeds",
		"--years", "2004,2005",
		"--catalog-file", "years.yaml",
		"--metrics-addr", ":9090",
	})
	require.NoError(t, err)

	cfg := config.New()
	cfg.Update(flagOptions(cmd))
	assert.Equal(t, "postgres://u:p@db:5433", cfg.Database.URL)
	assert.Equal(t, "ipeds", cfg.Database.Database)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "/data/ipeds", cfg.OutDir)
	assert.Equal(t, []int{2004, 2005}, cfg.Years)
	assert.Equal(t, "years.yaml", cfg.Catalog.File)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(pipeline.YearsFailedError(1, 3)))
	assert.Equal(t, 1, exitCode(errors.New("no database")))
}

func TestPrintYears(t *testing.T) {
	var buf bytes.Buffer
	printYears(&buf, []lifecycle.YearDescriptor{
		{Year: 2004, SnapshotURL: "https://example.org/IPEDS_2004-05.zip"},
		{
			Year:        2005,
			SnapshotURL: "https://example.org/IPEDS_2005-06.zip",
			DocsURL:     "https://example.org/IPEDS_2005-06_docs.zip",
		},
	})
	out := buf.String()
	assert.Contains(t, out, "YEAR")
	assert.Contains(t, out, "IPEDS_2004-05.zip")
	assert.Contains(t, out, "IPEDS_2005-06_docs.zip")
}

func TestResetFlags(t *testing.T) {
	cmd := getResetCmd()
	assert.NotNil(t, cmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.Flags().Lookup("artifacts"))
	assert.NotNil(t, getYearsCmd().Flags().Lookup("yaml"))
}
