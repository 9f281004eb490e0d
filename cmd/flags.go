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
	"github.com/gnames/cinder/pkg/config"
	"github.com/spf13/cobra"
)

type funcFlag func(cmd *cobra.Command) []config.Option

// persistentFlags are shared by all commands.
func persistentFlags(cmd *cobra.Command) {
	def := config.New()
	pf := cmd.PersistentFlags()
	pf.String("pg", def.Database.URL, "PostgreSQL connection string")
	pf.String("dbname", def.Database.Database, "database name")
	pf.String("out", def.OutDir, "directory for downloaded snapshots")
	pf.String("catalog-url", def.Catalog.URL, "page that lists yearly snapshots")
	pf.String("catalog-file", "", "years.yaml file used instead of the catalog page")
}

// ingestFlags belong to the ingestion run.
func ingestFlags(cmd *cobra.Command) {
	def := config.New()
	f := cmd.Flags()
	f.IntP("concurrency", "j", def.Concurrency, "number of years processed at once")
	f.IntSliceP("years", "y", nil, "years to process (default all years)")
	f.String("metrics-addr", "", "address of Prometheus metrics endpoint, e.g. :9090")
	f.BoolP("progress", "p", false, "show progress bar")
}

// flagOptions converts flags given by a user to config options. Flags
// with default values are ignored, so they do not override config.yaml
// or environment.
func flagOptions(cmd *cobra.Command) []config.Option {
	var res []config.Option
	for _, fn := range []funcFlag{
		databaseFlags,
		sourceFlags,
		runFlags,
	} {
		res = append(res, fn(cmd)...)
	}
	return res
}

func databaseFlags(cmd *cobra.Command) []config.Option {
	var res []config.Option
	f := cmd.Flags()
	if f.Changed("pg") {
		s, _ := f.GetString("pg")
		res = append(res, config.OptDatabaseURL(s))
	}
	if f.Changed("dbname") {
		s, _ := f.GetString("dbname")
		res = append(res, config.OptDatabaseDatabase(s))
	}
	return res
}

func sourceFlags(cmd *cobra.Command) []config.Option {
	var res []config.Option
	f := cmd.Flags()
	if f.Changed("out") {
		s, _ := f.GetString("out")
		res = append(res, config.OptOutDir(s))
	}
	if f.Changed("catalog-url") {
		s, _ := f.GetString("catalog-url")
		res = append(res, config.OptCatalogURL(s))
	}
	if f.Changed("catalog-file") {
		s, _ := f.GetString("catalog-file")
		res = append(res, config.OptCatalogFile(s))
	}
	return res
}

func runFlags(cmd *cobra.Command) []config.Option {
	var res []config.Option
	f := cmd.Flags()
	if f.Changed("concurrency") {
		i, _ := f.GetInt("concurrency")
		res = append(res, config.OptConcurrency(i))
	}
	if f.Changed("years") {
		ii, _ := f.GetIntSlice("years")
		res = append(res, config.OptYears(ii))
	}
	if f.Changed("metrics-addr") {
		s, _ := f.GetString("metrics-addr")
		res = append(res, config.OptMetricsAddr(s))
	}
	return res
}
