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
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnames/cinder/internal/ioartifact"
	"github.com/gnames/cinder/internal/iocatalog"
	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/internal/ioextract"
	"github.com/gnames/cinder/internal/iofetch"
	"github.com/gnames/cinder/internal/iofs"
	"github.com/gnames/cinder/internal/ioimport"
	"github.com/gnames/cinder/internal/iometrics"
	"github.com/gnames/cinder/internal/iooptimize"
	"github.com/gnames/cinder/internal/iopipeline"
	"github.com/gnames/cinder/internal/ioschema"
	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/gnames/cinder/pkg/retry"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

// runIngest processes all years and prints the report. An interrupt
// lets running table imports finish, years that did not complete are
// reported as cancelled.
func runIngest(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	progress, _ := cmd.Flags().GetBool("progress")

	if err := iofs.EnsureOutDir(cfg.OutDir); err != nil {
		return err
	}

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	gn.Info("Connected to database <em>%s</em>", cfg.Database.Database)

	collector := iometrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, cfg.MetricsAddr); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	store := ioartifact.New(cfg.OutDir)
	fetcher := iofetch.New(
		store,
		retry.New(cfg.Fetch),
		cfg.Fetch.Timeout,
		iofetch.OptMetrics(collector),
		iofetch.OptMaxBytes(cfg.Fetch.MaxBytes),
	)
	extractor := ioextract.New(
		store,
		cfg.Import.StripYear,
		ioextract.OptMaxUnpackedBytes(cfg.Import.MaxUnpackedBytes),
	)
	importer := ioimport.New(
		op,
		cfg.Import.SkipBadRows,
		ioimport.OptMetrics(collector),
	)

	orch := iopipeline.New(
		cfg,
		newCatalog(cfg),
		fetcher,
		extractor,
		importer,
		iopipeline.OptSchemaManager(ioschema.NewManager(op)),
		iopipeline.OptMetrics(collector),
		iopipeline.OptProgress(progress),
	)

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	report.Fprint(os.Stderr)

	if tables := report.LoadedTables(); len(tables) > 0 && ctx.Err() == nil {
		opt := iooptimize.NewOptimizer(op)
		if err = opt.Optimize(ctx, tables); err != nil {
			gn.PrintErrorMessage(err)
		}
	}

	if !report.OK() {
		return pipeline.YearsFailedError(
			len(report.Failed()), len(report.Outcomes),
		)
	}
	return nil
}

// newCatalog returns the catalog from a years file if it is given,
// otherwise from the catalog page.
func newCatalog(cfg *config.Config) lifecycle.Catalog {
	if cfg.Catalog.File != "" {
		return iocatalog.NewFile(cfg.Catalog.File)
	}
	return iocatalog.NewHTML(cfg.Catalog.URL)
}
