// Package iopipeline runs yearly ingestion pipelines.
//
// Every year goes through fetch, extract, reconcile and import stages.
// Up to Concurrency years run at the same time. A failure of one year
// is recorded in its outcome and never stops other years.
package iopipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/cinder/internal/iocatalog"
	"github.com/gnames/cinder/internal/ioimport"
	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Metrics receives stage transitions and durations of years.
type Metrics interface {
	StageChanged(year int, from, to pipeline.Stage)
	ObserveYear(d time.Duration)
}

type orchestrator struct {
	cfg       *config.Config
	catalog   lifecycle.Catalog
	fetcher   lifecycle.Fetcher
	extractor lifecycle.Extractor
	importer  lifecycle.Importer
	manager   lifecycle.SchemaManager
	metrics   Metrics
	progress  bool

	policy   schema.Policy
	registry *schema.Registry
}

// Option changes defaults of the orchestrator.
type Option func(*orchestrator)

// OptMetrics sets the receiver of pipeline metrics.
func OptMetrics(m Metrics) Option {
	return func(o *orchestrator) {
		o.metrics = m
	}
}

// OptProgress turns on the progress bar.
func OptProgress(b bool) Option {
	return func(o *orchestrator) {
		o.progress = b
	}
}

// OptSchemaManager sets the manager of bookkeeping tables. Without it
// the run starts from an empty schema and is not saved to history.
func OptSchemaManager(m lifecycle.SchemaManager) Option {
	return func(o *orchestrator) {
		o.manager = m
	}
}

// New creates an orchestrator.
func New(
	cfg *config.Config,
	cat lifecycle.Catalog,
	f lifecycle.Fetcher,
	ex lifecycle.Extractor,
	im lifecycle.Importer,
	opts ...Option,
) lifecycle.Orchestrator {
	res := &orchestrator{
		cfg:       cfg,
		catalog:   cat,
		fetcher:   f,
		extractor: ex,
		importer:  im,
		policy:    schema.Policy{PromoteNumeric: cfg.Import.PromoteNumeric},
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Run processes years of the catalog. The error is returned only when
// the run could not start.
func (o *orchestrator) Run(ctx context.Context) (*pipeline.Report, error) {
	report := &pipeline.Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	slog.Info("Starting ingestion", "run", report.ID)

	if err := o.prepareSchema(ctx); err != nil {
		return nil, err
	}

	yds, missing, err := o.years(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]pipeline.Outcome, len(yds))
	var bar *pb.ProgressBar
	if o.progress && len(yds) > 0 {
		bar = newProgressBar(len(yds), "Years: ")
	}

	g := &errgroup.Group{}
	g.SetLimit(max(o.cfg.Concurrency, 1))
	for i, yd := range yds {
		// pipelines never return errors, failures stay in outcomes
		g.Go(func() error {
			outcomes[i] = o.runYear(ctx, yd)
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		bar.Finish()
	}

	for _, v := range missing {
		out := pipeline.Outcome{Year: v}
		out.Fail(pipeline.Queued, YearNotListedError(v))
		outcomes = append(outcomes, out)
	}

	report.Outcomes = outcomes
	report.FinishedAt = time.Now()
	report.Sort()
	o.saveReport(context.WithoutCancel(ctx), report)

	dur := report.FinishedAt.Sub(report.StartedAt).Seconds()
	slog.Info("Ingestion finished",
		"run", report.ID,
		"completed", len(report.Completed()),
		"failed", len(report.Failed()),
		"rows", report.Rows(),
		"duration", gnfmt.TimeString(dur),
	)
	return report, nil
}

func (o *orchestrator) prepareSchema(ctx context.Context) error {
	if o.manager == nil {
		o.registry = schema.NewRegistry(nil)
		return nil
	}
	if err := o.manager.Create(ctx); err != nil {
		return err
	}
	tables, err := o.manager.Introspect(ctx)
	if err != nil {
		return err
	}
	slog.Info("Found existing tables", "count", len(tables))
	o.registry = schema.NewRegistry(tables)
	return nil
}

// years returns descriptors to process and requested years that the
// catalog does not have.
func (o *orchestrator) years(
	ctx context.Context,
) ([]lifecycle.YearDescriptor, []int, error) {
	all, err := o.catalog.ListYears(ctx)
	if err != nil {
		return nil, nil, err
	}
	yds := iocatalog.Filter(all, o.cfg.Years)

	var missing []int
	for _, v := range o.cfg.Years {
		found := false
		for _, yd := range yds {
			if yd.Year == v {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, v)
		}
	}

	gn.Info("Processing <em>%d</em> years, concurrency %d",
		len(yds), o.cfg.Concurrency)
	return yds, missing, nil
}

func (o *orchestrator) onChange(year int, from, to pipeline.Stage) {
	slog.Debug("Stage changed", "year", year, "from", from, "to", to)
	if o.metrics != nil {
		o.metrics.StageChanged(year, from, to)
	}
}

// runYear takes one year through all stages.
func (o *orchestrator) runYear(
	ctx context.Context,
	yd lifecycle.YearDescriptor,
) (out pipeline.Outcome) {
	start := time.Now()
	out.Year = yd.Year
	tr := pipeline.NewTracker(yd.Year, o.onChange)
	defer func() {
		out.Duration = time.Since(start)
		if o.metrics != nil {
			o.metrics.ObserveYear(out.Duration)
		}
		logOutcome(out)
	}()

	fail := func(at pipeline.Stage, err error) pipeline.Outcome {
		tr.Fail()
		out.Fail(at, err)
		return out
	}

	if err := ctx.Err(); err != nil {
		return fail(pipeline.Queued, pipeline.CancelledError(yd.Year, err))
	}

	_ = tr.Move(pipeline.Fetching)
	fa, err := o.fetcher.Fetch(ctx, yd)
	if err != nil {
		return fail(pipeline.Fetching, err)
	}
	out.Cached = fa.Cached
	out.Warnings = append(out.Warnings, fa.Warnings...)

	_ = tr.Move(pipeline.Extracting)
	snap, err := o.extractor.Open(ctx, yd.Year, fa.SnapshotPath)
	if err != nil {
		return fail(pipeline.Extracting, err)
	}
	defer snap.Close()

	names := make(map[string]string)
	var total int
	// The current table is always finished, cancellation is checked
	// between tables.
	for tbl, err := range snap.Tables(context.WithoutCancel(ctx)) {
		if err != nil {
			return fail(pipeline.Extracting, err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return fail(tr.Stage(), pipeline.CancelledError(yd.Year, cerr))
		}
		total++
		addWarnings(&out, tbl.Warnings)

		if err = uniqueName(yd.Year, tbl, names); err != nil {
			out.Failures = append(out.Failures, tableFailure(tbl, err))
			continue
		}

		res, warns, err := o.importTable(ctx, tr, yd.Year, snap.Digest(), tbl)
		addWarnings(&out, warns)
		if err != nil {
			slog.Error("Table import failed",
				"year", yd.Year,
				"table", tbl.Name,
				"source", tbl.Source,
				"error", err,
			)
			out.Failures = append(out.Failures, tableFailure(tbl, err))
			continue
		}
		if res.Unchanged {
			out.Unchanged++
			continue
		}
		out.Tables++
		out.Loaded = append(out.Loaded, tbl.Name)
		out.Rows += res.Record.RowCount
		out.Skipped += res.Record.SkippedRows
	}

	if len(out.Failures) > 0 {
		at := tr.Stage()
		if at == pipeline.Extracting {
			at = pipeline.Importing
		}
		return fail(at, pipeline.TablesFailedError(yd.Year, len(out.Failures), total))
	}

	_ = tr.Move(pipeline.Completed)
	out.Stage = pipeline.Completed
	return out
}

// importTable reconciles and loads one table. The table lock is held
// from reconciliation until the new schema is registered.
func (o *orchestrator) importTable(
	ctx context.Context,
	tr *pipeline.Tracker,
	year int,
	digest string,
	tbl *schema.Table,
) (lifecycle.ImportResult, []schema.Warning, error) {
	var res lifecycle.ImportResult
	if tr.Stage() != pipeline.Reconciling {
		_ = tr.Move(pipeline.Reconciling)
	}

	unlock := o.registry.Lock(tbl.Name)
	defer unlock()

	target, plan, warns := schema.Reconcile(o.registry.Get(tbl.Name), tbl, o.policy)
	_ = tr.Move(pipeline.Importing)

	checksum := ioimport.Checksum(digest, tbl)
	done, err := o.importer.Imported(ctx, tbl.Name, year, checksum)
	if err != nil {
		return res, warns, err
	}
	if done {
		res.Unchanged = true
		return res, warns, nil
	}

	res, err = o.importer.Import(
		context.WithoutCancel(ctx), plan, target, tbl, year, checksum,
	)
	if err != nil {
		return res, warns, err
	}
	if res.Unchanged {
		return res, warns, nil
	}
	if err = o.registry.Set(target); err != nil {
		return res, warns, err
	}

	slog.Info("Table imported",
		"year", year,
		"table", tbl.Name,
		"source", tbl.Source,
		"rows", res.Record.RowCount,
		"migration", len(plan.Ops),
	)
	return res, warns, nil
}

// addWarnings logs schema warnings and keeps them in the outcome of the
// year.
func addWarnings(out *pipeline.Outcome, ws []schema.Warning) {
	for _, w := range ws {
		slog.Warn("Schema warning",
			"year", out.Year,
			"table", w.Table,
			"column", w.Column,
			"warning", w.Msg,
		)
		out.Warnings = append(out.Warnings, w.String())
	}
}

// uniqueName makes sure two tables of one snapshot do not load into
// the same destination table. The second table keeps the year in its
// name.
func uniqueName(year int, tbl *schema.Table, names map[string]string) error {
	other, ok := names[tbl.Name]
	if !ok {
		names[tbl.Name] = tbl.Source
		return nil
	}
	name := schema.LogicalName(tbl.Source, false)
	if _, taken := names[name]; taken || name == tbl.Name {
		return DuplicateTableError(year, tbl.Name, tbl.Source, other)
	}
	slog.Warn("Table name is taken, keeping the year",
		"year", year,
		"table", tbl.Name,
		"source", tbl.Source,
		"name", name,
	)
	tbl.Name = name
	names[name] = tbl.Source
	return nil
}

func tableFailure(tbl *schema.Table, err error) pipeline.TableFailure {
	return pipeline.TableFailure{
		Table:       tbl.Name,
		SourceTable: tbl.Source,
		Kind:        pipeline.KindOf(err),
		Reason:      err.Error(),
	}
}

func logOutcome(out pipeline.Outcome) {
	dur := gnfmt.TimeString(out.Duration.Seconds())
	if out.Stage == pipeline.Completed {
		slog.Info("Year completed",
			"year", out.Year,
			"tables", out.Tables,
			"unchanged", out.Unchanged,
			"rows", out.Rows,
			"duration", dur,
		)
		gn.Info("Year <em>%d</em> completed: %d tables, %s rows in %s",
			out.Year, out.Tables, humanize.Comma(out.Rows), dur)
		return
	}
	slog.Error("Year failed",
		"year", out.Year,
		"stage", out.FailedAt,
		"kind", out.Kind,
		"error", out.Err,
	)
	gn.Warn("Year <em>%d</em> failed at %s: %s",
		out.Year, out.FailedAt, out.Kind)
}
