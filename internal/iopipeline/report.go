package iopipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/gnames/gn"
)

// ReportFile is the name of the run report inside the output
// directory.
const ReportFile = "report.json"

// newProgressBar creates a new progress bar with consistent
// settings.
func newProgressBar(total int, prefix string) *pb.ProgressBar {
	bar := pb.Full.Start(total)
	bar.Set("prefix", prefix)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}

// saveReport writes the report next to the artifacts and into the run
// history. Failures are logged, the report is still returned to the
// caller.
func (o *orchestrator) saveReport(ctx context.Context, r *pipeline.Report) {
	data, err := r.JSON()
	if err != nil {
		slog.Error("Cannot encode report", "error", err)
		return
	}

	path := filepath.Join(o.cfg.OutDir, ReportFile)
	if err = writeFile(path, data); err != nil {
		err = ReportError(path, err)
		slog.Error("Cannot save report", "path", path, "error", err)
		gn.PrintErrorMessage(err)
	}

	if o.manager == nil {
		return
	}
	run := schema.IngestRun{
		ID:             r.ID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		YearsTotal:     len(r.Outcomes),
		YearsCompleted: len(r.Completed()),
		YearsFailed:    len(r.Failed()),
		Report:         string(data),
	}
	if err = o.manager.SaveRun(ctx, run); err != nil {
		slog.Error("Cannot save run history", "run", r.ID, "error", err)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
