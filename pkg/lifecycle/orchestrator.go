package lifecycle

import (
	"context"

	"github.com/gnames/cinder/pkg/pipeline"
)

// Orchestrator runs year pipelines and collects their outcomes.
type Orchestrator interface {
	// Run processes all years of the catalog. An error means the run
	// could not start; failures of separate years are only reported.
	Run(ctx context.Context) (*pipeline.Report, error)
}
