package lifecycle

import (
	"context"

	"github.com/gnames/cinder/pkg/schema"
)

// SchemaManager prepares the destination database.
type SchemaManager interface {
	// Create creates bookkeeping tables with GORM AutoMigrate. It is
	// idempotent.
	Create(ctx context.Context) error

	// Introspect reads columns of all destination tables, except the
	// bookkeeping ones.
	Introspect(ctx context.Context) (map[string]schema.TableSchema, error)

	// SaveRun stores the report of an ingestion run.
	SaveRun(ctx context.Context, run schema.IngestRun) error
}
