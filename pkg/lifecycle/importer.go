package lifecycle

import (
	"context"

	"github.com/gnames/cinder/pkg/schema"
)

// ImportResult describes a finished table import.
type ImportResult struct {
	Record schema.ImportRecord

	// Unchanged is true when a matching import record already existed
	// and nothing was loaded.
	Unchanged bool
}

// Importer loads extracted tables into the destination database.
type Importer interface {
	// Imported checks if the table for the year was already loaded
	// with the same checksum.
	Imported(
		ctx context.Context,
		table string,
		year int,
		checksum string,
	) (bool, error)

	// Import applies the migration plan and loads rows of the table
	// in one transaction. Target gives destination column types.
	Import(
		ctx context.Context,
		plan schema.MigrationPlan,
		target schema.TableSchema,
		tbl *schema.Table,
		year int,
		checksum string,
	) (ImportResult, error)
}
