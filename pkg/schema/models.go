// Package schema describes tables of yearly snapshots and the
// destination database.
//
// Extracted tables (Table) are converted into destination tables whose
// column sets only grow from year to year (TableSchema). Reconcile
// computes the next TableSchema and the MigrationPlan that brings the
// database to it. Registry keeps the reconciled schema of all tables
// and serializes changes per table.
//
// Bookkeeping models (ImportRecord, IngestRun) are created with GORM
// AutoMigrate.
package schema

import (
	"time"
)

// ImportRecord marks a (table, year) pair as loaded. Its checksum
// decides whether a repeated import is needed.
type ImportRecord struct {
	// ID is UUID v5 generated from the table name and the year.
	ID string `gorm:"type:uuid;not null;uniqueIndex"`

	// Table is the destination table name.
	Table string `gorm:"column:table_name;type:text;primaryKey"`

	// SourceYear is the year of the snapshot the rows came from.
	SourceYear int `gorm:"column:source_year;primaryKey;autoIncrement:false"`

	// SourceTable is the table name inside the snapshot.
	SourceTable string `gorm:"type:text"`

	// RowCount is the number of rows loaded for the year.
	RowCount int64

	// SkippedRows is the number of rows rejected by a table with the
	// skip policy.
	SkippedRows int64

	// Checksum identifies the content of the source table.
	Checksum string `gorm:"type:varchar(64);not null"`

	// ImportedAt is the time of the last successful import.
	ImportedAt time.Time
}

// TableName tells GORM the name of the bookkeeping table.
func (ImportRecord) TableName() string {
	return "import_records"
}

// IngestRun keeps the report of one pipeline run.
type IngestRun struct {
	// ID is a random UUID of the run.
	ID string `gorm:"type:uuid;primaryKey"`

	StartedAt  time.Time
	FinishedAt time.Time

	YearsTotal     int
	YearsCompleted int
	YearsFailed    int

	// Report is the JSON version of the run report.
	Report string `gorm:"type:jsonb"`
}

// TableName tells GORM the name of the run history table.
func (IngestRun) TableName() string {
	return "ingest_runs"
}

// IsBookkeeping returns true for tables that belong to cinder itself
// and not to any snapshot.
func IsBookkeeping(table string) bool {
	return table == ImportRecord{}.TableName() ||
		table == IngestRun{}.TableName()
}
