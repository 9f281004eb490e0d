package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError
	OutDirError

	// Logging errors
	CreateLogFileError

	// Configuration errors
	ConfigError
	MissingToolError

	// Database errors
	DBConnectionError
	DBCreateDatabaseError
	DBNotConnectedError
	DBQueryTablesError
	DBScanTableError
	DBDropTableError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaIntrospectError
	SchemaSaveRunError

	// Catalog errors
	CatalogUnavailableError
	CatalogFileError

	// Artifact store errors
	ArtifactWriteError
	ArtifactCommitError
	ArtifactChecksumError

	// Fetch errors
	FetchNotFoundError
	FetchMalformedError
	FetchExhaustedError

	// Extract errors
	ExtractCorruptError
	ExtractUnsupportedVersionError
	ExtractReadError

	// Import errors
	ImportConstraintViolationError
	ImportMigrationError
	ImportLoadError

	// Optimize errors
	OptimizeVacuumError

	// Pipeline errors
	PipelineCancelledError
	PipelineYearsFailedError
	PipelineYearNotListedError
	PipelineDuplicateTableError
	PipelineReportError
)
