package lifecycle

import (
	"context"
	"iter"

	"github.com/gnames/cinder/pkg/schema"
)

// SnapshotData gives access to tables of an opened snapshot.
type SnapshotData interface {
	// Tables iterates over tables of the snapshot. The sequence is
	// finite and can be iterated once. Rows of a table must be read
	// or closed before the next table is requested.
	Tables(ctx context.Context) iter.Seq2[*schema.Table, error]

	// Digest is the hex BLAKE3 digest of the database file.
	Digest() string

	// Close releases the snapshot.
	Close() error
}

// Extractor opens snapshot files.
type Extractor interface {
	// Open detects the format of a snapshot and prepares it for
	// reading.
	Open(ctx context.Context, year int, path string) (SnapshotData, error)
}
