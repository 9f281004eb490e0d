package lifecycle

import (
	"io"
)

// Kind is the type of a stored artifact.
type Kind int

const (
	// Snapshot is the archive as it was downloaded.
	Snapshot Kind = iota
	// Docs is the documentation of the year.
	Docs
	// Database is the database file unpacked from the snapshot.
	Database
)

func (k Kind) String() string {
	switch k {
	case Snapshot:
		return "snapshot"
	case Docs:
		return "docs"
	case Database:
		return "database"
	}
	return "unknown"
}

// WriteHandle receives the content of an artifact. Nothing is visible
// under the final name until Commit succeeds.
type WriteHandle interface {
	io.Writer

	// Commit makes the artifact visible under its final name.
	Commit() error

	// Close discards the artifact unless it was committed. It is safe
	// to call Close after Commit.
	Close() error

	// Size returns the number of bytes written so far.
	Size() int64

	// Checksum returns the hex BLAKE3 digest of the bytes written so
	// far.
	Checksum() string
}

// ArtifactStore keeps snapshots and documentation on disk.
type ArtifactStore interface {
	// Exists checks if a committed artifact is present.
	Exists(year int, kind Kind) bool

	// OpenForWrite starts writing an artifact.
	OpenForWrite(year int, kind Kind) (WriteHandle, error)

	// PathOf returns the final location of an artifact.
	PathOf(year int, kind Kind) string

	// Checksum returns the hex BLAKE3 digest of a committed artifact.
	Checksum(year int, kind Kind) (string, error)
}
