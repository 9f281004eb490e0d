package lifecycle

import (
	"context"
	"fmt"
)

// FetchStatus is the state of a download.
type FetchStatus int

const (
	Pending FetchStatus = iota
	InFlight
	Done
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	case FetchFailed:
		return "failed"
	}
	return "unknown"
}

// DownloadTask follows one download of one artifact. It belongs to a
// single fetch, only its status changes.
type DownloadTask struct {
	Year       int
	Kind       Kind
	URL        string
	TargetPath string
	Status     FetchStatus
	Attempts   int
	Bytes      int64
	Reason     string
}

// Start marks the task as in flight.
func (t *DownloadTask) Start() error {
	if t.Status != Pending && t.Status != InFlight {
		return fmt.Errorf("download %s of %d: cannot start from %s",
			t.Kind, t.Year, t.Status)
	}
	t.Status = InFlight
	t.Attempts++
	return nil
}

// Finish marks the task as done.
func (t *DownloadTask) Finish(bytes int64) error {
	if t.Status != InFlight {
		return fmt.Errorf("download %s of %d: cannot finish from %s",
			t.Kind, t.Year, t.Status)
	}
	t.Status = Done
	t.Bytes = bytes
	return nil
}

// Fail marks the task as failed.
func (t *DownloadTask) Fail(err error) {
	if t.Status == Done {
		return
	}
	t.Status = FetchFailed
	if err != nil {
		t.Reason = err.Error()
	}
}

// FetchedArtifacts describes artifacts of a year on disk.
type FetchedArtifacts struct {
	Year int

	// SnapshotPath is the location of the snapshot archive.
	SnapshotPath string

	// DocsPath is empty if the year has no documentation or it could
	// not be downloaded.
	DocsPath string

	// Cached is true when nothing had to be downloaded.
	Cached bool

	// Bytes is the number of bytes downloaded.
	Bytes int64

	// Warnings are non-fatal problems, such as a failed documentation
	// download.
	Warnings []string
}

// Fetcher downloads artifacts of a year into the artifact store.
type Fetcher interface {
	// Fetch makes sure the snapshot and documentation of a year are
	// in the artifact store.
	Fetch(ctx context.Context, yd YearDescriptor) (FetchedArtifacts, error)
}
