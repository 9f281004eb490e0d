// Package lifecycle defines contracts of the components that take a
// yearly snapshot from the publisher's site into the database.
//
// Implementations live in internal/io* packages. The orchestrator only
// depends on these interfaces, so every stage can be replaced by a fake
// in tests.
package lifecycle

import (
	"context"
)

// YearDescriptor tells where to find a yearly snapshot.
type YearDescriptor struct {
	// Year is the first calendar year of the academic year (2004 for
	// 2004-05).
	Year int `json:"year" yaml:"year"`

	// SnapshotURL is the location of the snapshot archive.
	SnapshotURL string `json:"snapshotUrl" yaml:"snapshot_url"`

	// DocsURL is the location of the documentation. Empty if the year
	// has no documentation.
	DocsURL string `json:"docsUrl,omitempty" yaml:"docs_url"`
}

// HasDocs is true when the year has documentation.
func (yd YearDescriptor) HasDocs() bool {
	return yd.DocsURL != ""
}

// Catalog lists published years.
type Catalog interface {
	// ListYears returns descriptors of all published years. The order
	// is not guaranteed. The method has no side effects.
	ListYears(ctx context.Context) ([]YearDescriptor, error)
}
