// Package ioextract opens yearly snapshots and reads their tables.
//
// A snapshot is a zip archive with one database inside, or the
// database itself. Access (Jet/ACE) databases are read with mdbtools,
// SQLite databases with the pure Go SQLite driver. The format is
// detected by magic bytes, not by file extension.
package ioextract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnames/cinder/internal/ioartifact"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/schema"
)

type extractor struct {
	store     lifecycle.ArtifactStore
	stripYear bool
	// maxUnpacked limits a database unpacked from an archive, zero
	// means no limit.
	maxUnpacked int64
}

// Option changes defaults of the extractor.
type Option func(*extractor)

// OptMaxUnpackedBytes limits the size of a database unpacked from a
// snapshot archive. Larger members make the snapshot corrupt.
func OptMaxUnpackedBytes(n int64) Option {
	return func(e *extractor) {
		if n > 0 {
			e.maxUnpacked = n
		}
	}
}

// New creates an extractor. Databases unpacked from archives are saved
// into the store. If stripYear is true, year tokens are removed from
// table names.
func New(
	store lifecycle.ArtifactStore,
	stripYear bool,
	opts ...Option,
) lifecycle.Extractor {
	res := &extractor{store: store, stripYear: stripYear}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Open detects the format of the file and returns its tables reader.
func (e *extractor) Open(
	ctx context.Context,
	year int,
	path string,
) (lifecycle.SnapshotData, error) {
	f, err := detect(path)
	if err != nil {
		return nil, err
	}

	if f == formatZip {
		if path, err = e.unpack(ctx, year, path); err != nil {
			return nil, err
		}
		if f, err = detect(path); err != nil {
			return nil, err
		}
		if f == formatZip {
			return nil, CorruptError(path, "archive inside archive", nil)
		}
	}

	digest, err := ioartifact.FileChecksum(path)
	if err != nil {
		return nil, CorruptError(path, "cannot read file", err)
	}

	slog.Info("Opening snapshot", "year", year, "path", path, "format", f)
	switch f {
	case formatJet:
		return openMDB(path, digest, e.stripYear)
	case formatSQLite:
		return openSQLite(ctx, path, digest, e.stripYear)
	}
	return nil, CorruptError(path, fmt.Sprintf("unexpected format %s", f), nil)
}

// newTable builds a normalized table from source names and native
// types. Unknown native types become text with a warning.
func newTable(
	source string,
	names, natives []string,
	stripYear bool,
) *schema.Table {
	res := schema.Table{Source: source}
	for i := range names {
		typ, ok := schema.MapNative(natives[i])
		res.Columns = append(res.Columns, schema.Column{
			Source: names[i],
			Native: natives[i],
			Type:   typ,
		})
		if !ok {
			res.Warnings = append(res.Warnings, schema.Warning{
				Column: names[i],
				Msg:    fmt.Sprintf("type '%s' is stored as text", natives[i]),
			})
		}
	}
	schema.Normalize(&res, stripYear)
	for i := range res.Warnings {
		res.Warnings[i].Table = res.Name
	}
	return &res
}
