package ioimport

import (
	"fmt"

	"github.com/gnames/cinder/pkg/schema"
	"github.com/zeebo/blake3"
)

// Checksum identifies the content of a source table. It combines the
// digest of the snapshot file with the table name and its columns, so
// a new release of a year's snapshot invalidates earlier imports.
func Checksum(digest string, tbl *schema.Table) string {
	hasher := blake3.New()
	_, _ = fmt.Fprintf(hasher, "%s\n%s", digest, tbl.Signature())
	var buf [32]byte
	_, _ = hasher.Digest().Read(buf[:])
	return fmt.Sprintf("%x", buf)
}
