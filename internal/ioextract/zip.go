package ioextract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gnames/cinder/internal/ioartifact"
	"github.com/gnames/cinder/pkg/lifecycle"
)

// sourceExt is the extension of the sidecar file that keeps the digest
// of the archive an unpacked database came from.
const sourceExt = ".source"

// dbExts are extensions of database members of snapshot archives.
var dbExts = []string{".accdb", ".mdb", ".sqlite", ".sqlite3", ".db"}

func isDatabase(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, v := range dbExts {
		if ext == v {
			return true
		}
	}
	return false
}

// unpack finds the only database inside a snapshot archive and saves it
// to the artifact store. Folders inside the archive are ignored, only
// base names of members matter. A database unpacked earlier is reused
// only if it came from an archive with the same digest.
func (e *extractor) unpack(ctx context.Context, year int, zipPath string) (string, error) {
	dst := e.store.PathOf(year, lifecycle.Database)
	srcSum, err := ioartifact.FileChecksum(zipPath)
	if err != nil {
		return "", CorruptError(zipPath, "cannot read archive", err)
	}

	if e.store.Exists(year, lifecycle.Database) {
		prev := readSource(dst)
		if prev == srcSum {
			slog.Info("Using unpacked database", "year", year, "path", dst)
			return dst, nil
		}
		slog.Info("Snapshot changed, unpacking again",
			"year", year, "path", zipPath, "was", prev, "now", srcSum)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", CorruptError(zipPath, "cannot open archive", err)
	}
	defer r.Close()

	var member *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if !isDatabase(name) {
			slog.Debug("Skipping archive member", "year", year, "member", f.Name)
			continue
		}
		if member != nil {
			return "", CorruptError(zipPath,
				"more than one database in archive: "+member.Name+", "+f.Name, nil)
		}
		member = f
	}
	if member == nil {
		return "", CorruptError(zipPath, "no database in archive", nil)
	}

	if e.maxUnpacked > 0 && member.UncompressedSize64 > uint64(e.maxUnpacked) {
		return "", e.tooLarge(member.Name, member.UncompressedSize64)
	}

	// the sidecar is written again only after a successful commit
	if err = removeSource(dst); err != nil {
		return "", err
	}
	if err = e.copyMember(ctx, year, member); err != nil {
		return "", err
	}
	if err = writeSource(dst, srcSum); err != nil {
		return "", err
	}
	slog.Info("Unpacked database",
		"year", year,
		"member", member.Name,
		"size", humanize.Bytes(member.UncompressedSize64),
	)
	return dst, nil
}

func (e *extractor) copyMember(ctx context.Context, year int, member *zip.File) error {
	rc, err := member.Open()
	if err != nil {
		return CorruptError(member.Name, "cannot open archive member", err)
	}
	defer rc.Close()

	h, err := e.store.OpenForWrite(year, lifecycle.Database)
	if err != nil {
		return err
	}
	defer h.Close()

	var r io.Reader = ctxReader{ctx: ctx, r: rc}
	if e.maxUnpacked > 0 {
		r = io.LimitReader(r, e.maxUnpacked+1)
	}

	n, err := io.Copy(h, r)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return CorruptError(member.Name, "cannot decompress archive member", err)
	}
	if e.maxUnpacked > 0 && n > e.maxUnpacked {
		return e.tooLarge(member.Name, uint64(n))
	}
	return h.Commit()
}

func (e *extractor) tooLarge(name string, n uint64) error {
	reason := fmt.Sprintf("unpacked database is larger than %s (%d bytes or more)",
		humanize.IBytes(uint64(e.maxUnpacked)), n)
	return CorruptError(name, reason, nil)
}

func readSource(dbPath string) string {
	bs, err := os.ReadFile(dbPath + sourceExt)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bs))
}

func writeSource(dbPath, sum string) error {
	err := os.WriteFile(dbPath+sourceExt, []byte(sum+"\n"), 0o644)
	if err != nil {
		return ioartifact.WriteError(dbPath+sourceExt, err)
	}
	return nil
}

func removeSource(dbPath string) error {
	err := os.Remove(dbPath + sourceExt)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioartifact.WriteError(dbPath+sourceExt, err)
	}
	return nil
}

// ctxReader stops reading when the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
