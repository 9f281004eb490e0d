// Package ioartifact keeps downloaded snapshots, their documentation and
// unpacked databases on the local file system.
//
// Every year has its own directory under the root. Artifacts are
// written to temporary files and renamed to their final names only
// after a successful commit, so a final name always means a complete
// file.
package ioartifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/zeebo/blake3"
)

// sumExt is the extension of checksum sidecar files.
const sumExt = ".blake3"

type store struct {
	root string
}

// New creates an artifact store with the given root directory. The
// directory is created on the first write.
func New(root string) lifecycle.ArtifactStore {
	return &store{root: root}
}

func fileName(year int, kind lifecycle.Kind) string {
	switch kind {
	case lifecycle.Docs:
		return fmt.Sprintf("ipeds_%d_docs", year)
	case lifecycle.Database:
		return fmt.Sprintf("ipeds_%d.db", year)
	default:
		return fmt.Sprintf("ipeds_%d.zip", year)
	}
}

// PathOf returns the final location of an artifact.
func (s *store) PathOf(year int, kind lifecycle.Kind) string {
	return filepath.Join(s.root, strconv.Itoa(year), fileName(year, kind))
}

// Exists checks if a committed artifact is present.
func (s *store) Exists(year int, kind lifecycle.Kind) bool {
	info, err := os.Stat(s.PathOf(year, kind))
	return err == nil && info.Mode().IsRegular()
}

// OpenForWrite creates a temporary file next to the final location of
// the artifact.
func (s *store) OpenForWrite(
	year int,
	kind lifecycle.Kind,
) (lifecycle.WriteHandle, error) {
	path := s.PathOf(year, kind)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, WriteError(path, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return nil, WriteError(path, err)
	}

	res := handle{
		f:      f,
		path:   path,
		hasher: blake3.New(),
	}
	return &res, nil
}

// Checksum returns the digest saved at commit time. For artifacts
// without a sidecar file the digest is calculated and saved.
func (s *store) Checksum(year int, kind lifecycle.Kind) (string, error) {
	path := s.PathOf(year, kind)
	data, err := os.ReadFile(path + sumExt)
	if err == nil {
		sum := strings.TrimSpace(string(data))
		if len(sum) == 64 {
			return sum, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", ChecksumError(path, err)
	}

	sum, err := FileChecksum(path)
	if err != nil {
		return "", ChecksumError(path, err)
	}
	if err = os.WriteFile(path+sumExt, []byte(sum+"\n"), 0644); err != nil {
		return "", ChecksumError(path, err)
	}
	return sum, nil
}

// FileChecksum calculates the hex BLAKE3 digest of a file.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", err
	}
	return digest(hasher), nil
}

func digest(hasher *blake3.Hasher) string {
	var buf [32]byte
	_, _ = hasher.Digest().Read(buf[:])
	return fmt.Sprintf("%x", buf)
}

type handle struct {
	f         *os.File
	path      string
	hasher    *blake3.Hasher
	size      int64
	committed bool
	closed    bool
}

func (h *handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, WriteError(h.path, os.ErrClosed)
	}
	n, err := h.f.Write(p)
	h.size += int64(n)
	_, _ = h.hasher.Write(p[:n])
	if err != nil {
		return n, WriteError(h.path, err)
	}
	return n, nil
}

func (h *handle) Size() int64 {
	return h.size
}

func (h *handle) Checksum() string {
	return digest(h.hasher)
}

// Commit flushes the temporary file to disk and renames it to the final
// name. The digest is saved in a sidecar file.
func (h *handle) Commit() error {
	if h.closed {
		return CommitError(h.path, os.ErrClosed)
	}
	tmp := h.f.Name()
	h.closed = true

	err := h.f.Sync()
	if err == nil {
		err = h.f.Close()
	} else {
		_ = h.f.Close()
	}
	if err == nil {
		err = os.WriteFile(h.path+sumExt, []byte(h.Checksum()+"\n"), 0644)
	}
	if err == nil {
		err = os.Rename(tmp, h.path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return CommitError(h.path, err)
	}
	h.committed = true
	return nil
}

// Close removes the temporary file of an artifact that was not
// committed.
func (h *handle) Close() error {
	if h.committed || h.closed {
		if !h.committed {
			_ = os.Remove(h.f.Name())
		}
		return nil
	}
	h.closed = true
	tmp := h.f.Name()
	_ = h.f.Close()
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
