package ioextract

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// CorruptError is returned for files that cannot be read as a
// snapshot.
func CorruptError(path, reason string, err error) error {
	msg := "Snapshot <em>%s</em> is corrupt: %s"
	vars := []any{path, reason}
	e := fmt.Errorf("%s: %s", path, reason)
	if err != nil {
		e = fmt.Errorf("%s: %s: %w", path, reason, err)
	}
	return &gn.Error{
		Code: errcode.ExtractCorruptError,
		Msg:  msg,
		Vars: vars,
		Err:  e,
	}
}

// UnsupportedVersionError is returned for Jet/ACE databases with an
// unknown format version.
func UnsupportedVersionError(path string, version byte) error {
	msg := "Snapshot <em>%s</em> has unsupported database version 0x%02x"
	vars := []any{path, version}
	return &gn.Error{
		Code: errcode.ExtractUnsupportedVersionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("%s: unsupported Jet/ACE version 0x%02x", path, version),
	}
}

// ReadError is returned when a table cannot be read.
func ReadError(path, table string, err error) error {
	msg := "Cannot read table <em>%s</em> from <em>%s</em>"
	vars := []any{table, path}
	return &gn.Error{
		Code: errcode.ExtractReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("%s: table %s: %w", path, table, err),
	}
}

// MissingToolError is returned when mdbtools are not installed.
func MissingToolError(tool string, err error) error {
	msg := "<em>%s</em> is not found in PATH, install mdbtools"
	vars := []any{tool}
	return &gn.Error{
		Code: errcode.MissingToolError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("%s not found: %w", tool, err),
	}
}
