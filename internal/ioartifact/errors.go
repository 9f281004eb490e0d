package ioartifact

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

func WriteError(path string, err error) error {
	msg := "Cannot write artifact <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.ArtifactWriteError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot write %s: %w", path, err),
	}
}

func CommitError(path string, err error) error {
	msg := "Cannot save artifact <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.ArtifactCommitError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot commit %s: %w", path, err),
	}
}

func ChecksumError(path string, err error) error {
	msg := "Cannot calculate checksum of <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.ArtifactChecksumError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot checksum %s: %w", path, err),
	}
}
