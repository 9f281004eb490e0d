package iocatalog

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// CatalogUnavailableError is returned when the index of yearly
// snapshots cannot be read.
func CatalogUnavailableError(url string, err error) error {
	msg := "Cannot read the list of yearly snapshots from <em>%s</em>"
	vars := []any{url}
	return &gn.Error{
		Code: errcode.CatalogUnavailableError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("catalog %s unavailable: %w", url, err),
	}
}

// CatalogFileError is returned when a years.yaml file cannot be read or
// parsed.
func CatalogFileError(path string, err error) error {
	msg := "Cannot use catalog file <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.CatalogFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("catalog file %s: %w", path, err),
	}
}
