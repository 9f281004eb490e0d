package iopipeline

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// YearNotListedError creates an error for a requested year that is
// absent from the catalog.
func YearNotListedError(year int) error {
	msg := `Year <em>%d</em> is not in the catalog

<em>How to fix:</em>
  1. Run 'cinder years' to see available years`
	vars := []any{year}

	return &gn.Error{
		Code: errcode.PipelineYearNotListedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("year %d is not listed", year),
	}
}

// DuplicateTableError creates an error for two tables of a snapshot
// that get the same destination name.
func DuplicateTableError(year int, table, source, other string) error {
	msg := "Tables <em>%s</em> and <em>%s</em> of year %d both map to %s"
	vars := []any{other, source, year, table}

	return &gn.Error{
		Code: errcode.PipelineDuplicateTableError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("year %d: %s and %s map to table %s",
			year, other, source, table),
	}
}

// ReportError creates an error for a report that could not be saved.
func ReportError(path string, err error) error {
	msg := "Cannot save report to <em>%s</em>"
	vars := []any{path}

	return &gn.Error{
		Code: errcode.PipelineReportError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot write %s: %w", path, err),
	}
}
