package pipeline

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// CancelledError is the reason of pipelines stopped by cancellation.
func CancelledError(year int, err error) error {
	msg := "Ingestion of year <em>%d</em> was cancelled"
	vars := []any{year}
	return &gn.Error{
		Code: errcode.PipelineCancelledError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("year %d cancelled: %w", year, err),
	}
}

// TablesFailedError summarizes table failures of a year.
func TablesFailedError(year, failed, total int) error {
	msg := "Year <em>%d</em>: %d of %d tables failed to import"
	vars := []any{year, failed, total}
	return &gn.Error{
		Code: errcode.ImportConstraintViolationError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("year %d: %d of %d tables failed",
			year, failed, total),
	}
}

// YearsFailedError is returned by a run where at least one year failed.
func YearsFailedError(failed, total int) error {
	msg := "%d of %d years failed, see the report"
	vars := []any{failed, total}
	return &gn.Error{
		Code: errcode.PipelineYearsFailedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("%d of %d years failed", failed, total),
	}
}
