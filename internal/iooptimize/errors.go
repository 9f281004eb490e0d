package iooptimize

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// NotConnectedError creates an error for when optimization
// is attempted without database connection.
func NotConnectedError() error {
	msg := "Optimization attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// VacuumError creates an error for a failed VACUUM ANALYZE of a table.
// Imported data is not affected by it.
func VacuumError(table string, err error) error {
	msg := `Cannot vacuum table <em>%s</em>

Imported data is saved, only statistics of the table are outdated.

<em>How to fix:</em>
  1. Check that the database user owns the table
  2. Run <em>VACUUM ANALYZE</em> manually later`

	return &gn.Error{
		Code: errcode.OptimizeVacuumError,
		Msg:  msg,
		Vars: []any{table},
		Err:  fmt.Errorf("vacuum analyze of %s: %w", table, err),
	}
}
