package ioimport

import (
	"errors"
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/jackc/pgx/v5/pgconn"
)

// NotConnectedError creates an error for when import
// is attempted without database connection.
func NotConnectedError() error {
	msg := "Import attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// ConstraintViolationError creates an error for a row that cannot be
// stored in a destination table. Row is the 1-based number of the row
// in the source table, or 0 when the database did not tell which row
// failed.
func ConstraintViolationError(
	table string,
	year int,
	row int64,
	value any,
	err error,
) error {
	msg := `Row rejected by table <em>%s</em> (year %d)

<em>Row:</em> %s
<em>Value:</em> %v

<em>How to fix:</em>
  1. Add the table to 'import.skip_bad_rows' to skip such rows
  2. Inspect the source table for the year`

	where := "unknown"
	if row > 0 {
		where = fmt.Sprintf("%d", row)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Where != "" {
		where = pgErr.Where
	}
	vars := []any{table, year, where, value}

	return &gn.Error{
		Code: errcode.ImportConstraintViolationError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"table %s, year %d, row %s: %w", table, year, where, err,
		),
	}
}

// MigrationError creates an error for a failed schema change.
func MigrationError(table, stmt string, err error) error {
	msg := `Cannot change table <em>%s</em>

<em>Statement:</em> %s`
	vars := []any{table, stmt}

	return &gn.Error{
		Code: errcode.ImportMigrationError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("migration of %s failed: %w", table, err),
	}
}

// LoadError creates an error for failures to read or write rows that
// are not caused by a particular row.
func LoadError(table string, year int, err error) error {
	msg := "Cannot load table <em>%s</em> for year %d"
	vars := []any{table, year}

	return &gn.Error{
		Code: errcode.ImportLoadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("load of %s (%d) failed: %w", table, year, err),
	}
}
