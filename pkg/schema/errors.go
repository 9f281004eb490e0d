package schema

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// MonotonicityError is returned when a schema change would remove a
// column or narrow its type.
func MonotonicityError(table, column, reason string) error {
	msg := "Schema of <em>%s</em> cannot change column <em>%s</em>: %s"
	vars := []any{table, column, reason}
	return &gn.Error{
		Code: errcode.ImportMigrationError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf(msg, vars...),
	}
}

// CoerceError is returned when a value cannot be converted to the type
// of its destination column.
func CoerceError(v any, t Type, err error) error {
	msg := "Cannot convert %q to %s"
	vars := []any{fmt.Sprint(v), t}
	return &gn.Error{
		Code: errcode.ImportConstraintViolationError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot convert %q to %s: %w", fmt.Sprint(v), t, err),
	}
}
