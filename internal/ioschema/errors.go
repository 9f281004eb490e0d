package ioschema

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// NotConnectedError creates an error for when schema
// operation is attempted without database connection.
func NotConnectedError() error {
	msg := "Schema operation attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// GORMConnectionError creates an error for GORM
// connection failures.
func GORMConnectionError(err error) error {
	msg := `Cannot connect to database with GORM

<em>Possible causes:</em>
  - Connection pool not initialized
  - Database configuration issue

<em>How to fix:</em>
  1. Ensure database operator is connected
  2. Check database configuration`

	return &gn.Error{
		Code: errcode.SchemaGORMConnectionError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to connect with GORM: %w", err),
	}
}

// CreateSchemaError creates an error for bookkeeping
// tables creation failures.
func CreateSchemaError(err error) error {
	msg := `Cannot create bookkeeping tables

<em>Possible causes:</em>
  - Insufficient database permissions
  - A table with the same name and different columns exists

<em>How to fix:</em>
  1. Check database user has CREATE permissions
  2. Run 'cinder reset' to start from an empty database`

	return &gn.Error{
		Code: errcode.SchemaCreateError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to create schema: %w", err),
	}
}

// IntrospectError creates an error for failures to read
// existing tables.
func IntrospectError(err error) error {
	msg := "Cannot read columns of existing tables"

	return &gn.Error{
		Code: errcode.SchemaIntrospectError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to read information_schema: %w", err),
	}
}

// SaveRunError creates an error for failures to save
// a run report.
func SaveRunError(id string, err error) error {
	msg := "Cannot save report of run <em>%s</em>"
	vars := []any{id}

	return &gn.Error{
		Code: errcode.SchemaSaveRunError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to save run %s: %w", id, err),
	}
}
