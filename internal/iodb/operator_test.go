package iodb_test

import (
	"context"
	"testing"

	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/internal/iotesting"
	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: most of these are integration tests that require PostgreSQL.
// The connection string is taken from CINDER_TEST_DATABASE_URL
// (default postgres://localhost), database is always cinder_test.
// Skip them with: go test -short

func TestPgxOperator_BadConnString(t *testing.T) {
	op := iodb.NewPgxOperator()
	cfg := &config.DatabaseConfig{URL: "postgres://host:notaport"}

	err := op.Connect(context.Background(), cfg)
	require.Error(t, err)

	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ConfigError, gnErr.Code)
}

func TestPgxOperator_NotConnected(t *testing.T) {
	op := iodb.NewPgxOperator()
	ctx := context.Background()

	_, err := op.HasTables(ctx)
	assert.Error(t, err)

	err = op.DropAllTables(ctx)
	assert.Error(t, err)
	assert.Nil(t, op.Pool())
}

func TestPgxOperator_Tables(t *testing.T) {
	op := iotesting.ConnectOrSkip(t)
	ctx := context.Background()

	has, err := op.HasTables(ctx)
	require.NoError(t, err)
	assert.False(t, has, "test database should start empty")

	_, err = op.Pool().Exec(ctx, `CREATE TABLE "HD" (id int)`)
	require.NoError(t, err)

	exists, err := op.TableExists(ctx, "HD")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = op.Pool().Exec(ctx, `CREATE TABLE ic (id int)`)
	require.NoError(t, err)

	require.NoError(t, op.DropAllTables(ctx))

	exists, err = op.TableExists(ctx, "HD")
	require.NoError(t, err)
	assert.False(t, exists)

	// nothing left to drop
	require.NoError(t, op.DropAllTables(ctx))

	var app string
	err = op.Pool().QueryRow(ctx,
		"SELECT current_setting('application_name')").Scan(&app)
	require.NoError(t, err)
	assert.Equal(t, "cinder", app)
}
