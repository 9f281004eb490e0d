package iooptimize_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/internal/iooptimize"
	"github.com/gnames/cinder/internal/ioschema"
	"github.com/gnames/cinder/internal/iotesting"
	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeNotConnected(t *testing.T) {
	opt := iooptimize.NewOptimizer(iodb.NewPgxOperator())
	err := opt.Optimize(context.Background(), []string{"hd"})
	require.Error(t, err)

	var gnErr *gn.Error
	require.True(t, errors.As(err, &gnErr))
	assert.Equal(t, errcode.DBNotConnectedError, gnErr.Code)
}

func TestVacuumError(t *testing.T) {
	err := iooptimize.VacuumError("hd", errors.New("must be owner"))

	var gnErr *gn.Error
	require.True(t, errors.As(err, &gnErr))
	assert.Equal(t, errcode.OptimizeVacuumError, gnErr.Code)
	assert.Equal(t, []any{"hd"}, gnErr.Vars)
	assert.Contains(t, err.Error(), "must be owner")
}

func TestOptimizeIntegration(t *testing.T) {
	op := iotesting.ConnectOrSkip(t)
	ctx := context.Background()
	require.NoError(t, ioschema.NewManager(op).Create(ctx))

	_, err := op.Pool().Exec(ctx, `CREATE TABLE hd (
  source_year integer NOT NULL, unitid bigint)`)
	require.NoError(t, err)
	_, err = op.Pool().Exec(ctx,
		`INSERT INTO hd VALUES (2004, 1), (2004, 2), (2005, 1)`)
	require.NoError(t, err)
	_, err = op.Pool().Exec(ctx, `DELETE FROM hd WHERE source_year = 2004`)
	require.NoError(t, err)

	opt := iooptimize.NewOptimizer(op)
	require.NoError(t, opt.Optimize(ctx, nil))
	require.NoError(t, opt.Optimize(ctx, []string{"hd"}))

	// statistics count only the live row
	var tuples float32
	err = op.Pool().QueryRow(ctx,
		`SELECT reltuples FROM pg_class WHERE relname = 'hd'`).Scan(&tuples)
	require.NoError(t, err)
	assert.Equal(t, float32(1), tuples)

	err = opt.Optimize(ctx, []string{"no_such_table"})
	assert.Error(t, err)
}
