// Package iooptimize implements lifecycle.Optimizer. It runs after an
// ingestion run and cleans up destination tables that got new rows.
package iooptimize

import (
	"context"
	"log/slog"
	"time"

	"github.com/gnames/cinder/pkg/db"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5"
)

type optimizer struct {
	operator db.Operator
}

// NewOptimizer creates a new Optimizer.
func NewOptimizer(op db.Operator) lifecycle.Optimizer {
	return &optimizer{operator: op}
}

// Optimize runs VACUUM ANALYZE on every given table and on the import
// bookkeeping table. A year reload deletes the old rows of the year
// before copying new ones, so loaded tables accumulate dead tuples and
// outdated statistics.
//
// VACUUM cannot run inside a transaction block, every table gets its
// own statement.
func (o *optimizer) Optimize(ctx context.Context, tables []string) error {
	pool := o.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}
	if len(tables) == 0 {
		return nil
	}

	timeStart := time.Now()
	slog.Info("Running VACUUM ANALYZE", "tables", len(tables))

	all := append(tables[:len(tables):len(tables)], schema.ImportRecord{}.TableName())
	for _, v := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := "VACUUM (ANALYZE) " + pgx.Identifier{v}.Sanitize()
		if _, err := pool.Exec(ctx, q); err != nil {
			slog.Error("VACUUM ANALYZE failed", "table", v, "error", err)
			return VacuumError(v, err)
		}
		slog.Debug("Table vacuumed", "table", v)
	}

	slog.Info("VACUUM ANALYZE completed",
		"tables", len(all),
		"duration", gnfmt.TimeString(time.Since(timeStart).Seconds()),
	)
	return nil
}
