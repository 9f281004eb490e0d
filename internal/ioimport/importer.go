// Package ioimport loads extracted tables into PostgreSQL.
//
// Every (table, year) pair is loaded in its own transaction: the
// migration plan is applied, rows of the year are replaced with
// CopyFrom, and the import record is upserted. Readers see either all
// rows of the year or none of them.
package ioimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gnames/cinder/pkg/db"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/gnames/gnuuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Metrics receives the number of loaded rows.
type Metrics interface {
	AddRows(n int64)
}

type importer struct {
	operator db.Operator
	skip     map[string]struct{}
	metrics  Metrics
}

// Option changes defaults of the importer.
type Option func(*importer)

// OptMetrics sets the receiver of import statistics.
func OptMetrics(m Metrics) Option {
	return func(im *importer) {
		im.metrics = m
	}
}

// New creates an importer. Tables from skipBadRows skip rows that
// cannot be converted to destination types, all other tables abort
// the import on such rows.
func New(
	op db.Operator,
	skipBadRows []string,
	opts ...Option,
) lifecycle.Importer {
	res := &importer{
		operator: op,
		skip:     make(map[string]struct{}, len(skipBadRows)),
	}
	for _, v := range skipBadRows {
		res.skip[v] = struct{}{}
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

const checksumQ = `SELECT checksum FROM import_records
  WHERE table_name = $1 AND source_year = $2`

// Imported checks if the table was loaded for the year with the same
// checksum.
func (im *importer) Imported(
	ctx context.Context,
	table string,
	year int,
	checksum string,
) (bool, error) {
	pool := im.operator.Pool()
	if pool == nil {
		return false, NotConnectedError()
	}

	var cs string
	err := pool.QueryRow(ctx, checksumQ, table, year).Scan(&cs)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, LoadError(table, year, err)
	}
	return cs == checksum, nil
}

// Import loads rows of a table for a year. A transaction that started
// is finished even if ctx is cancelled.
func (im *importer) Import(
	ctx context.Context,
	plan schema.MigrationPlan,
	target schema.TableSchema,
	tbl *schema.Table,
	year int,
	checksum string,
) (lifecycle.ImportResult, error) {
	var res lifecycle.ImportResult
	pool := im.operator.Pool()
	if pool == nil {
		return res, NotConnectedError()
	}
	ctx = context.WithoutCancel(ctx)
	table := target.Name

	types := make([]schema.Type, len(tbl.Columns))
	cols := make([]string, len(tbl.Columns)+1)
	cols[0] = schema.SourceYearColumn
	for i, v := range tbl.Columns {
		col, ok := target.Column(v.Name)
		if !ok {
			return res, LoadError(table, year,
				fmt.Errorf("column %s is missing in destination schema", v.Name))
		}
		types[i] = col.Type
		cols[i+1] = v.Name
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return res, LoadError(table, year, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes the existence check and the upsert of the import
	// record for the (table, year) pair.
	_, err = tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1), $2)", table, year)
	if err != nil {
		return res, LoadError(table, year, err)
	}

	var cs string
	err = tx.QueryRow(ctx, checksumQ, table, year).Scan(&cs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return res, LoadError(table, year, err)
	}
	if err == nil && cs == checksum {
		res.Unchanged = true
		res.Record = schema.ImportRecord{
			Table:       table,
			SourceYear:  year,
			SourceTable: tbl.Source,
			Checksum:    checksum,
		}
		return res, nil
	}

	for _, stmt := range plan.SQL() {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return res, MigrationError(table, stmt, err)
		}
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{schema.SourceYearColumn}.Sanitize(),
	)
	if _, err = tx.Exec(ctx, del, year); err != nil {
		return res, LoadError(table, year, err)
	}

	_, skip := im.skip[table]
	src := &rowSource{
		rows:  tbl.Rows,
		types: types,
		table: table,
		year:  year,
		skip:  skip,
	}
	count, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, src)
	if src.err != nil {
		return res, src.err
	}
	if err != nil {
		return res, copyError(table, year, err)
	}

	rec := schema.ImportRecord{
		ID:          gnuuid.New(fmt.Sprintf("%s|%d", table, year)).String(),
		Table:       table,
		SourceYear:  year,
		SourceTable: tbl.Source,
		RowCount:    count,
		SkippedRows: src.skipped,
		Checksum:    checksum,
		ImportedAt:  time.Now().UTC(),
	}
	if err = upsertRecord(ctx, tx, rec); err != nil {
		return res, LoadError(table, year, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return res, LoadError(table, year, err)
	}

	if im.metrics != nil {
		im.metrics.AddRows(count)
	}
	res.Record = rec
	return res, nil
}

func upsertRecord(ctx context.Context, tx pgx.Tx, rec schema.ImportRecord) error {
	q := `INSERT INTO import_records
  (id, table_name, source_year, source_table, row_count,
   skipped_rows, checksum, imported_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
  ON CONFLICT (table_name, source_year) DO UPDATE SET
    source_table = EXCLUDED.source_table,
    row_count = EXCLUDED.row_count,
    skipped_rows = EXCLUDED.skipped_rows,
    checksum = EXCLUDED.checksum,
    imported_at = EXCLUDED.imported_at`

	_, err := tx.Exec(ctx, q,
		rec.ID, rec.Table, rec.SourceYear, rec.SourceTable,
		rec.RowCount, rec.SkippedRows, rec.Checksum, rec.ImportedAt,
	)
	return err
}

// copyError separates data errors (SQLSTATE classes 22 and 23) from
// other failures of CopyFrom.
func copyError(table string, year int, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return ConstraintViolationError(table, year, 0, pgErr.Detail, err)
	}
	return LoadError(table, year, err)
}
