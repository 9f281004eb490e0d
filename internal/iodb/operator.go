// Package iodb implements db.Operator with a pgxpool connection pool.
package iodb

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// invalidCatalogName is SQLSTATE of a connection to a database that
// does not exist.
const invalidCatalogName = "3D000"

type pgxOperator struct {
	pool *pgxpool.Pool
}

// NewPgxOperator creates a new database operator
// (without connecting).
func NewPgxOperator() db.Operator {
	return &pgxOperator{}
}

// Connect establishes a connection pool to PostgreSQL.
// The database name from the config replaces the one of the
// connection string, and the database is created if it does not
// exist yet. The pool size is taken from MaxConns and does not depend
// on the number of concurrent pipelines.
func (p *pgxOperator) Connect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) error {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return ConnStringError(err)
	}
	cc := poolConfig.ConnConfig
	if cfg.Database != "" {
		cc.Database = cfg.Database
	}
	cc.RuntimeParams["application_name"] = config.AppName

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	// COPY of a large table can keep a connection busy for a long
	// time, connections are never recycled during a run.
	poolConfig.MaxConnLifetime = 0
	poolConfig.MaxConnIdleTime = 0

	pool, err := p.open(ctx, poolConfig)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidCatalogName {
		if err = createDatabase(ctx, cc); err != nil {
			return err
		}
		pool, err = p.open(ctx, poolConfig)
	}
	if err != nil {
		return ConnectionError(cc.Host, int(cc.Port), cc.Database, cc.User, err)
	}

	p.pool = pool
	return nil
}

func (p *pgxOperator) open(
	ctx context.Context,
	poolConfig *pgxpool.Config,
) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// createDatabase connects to the maintenance database of the server
// and creates the destination database.
func createDatabase(ctx context.Context, cc *pgx.ConnConfig) error {
	name := cc.Database
	admin := cc.Copy()
	admin.Database = "postgres"

	conn, err := pgx.ConnectConfig(ctx, admin)
	if err != nil {
		return CreateDatabaseError(name, err)
	}
	defer conn.Close(ctx)

	q := "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
	if _, err = conn.Exec(ctx, q); err != nil {
		return CreateDatabaseError(name, err)
	}
	slog.Info("Created database", "database", name)
	return nil
}

// Close releases all database connections.
func (p *pgxOperator) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Pool returns the underlying pgxpool.Pool.
func (p *pgxOperator) Pool() *pgxpool.Pool {
	return p.pool
}

// TableExists checks if a table exists in the public schema.
func (p *pgxOperator) TableExists(
	ctx context.Context,
	tableName string,
) (bool, error) {
	tables, err := p.tables(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(tables, tableName), nil
}

// HasTables checks if the database has any tables in the
// public schema.
func (p *pgxOperator) HasTables(ctx context.Context) (bool, error) {
	tables, err := p.tables(ctx)
	if err != nil {
		return false, err
	}
	return len(tables) > 0, nil
}

// DropAllTables drops all tables in the public schema with one
// statement, so a failure leaves the database untouched.
func (p *pgxOperator) DropAllTables(ctx context.Context) error {
	tables, err := p.tables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return nil
	}

	idents := make([]string, len(tables))
	for i, v := range tables {
		idents[i] = pgx.Identifier{v}.Sanitize()
	}
	q := "DROP TABLE IF EXISTS " + strings.Join(idents, ", ") + " CASCADE"
	if _, err = p.pool.Exec(ctx, q); err != nil {
		return DropTableError(strings.Join(tables, ", "), err)
	}
	slog.Info("Dropped tables", "count", len(tables))
	return nil
}

func (p *pgxOperator) tables(ctx context.Context) ([]string, error) {
	if p.pool == nil {
		return nil, NotConnectedError()
	}

	rows, err := p.pool.Query(ctx, `
SELECT tablename FROM pg_tables
  WHERE schemaname = 'public'
  ORDER BY tablename`)
	if err != nil {
		return nil, QueryTablesError(err)
	}

	res, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, ScanTableError(err)
	}
	return res, nil
}
