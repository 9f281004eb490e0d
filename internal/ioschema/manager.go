// Package ioschema implements SchemaManager interface for
// the destination database. This is an impure I/O package
// that wraps GORM AutoMigrate for bookkeeping tables and
// reads columns of snapshot tables from information_schema.
package ioschema

import (
	"context"

	"github.com/gnames/cinder/pkg/db"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// manager implements the lifecycle.SchemaManager interface.
type manager struct {
	operator db.Operator
}

// NewManager creates a new SchemaManager.
func NewManager(op db.Operator) lifecycle.SchemaManager {
	return &manager{operator: op}
}

func (m *manager) gorm() (*gorm.DB, error) {
	pool := m.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	db := stdlib.OpenDBFromPool(pool)

	// Connect with GORM
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: db}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, GORMConnectionError(err)
	}
	return gormDB, nil
}

// Create creates bookkeeping tables using GORM AutoMigrate.
// It is safe to run on every start.
func (m *manager) Create(ctx context.Context) error {
	gormDB, err := m.gorm()
	if err != nil {
		return err
	}

	// Run GORM AutoMigrate to create schema
	if err := schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return CreateSchemaError(err)
	}
	return nil
}

// Introspect reads columns of snapshot tables in the public schema.
// The source_year column and bookkeeping tables are left out.
func (m *manager) Introspect(
	ctx context.Context,
) (map[string]schema.TableSchema, error) {
	pool := m.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	q := `SELECT table_name, column_name, data_type
  FROM information_schema.columns
  WHERE table_schema = 'public'
  ORDER BY table_name, ordinal_position`

	rows, err := pool.Query(ctx, q)
	if err != nil {
		return nil, IntrospectError(err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var ci columnInfo
		if err = rows.Scan(&ci.table, &ci.column, &ci.dataType); err != nil {
			return nil, IntrospectError(err)
		}
		cols = append(cols, ci)
	}
	if err = rows.Err(); err != nil {
		return nil, IntrospectError(err)
	}

	return groupColumns(cols), nil
}

// SaveRun stores the report of an ingestion run.
func (m *manager) SaveRun(ctx context.Context, run schema.IngestRun) error {
	gormDB, err := m.gorm()
	if err != nil {
		return err
	}
	if err = gormDB.WithContext(ctx).Create(&run).Error; err != nil {
		return SaveRunError(run.ID, err)
	}
	return nil
}
