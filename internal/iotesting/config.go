// Package iotesting provides shared test utilities for integration tests.
// This is an internal package for test infrastructure only.
package iotesting

import (
	"context"
	"os"
	"testing"

	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/pkg/config"
	"github.com/gnames/cinder/pkg/db"
)

const (
	// TestDatabaseName is the database name used for all integration tests.
	// This ensures tests never accidentally run against production databases.
	TestDatabaseName = "cinder_test"
)

// GetTestConfig returns a configuration suitable for integration tests.
// The connection string can be changed with CINDER_TEST_DATABASE_URL,
// the database name is always TestDatabaseName.
func GetTestConfig() *config.Config {
	cfg := config.New()
	if url := os.Getenv("CINDER_TEST_DATABASE_URL"); url != "" {
		cfg.Update([]config.Option{config.OptDatabaseURL(url)})
	}
	cfg.Update([]config.Option{
		config.OptDatabaseDatabase(TestDatabaseName),
		config.OptDatabaseMaxConns(4),
	})
	return cfg
}

// GetTestDatabaseConfig returns only the database configuration for tests.
func GetTestDatabaseConfig() *config.DatabaseConfig {
	cfg := GetTestConfig()
	return &cfg.Database
}

// ConnectOrSkip connects to the test database with all its tables
// dropped. The test is skipped in short mode or when PostgreSQL is not
// reachable.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    op := iotesting.ConnectOrSkip(t)
//	    // ... use op.Pool()
//	}
func ConnectOrSkip(t *testing.T) db.Operator {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, GetTestDatabaseConfig()); err != nil {
		t.Skipf("Skipping integration test, no database: %v", err)
	}
	t.Cleanup(func() { op.Close() })

	if err := op.DropAllTables(ctx); err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return op
}
