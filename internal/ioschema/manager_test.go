package ioschema

import (
	"context"
	"testing"

	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManager_ImplementsInterface verifies manager
// implements lifecycle.SchemaManager interface.
func TestManager_ImplementsInterface(t *testing.T) {
	op := iodb.NewPgxOperator()
	var _ lifecycle.SchemaManager = NewManager(op)
}

// TestManager_NotConnected verifies that operations
// fail without a connection pool.
func TestManager_NotConnected(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(iodb.NewPgxOperator())
	require.NotNil(t, mgr)

	err := mgr.Create(ctx)
	assert.Error(t, err)

	res, err := mgr.Introspect(ctx)
	assert.Error(t, err)
	assert.Nil(t, res)
}
