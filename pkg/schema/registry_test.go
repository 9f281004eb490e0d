package schema_test

import (
	"sync"
	"testing"
	"time"

	"github.com/gnames/cinder/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetSet(t *testing.T) {
	assert := assert.New(t)
	reg := schema.NewRegistry(nil)

	ts := reg.Get("hd")
	assert.Equal("hd", ts.Name)
	assert.False(ts.Exists())

	ts.Columns = []schema.ColumnDef{{Name: "unitid", Type: schema.Integer}}
	require.NoError(t, reg.Set(ts))

	got := reg.Get("hd")
	assert.True(got.Exists())

	// returned schema is a copy
	got.Columns[0].Name = "changed"
	assert.Equal("unitid", reg.Get("hd").Columns[0].Name)
	assert.Len(reg.Snapshot(), 1)
}

func TestRegistryRejectsShrinking(t *testing.T) {
	reg := schema.NewRegistry(map[string]schema.TableSchema{
		"hd": {Name: "hd", Columns: []schema.ColumnDef{
			{Name: "unitid", Type: schema.Integer},
			{Name: "name", Type: schema.Text},
		}},
	})

	err := reg.Set(schema.TableSchema{Name: "hd", Columns: []schema.ColumnDef{
		{Name: "unitid", Type: schema.Integer},
	}})
	assert.Error(t, err)

	err = reg.Set(schema.TableSchema{Name: "hd", Columns: []schema.ColumnDef{
		{Name: "unitid", Type: schema.Integer},
		{Name: "name", Type: schema.Boolean},
	}})
	assert.Error(t, err)

	err = reg.Set(schema.TableSchema{Name: "hd", Columns: []schema.ColumnDef{
		{Name: "unitid", Type: schema.Real},
		{Name: "name", Type: schema.Text},
	}})
	assert.NoError(t, err)
}

func TestRegistryLock(t *testing.T) {
	reg := schema.NewRegistry(nil)

	var mu sync.Mutex
	var active, maxActive int
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock("hd")
			defer unlock()

			mu.Lock()
			active++
			maxActive = max(maxActive, active)
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)

	// different tables do not block each other
	unlockA := reg.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := reg.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of table b waited for table a")
	}
	unlockA()
}
