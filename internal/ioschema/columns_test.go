package ioschema

import (
	"testing"

	"github.com/gnames/cinder/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupColumns(t *testing.T) {
	cols := []columnInfo{
		{"hd", "source_year", "integer"},
		{"hd", "unitid", "bigint"},
		{"hd", "instnm", "text"},
		{"hd", "score", "double precision"},
		{"ic_ay", "source_year", "integer"},
		{"ic_ay", "updated", "timestamp without time zone"},
		{"import_records", "table_name", "text"},
		{"ingest_runs", "id", "uuid"},
	}

	res := groupColumns(cols)
	require.Len(t, res, 2)
	assert.Equal(t, []schema.ColumnDef{
		{Name: "unitid", Type: schema.Integer},
		{Name: "instnm", Type: schema.Text},
		{Name: "score", Type: schema.Real},
	}, res["hd"].Columns)
	assert.Equal(t, "ic_ay", res["ic_ay"].Name)
	assert.Equal(t, schema.Date, res["ic_ay"].Columns[0].Type)
}
