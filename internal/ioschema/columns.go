package ioschema

import (
	"github.com/gnames/cinder/pkg/schema"
)

type columnInfo struct {
	table, column, dataType string
}

// groupColumns builds table schemas from information_schema rows
// that are sorted by table and column position.
func groupColumns(cols []columnInfo) map[string]schema.TableSchema {
	res := make(map[string]schema.TableSchema)
	for _, v := range cols {
		if schema.IsBookkeeping(v.table) || v.column == schema.SourceYearColumn {
			continue
		}
		ts := res[v.table]
		ts.Name = v.table
		ts.Columns = append(ts.Columns, schema.ColumnDef{
			Name: v.column,
			Type: schema.TypeFromSQL(v.dataType),
		})
		res[v.table] = ts
	}
	return res
}
