package schema

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ColumnDef is a column of a destination table.
type ColumnDef struct {
	Name string
	Type Type
}

// TableSchema is the ordered set of columns of a destination table.
// The source_year column is implied and is not part of Columns.
type TableSchema struct {
	Name    string
	Columns []ColumnDef
}

// Exists returns true if the table was already created.
func (ts TableSchema) Exists() bool {
	return len(ts.Columns) > 0
}

// Column finds a column by its name.
func (ts TableSchema) Column(name string) (ColumnDef, bool) {
	for _, v := range ts.Columns {
		if v.Name == name {
			return v, true
		}
	}
	return ColumnDef{}, false
}

// Clone returns a deep copy of the schema.
func (ts TableSchema) Clone() TableSchema {
	res := TableSchema{Name: ts.Name}
	if ts.Columns != nil {
		res.Columns = make([]ColumnDef, len(ts.Columns))
		copy(res.Columns, ts.Columns)
	}
	return res
}

// Policy sets how type conflicts are resolved.
type Policy struct {
	// PromoteNumeric widens integer and real to real. If false, such
	// conflict widens to text, as any other conflict.
	PromoteNumeric bool
}

// Warning describes a schema change that loses meaning of the data.
// It is a value, not an error.
type Warning struct {
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
	Msg    string `json:"message"`
}

func (w Warning) String() string {
	if w.Column == "" {
		return fmt.Sprintf("%s: %s", w.Table, w.Msg)
	}
	return fmt.Sprintf("%s.%s: %s", w.Table, w.Column, w.Msg)
}

// OpKind is the kind of migration operation.
type OpKind int

const (
	CreateTable OpKind = iota
	AddColumn
	WidenColumn
)

func (k OpKind) String() string {
	switch k {
	case CreateTable:
		return "create_table"
	case AddColumn:
		return "add_column"
	case WidenColumn:
		return "widen_column"
	}
	return "unknown"
}

// Op is a single migration operation.
type Op struct {
	Kind OpKind
	// Column is set for AddColumn and WidenColumn.
	Column ColumnDef
	// Columns is set for CreateTable.
	Columns []ColumnDef
}

// MigrationPlan is the list of operations that brings a destination
// table to the reconciled schema.
type MigrationPlan struct {
	Table string
	Ops   []Op
}

// Empty is true when the destination table does not need changes.
func (p MigrationPlan) Empty() bool {
	return len(p.Ops) == 0
}

// SQL renders the plan as PostgreSQL statements. All statements can be
// repeated safely.
func (p MigrationPlan) SQL() []string {
	tbl := quote(p.Table)
	var res []string
	for _, op := range p.Ops {
		switch op.Kind {
		case CreateTable:
			cols := quote(SourceYearColumn) + " integer NOT NULL"
			for _, c := range op.Columns {
				cols += ", " + quote(c.Name) + " " + c.Type.SQL()
			}
			res = append(res,
				fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tbl, cols),
				fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
					quote(truncate(p.Table+"_source_year_idx")),
					tbl, quote(SourceYearColumn),
				),
			)
		case AddColumn:
			res = append(res, fmt.Sprintf(
				"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
				tbl, quote(op.Column.Name), op.Column.Type.SQL(),
			))
		case WidenColumn:
			col := quote(op.Column.Name)
			typ := op.Column.Type.SQL()
			res = append(res, fmt.Sprintf(
				"ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
				tbl, col, typ, col, typ,
			))
		}
	}
	return res
}

// Reconcile merges the columns of an incoming table into the current
// destination schema. It does not touch any storage.
//
// New columns are appended, columns absent from the incoming table are
// kept, and conflicting types are widened. The result never has fewer
// columns than current and a column type never narrows.
func Reconcile(
	current TableSchema,
	incoming *Table,
	p Policy,
) (TableSchema, MigrationPlan, []Warning) {
	res := current.Clone()
	res.Name = incoming.Name
	plan := MigrationPlan{Table: incoming.Name}
	var warns []Warning

	if !current.Exists() {
		seen := make(map[string]struct{}, len(incoming.Columns))
		for _, v := range incoming.Columns {
			if _, ok := seen[v.Name]; ok {
				continue
			}
			seen[v.Name] = struct{}{}
			res.Columns = append(res.Columns, ColumnDef{Name: v.Name, Type: v.Type})
		}
		plan.Ops = append(plan.Ops, Op{
			Kind:    CreateTable,
			Columns: res.Clone().Columns,
		})
		return res, plan, warns
	}

	idx := make(map[string]int, len(res.Columns))
	for i, v := range res.Columns {
		idx[v.Name] = i
	}

	for _, v := range incoming.Columns {
		i, ok := idx[v.Name]
		if !ok {
			col := ColumnDef{Name: v.Name, Type: v.Type}
			res.Columns = append(res.Columns, col)
			idx[v.Name] = len(res.Columns) - 1
			plan.Ops = append(plan.Ops, Op{Kind: AddColumn, Column: col})
			continue
		}

		have := res.Columns[i].Type
		wide := Widen(have, v.Type, p)
		if wide == have {
			continue
		}
		res.Columns[i].Type = wide
		plan.Ops = append(plan.Ops, Op{Kind: WidenColumn, Column: res.Columns[i]})
		warns = append(warns, Warning{
			Table:  res.Name,
			Column: v.Name,
			Msg: fmt.Sprintf(
				"type conflict %s vs %s (%s in %s), widened to %s",
				have, v.Type, v.Native, incoming.Source, wide,
			),
		})
	}
	return res, plan, warns
}

// Widen returns the narrowest type that can hold values of both types.
func Widen(a, b Type, p Policy) Type {
	if a == b {
		return a
	}
	if p.PromoteNumeric && isNumeric(a) && isNumeric(b) {
		return Real
	}
	return Text
}

func isNumeric(t Type) bool {
	return t == Integer || t == Real
}

func quote(s string) string {
	return pgx.Identifier{s}.Sanitize()
}
