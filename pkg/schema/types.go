package schema

import (
	"strings"
)

// Type is one of the destination column types. Every native type of a
// snapshot is mapped to one of them.
type Type int

const (
	Text Type = iota
	Integer
	Real
	Boolean
	Date
)

var typeNames = map[Type]string{
	Text:    "text",
	Integer: "integer",
	Real:    "real",
	Boolean: "boolean",
	Date:    "date",
}

// String returns the name of the type.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "text"
}

// SQL returns PostgreSQL type used for the type.
func (t Type) SQL() string {
	switch t {
	case Integer:
		return "bigint"
	case Real:
		return "double precision"
	case Boolean:
		return "boolean"
	case Date:
		return "timestamp"
	default:
		return "text"
	}
}

// TypeFromSQL converts a PostgreSQL data_type from information_schema
// back to a Type.
func TypeFromSQL(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "bigint" || s == "integer" || s == "smallint":
		return Integer
	case s == "double precision" || s == "real" || s == "numeric":
		return Real
	case s == "boolean":
		return Boolean
	case s == "date" || strings.HasPrefix(s, "timestamp"):
		return Date
	default:
		return Text
	}
}

// Column is a column of an extracted table.
type Column struct {
	// Name is the destination column name.
	Name string

	// Source is the column name as it appears in the snapshot.
	Source string

	// Native is the declared type in the snapshot.
	Native string

	// Type is the destination type of the native type.
	Type Type
}

// RowReader gives access to rows of an extracted table. Rows can be
// read only once, Next returns io.EOF after the last row.
type RowReader interface {
	// Next returns values of the next row in the order of table
	// columns.
	Next() ([]any, error)

	// Close releases resources of the reader.
	Close() error
}

// Table is a table extracted from a snapshot.
type Table struct {
	// Name is the destination table name.
	Name string

	// Source is the table name inside the snapshot.
	Source string

	// Columns are in the order of values returned by Rows.
	Columns []Column

	// Rows reads the table content.
	Rows RowReader

	// Warnings collects type mapping problems found by the extractor.
	Warnings []Warning
}

// Signature returns a stable description of the columns of a table.
// Used as a part of the table checksum.
func (t *Table) Signature() string {
	var sb strings.Builder
	sb.WriteString(t.Source)
	for _, v := range t.Columns {
		sb.WriteString("|")
		sb.WriteString(v.Source)
		sb.WriteString(":")
		sb.WriteString(v.Native)
	}
	return sb.String()
}
