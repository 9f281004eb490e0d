package schema_test

import (
	"testing"

	"github.com/gnames/cinder/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestMapNative(t *testing.T) {
	tests := []struct {
		native string
		typ    schema.Type
		ok     bool
	}{
		{"Long Integer", schema.Integer, true},
		{"Byte", schema.Integer, true},
		{"Integer", schema.Integer, true},
		{"Single", schema.Real, true},
		{"Double", schema.Real, true},
		{"Currency", schema.Real, true},
		{"Numeric (18, 0)", schema.Real, true},
		{"Text (255)", schema.Text, true},
		{"Memo/Hyperlink (255)", schema.Text, true},
		{"Boolean", schema.Boolean, true},
		{"DateTime", schema.Date, true},
		{"VARCHAR(20)", schema.Text, true},
		{"UNSIGNED BIG INT", schema.Integer, true},
		{"timestamp without time zone", schema.Date, true},
		{"OLE", schema.Text, false},
		{"Replication ID", schema.Text, false},
		{"geometry", schema.Text, false},
		{"", schema.Text, false},
	}

	for _, v := range tests {
		typ, ok := schema.MapNative(v.native)
		assert.Equal(t, v.typ, typ, v.native)
		assert.Equal(t, v.ok, ok, v.native)
	}
}

func TestMapNativeDeterministic(t *testing.T) {
	for range 10 {
		typ, _ := schema.MapNative("Long Integer")
		assert.Equal(t, schema.Integer, typ)
	}
}

func TestTypeSQL(t *testing.T) {
	types := []schema.Type{
		schema.Text, schema.Integer, schema.Real, schema.Boolean, schema.Date,
	}
	for _, v := range types {
		assert.Equal(t, v, schema.TypeFromSQL(v.SQL()), v.String())
	}
	assert.Equal(t, schema.Date, schema.TypeFromSQL("timestamp without time zone"))
	assert.Equal(t, schema.Text, schema.TypeFromSQL("character varying"))
}
