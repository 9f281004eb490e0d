package ioextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaOutput = `-- ----------------------------------------------------------
-- MDB Tools - A library for reading MS Access database files
-- Copyright (C) 2000-2011 Brian Bruns and others.
-- ----------------------------------------------------------

-- That file uses encoding UTF-8

CREATE TABLE [HD2004]
 (
	[UNITID]			Long Integer, 
	[INSTNM]			Text (180), 
	[OPENPUBL]			Boolean NOT NULL, 
	[UPDATED]			DateTime
);

CREATE TABLE [Tables04]
 (
	[Table Name]			Text (50), 
	[Share]			Double
);
`

func TestParseSchema(t *testing.T) {
	assert := assert.New(t)
	res, err := parseSchema(strings.NewReader(schemaOutput))
	require.NoError(t, err)
	require.Len(t, res, 2)

	hd := res["HD2004"]
	assert.Equal([]string{"UNITID", "INSTNM", "OPENPUBL", "UPDATED"}, hd.names)
	assert.Equal(
		[]string{"Long Integer", "Text (180)", "Boolean", "DateTime"},
		hd.natives,
	)

	tbls := res["Tables04"]
	assert.Equal([]string{"Table Name", "Share"}, tbls.names)
	assert.Equal([]string{"Text (50)", "Double"}, tbls.natives)
}

func TestNewTable(t *testing.T) {
	tbl := newTable("HD2004",
		[]string{"UNITID", "Inst Name", "LOGO"},
		[]string{"Long Integer", "Text (180)", "OLE"},
		true,
	)
	assert.Equal(t, "hd", tbl.Name)
	assert.Equal(t, "inst_name", tbl.Columns[1].Name)
	require.Len(t, tbl.Warnings, 1)
	assert.Equal(t, "hd", tbl.Warnings[0].Table)
	assert.Equal(t, "LOGO", tbl.Warnings[0].Column)
}

func TestDetectHeader(t *testing.T) {
	jet := func(magic string, version byte) []byte {
		hdr := make([]byte, headerSize)
		copy(hdr[4:], magic)
		hdr[jetVersionOffset] = version
		return hdr
	}

	tests := []struct {
		msg    string
		hdr    []byte
		format format
		isErr  bool
	}{
		{"zip", []byte("PK\x03\x04rest"), formatZip, false},
		{"sqlite", []byte("SQLite format 3\x00more"), formatSQLite, false},
		{"jet4", jet("Standard Jet DB", 1), formatJet, false},
		{"ace16", jet("Standard ACE DB", 5), formatJet, false},
		{"unknown version", jet("Standard ACE DB", 9), formatUnknown, true},
		{"truncated jet", jet("Standard Jet DB", 1)[:0x12], formatUnknown, true},
		{"text", []byte("hello, world, this is not a database"), formatUnknown, true},
		{"empty", nil, formatUnknown, true},
	}

	for _, v := range tests {
		f, err := detectHeader("test", v.hdr)
		assert.Equal(t, v.format, f, v.msg)
		assert.Equal(t, v.isErr, err != nil, v.msg)
	}
}
