package ioimport

import (
	"errors"
	"io"
	"testing"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/cinder/pkg/schema"
	"github.com/gnames/gn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceRows struct {
	rows [][]any
	err  error
	i    int
}

func (s *sliceRows) Next() ([]any, error) {
	if s.i >= len(s.rows) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	s.i++
	return s.rows[s.i-1], nil
}

func (s *sliceRows) Close() error { return nil }

func collect(src *rowSource) [][]any {
	var res [][]any
	for src.Next() {
		vals, _ := src.Values()
		res = append(res, vals)
	}
	return res
}

func TestRowSource(t *testing.T) {
	rows := &sliceRows{rows: [][]any{
		{"1", "Alpha"},
		{int64(2), nil},
	}}
	src := &rowSource{
		rows:  rows,
		types: []schema.Type{schema.Integer, schema.Text},
		table: "hd",
		year:  2004,
	}
	res := collect(src)
	require.NoError(t, src.Err())
	assert.Equal(t, [][]any{
		{2004, int64(1), "Alpha"},
		{2004, int64(2), nil},
	}, res)
}

func TestRowSourceBadRow(t *testing.T) {
	tests := []struct {
		msg     string
		skip    bool
		loaded  int
		skipped int64
		fail    bool
	}{
		{"abort", false, 1, 0, true},
		{"skip", true, 2, 1, false},
	}

	for _, v := range tests {
		rows := &sliceRows{rows: [][]any{
			{"1"}, {"one"}, {"3"},
		}}
		src := &rowSource{
			rows:  rows,
			types: []schema.Type{schema.Integer},
			table: "hd",
			year:  2004,
			skip:  v.skip,
		}
		res := collect(src)
		assert.Len(t, res, v.loaded, v.msg)
		assert.Equal(t, v.skipped, src.skipped, v.msg)
		if !v.fail {
			assert.NoError(t, src.Err(), v.msg)
			continue
		}
		var gnErr *gn.Error
		require.ErrorAs(t, src.Err(), &gnErr, v.msg)
		assert.Equal(t, errcode.ImportConstraintViolationError, gnErr.Code)
		assert.Equal(t, []any{"hd", 2004, "2", "one"}, gnErr.Vars)
	}
}

func TestRowSourceWidth(t *testing.T) {
	src := &rowSource{
		rows:  &sliceRows{rows: [][]any{{"1", "2"}}},
		types: []schema.Type{schema.Integer},
		table: "hd",
		year:  2004,
	}
	assert.False(t, src.Next())
	assert.Error(t, src.Err())
}

func TestRowSourceReadError(t *testing.T) {
	src := &rowSource{
		rows:  &sliceRows{err: errors.New("pipe closed")},
		types: []schema.Type{schema.Integer},
		table: "hd",
		year:  2004,
	}
	assert.False(t, src.Next())
	var gnErr *gn.Error
	require.ErrorAs(t, src.Err(), &gnErr)
	assert.Equal(t, errcode.ImportLoadError, gnErr.Code)
}

func TestCopyError(t *testing.T) {
	tests := []struct {
		msg  string
		err  error
		code gn.ErrorCode
	}{
		{
			"numeric out of range",
			&pgconn.PgError{Code: "22003", Where: "COPY hd, line 7"},
			errcode.ImportConstraintViolationError,
		},
		{
			"unique violation",
			&pgconn.PgError{Code: "23505"},
			errcode.ImportConstraintViolationError,
		},
		{
			"connection",
			errors.New("conn closed"),
			errcode.ImportLoadError,
		},
	}

	for _, v := range tests {
		err := copyError("hd", 2004, v.err)
		var gnErr *gn.Error
		require.ErrorAs(t, err, &gnErr, v.msg)
		assert.Equal(t, v.code, gnErr.Code, v.msg)
	}

	err := copyError("hd", 2004, tests[0].err)
	assert.Contains(t, err.(*gn.Error).Err.Error(), "COPY hd, line 7")
}

func TestChecksum(t *testing.T) {
	tbl := &schema.Table{
		Source:  "HD2004",
		Columns: []schema.Column{{Source: "UNITID", Native: "Long Integer"}},
	}
	cs := Checksum("abc", tbl)
	assert.Len(t, cs, 64)
	assert.Equal(t, cs, Checksum("abc", tbl))
	assert.NotEqual(t, cs, Checksum("abd", tbl))

	tbl2 := &schema.Table{
		Source:  "HD2004",
		Columns: []schema.Column{{Source: "UNITID", Native: "Text"}},
	}
	assert.NotEqual(t, cs, Checksum("abc", tbl2))
}
