package ioimport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gnames/cinder/pkg/schema"
)

// rowSource feeds rows of a snapshot table to pgx CopyFrom. Values
// are converted to destination types and prefixed with the year.
type rowSource struct {
	rows  schema.RowReader
	types []schema.Type
	table string
	year  int
	skip  bool

	row     int64
	skipped int64
	vals    []any
	err     error
}

func (s *rowSource) Next() bool {
	for {
		row, err := s.rows.Next()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			s.err = LoadError(s.table, s.year, err)
			return false
		}
		s.row++

		vals, val, err := s.convert(row)
		if err == nil {
			s.vals = vals
			return true
		}
		if !s.skip {
			s.err = ConstraintViolationError(s.table, s.year, s.row, val, err)
			return false
		}
		s.skipped++
		slog.Warn("Skipping bad row",
			"table", s.table,
			"year", s.year,
			"row", s.row,
			"error", err,
		)
	}
}

func (s *rowSource) Values() ([]any, error) {
	return s.vals, nil
}

func (s *rowSource) Err() error {
	return s.err
}

// convert returns converted values, or the offending value and the
// error.
func (s *rowSource) convert(row []any) ([]any, any, error) {
	if len(row) != len(s.types) {
		return nil, len(row), fmt.Errorf(
			"row has %d values, table has %d columns", len(row), len(s.types),
		)
	}
	res := make([]any, len(row)+1)
	res[0] = s.year
	for i, v := range row {
		c, err := schema.Coerce(v, s.types[i])
		if err != nil {
			return nil, v, err
		}
		res[i+1] = c
	}
	return res, nil, nil
}
