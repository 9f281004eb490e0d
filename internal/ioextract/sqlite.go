package ioextract

import (
	"context"
	"database/sql"
	"io"
	"iter"
	"strings"

	"github.com/gnames/cinder/pkg/schema"
	_ "modernc.org/sqlite"
)

type sqliteSnapshot struct {
	path      string
	digest    string
	stripYear bool
	db        *sql.DB
}

func openSQLite(
	ctx context.Context,
	path, digest string,
	stripYear bool,
) (*sqliteSnapshot, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, CorruptError(path, "cannot open SQLite database", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, CorruptError(path, "cannot open SQLite database", err)
	}
	res := sqliteSnapshot{
		path:      path,
		digest:    digest,
		stripYear: stripYear,
		db:        db,
	}
	return &res, nil
}

func (s *sqliteSnapshot) Digest() string {
	return s.digest
}

func (s *sqliteSnapshot) Close() error {
	return s.db.Close()
}

func (s *sqliteSnapshot) Tables(ctx context.Context) iter.Seq2[*schema.Table, error] {
	return func(yield func(*schema.Table, error) bool) {
		names, err := s.tableNames(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, name := range names {
			if err = ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			tbl, err := s.table(ctx, name)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			ok := yield(tbl, nil)
			tbl.Rows.Close()
			if !ok {
				return
			}
		}
	}
}

func (s *sqliteSnapshot) tableNames(ctx context.Context) ([]string, error) {
	q := `SELECT name FROM sqlite_master
  WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
  ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, CorruptError(s.path, "cannot list tables", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, CorruptError(s.path, "cannot list tables", err)
		}
		res = append(res, name)
	}
	if err = rows.Err(); err != nil {
		return nil, CorruptError(s.path, "cannot list tables", err)
	}
	return res, nil
}

func (s *sqliteSnapshot) table(ctx context.Context, name string) (*schema.Table, error) {
	q := "SELECT name, type FROM pragma_table_info(?) ORDER BY cid"
	rows, err := s.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, ReadError(s.path, name, err)
	}
	var names, natives []string
	for rows.Next() {
		var col, typ string
		if err = rows.Scan(&col, &typ); err != nil {
			rows.Close()
			return nil, ReadError(s.path, name, err)
		}
		names = append(names, col)
		natives = append(natives, typ)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, ReadError(s.path, name, err)
	}

	quoted := make([]string, len(names))
	for i, v := range names {
		quoted[i] = quoteSQLite(v)
	}
	q = "SELECT " + strings.Join(quoted, ", ") + " FROM " + quoteSQLite(name)
	data, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, ReadError(s.path, name, err)
	}

	res := newTable(name, names, natives, s.stripYear)
	res.Rows = &sqliteRows{path: s.path, table: name, rows: data, width: len(names)}
	return res, nil
}

func quoteSQLite(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type sqliteRows struct {
	path  string
	table string
	rows  *sql.Rows
	width int
}

func (r *sqliteRows) Next() ([]any, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, ReadError(r.path, r.table, err)
		}
		return nil, io.EOF
	}
	vals := make([]any, r.width)
	ptrs := make([]any, r.width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, ReadError(r.path, r.table, err)
	}
	return vals, nil
}

func (r *sqliteRows) Close() error {
	return r.rows.Close()
}
