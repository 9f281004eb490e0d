package ioextract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"regexp"
	"strings"

	"github.com/gnames/cinder/pkg/schema"
)

// mdbDateFormat is the format of dates exported by mdb-export. It has
// to match the first layout of schema.Coerce.
const mdbDateFormat = "%Y-%m-%d %H:%M:%S"

type mdbTools struct {
	tables string
	schema string
	export string
}

// lookTools finds mdbtools executables in PATH.
func lookTools() (mdbTools, error) {
	var res mdbTools
	for _, v := range []struct {
		name string
		dst  *string
	}{
		{"mdb-tables", &res.tables},
		{"mdb-schema", &res.schema},
		{"mdb-export", &res.export},
	} {
		p, err := exec.LookPath(v.name)
		if err != nil {
			return res, MissingToolError(v.name, err)
		}
		*v.dst = p
	}
	return res, nil
}

type mdbSnapshot struct {
	path      string
	digest    string
	stripYear bool
	tools     mdbTools
}

func openMDB(path, digest string, stripYear bool) (*mdbSnapshot, error) {
	tools, err := lookTools()
	if err != nil {
		return nil, err
	}
	res := mdbSnapshot{
		path:      path,
		digest:    digest,
		stripYear: stripYear,
		tools:     tools,
	}
	return &res, nil
}

func (s *mdbSnapshot) Digest() string {
	return s.digest
}

func (s *mdbSnapshot) Close() error {
	return nil
}

func (s *mdbSnapshot) Tables(ctx context.Context) iter.Seq2[*schema.Table, error] {
	return func(yield func(*schema.Table, error) bool) {
		names, err := s.tableNames(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defs, err := s.schema(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, name := range names {
			if err = ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			def, ok := defs[name]
			if !ok {
				err = ReadError(s.path, name, errors.New("table is missing in schema"))
				if !yield(nil, err) {
					return
				}
				continue
			}

			tbl := newTable(name, def.names, def.natives, s.stripYear)
			rows, err := s.export(ctx, name, len(def.names))
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			tbl.Rows = rows
			ok = yield(tbl, nil)
			rows.Close()
			if !ok {
				return
			}
		}
	}
}

func (s *mdbSnapshot) tableNames(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, s.tools.tables, "-1", s.path)
	if err != nil {
		return nil, CorruptError(s.path, "mdb-tables failed", err)
	}
	var res []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			res = append(res, name)
		}
	}
	return res, nil
}

func (s *mdbSnapshot) schema(ctx context.Context) (map[string]mdbTable, error) {
	out, err := s.run(ctx, s.tools.schema, "--no-relations", s.path, "access")
	if err != nil {
		return nil, CorruptError(s.path, "mdb-schema failed", err)
	}
	return parseSchema(bytes.NewReader(out))
}

func (s *mdbSnapshot) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (s *mdbSnapshot) export(ctx context.Context, table string, width int) (*mdbRows, error) {
	res := mdbRows{path: s.path, table: table, width: width}
	res.cmd = exec.CommandContext(ctx,
		s.tools.export, "-D", mdbDateFormat, "-b", "strip", s.path, table,
	)
	res.cmd.Stderr = &res.stderr
	stdout, err := res.cmd.StdoutPipe()
	if err != nil {
		return nil, ReadError(s.path, table, err)
	}
	if err = res.cmd.Start(); err != nil {
		return nil, ReadError(s.path, table, err)
	}

	res.csv = csv.NewReader(bufio.NewReaderSize(stdout, 1<<16))
	res.csv.LazyQuotes = true
	res.csv.FieldsPerRecord = -1

	header, err := res.csv.Read()
	if err != nil && err != io.EOF {
		res.Close()
		return nil, ReadError(s.path, table, err)
	}
	if err == nil && len(header) != width {
		res.Close()
		err = fmt.Errorf("export has %d columns, schema has %d", len(header), width)
		return nil, ReadError(s.path, table, err)
	}
	return &res, nil
}

type mdbRows struct {
	path   string
	table  string
	width  int
	cmd    *exec.Cmd
	csv    *csv.Reader
	stderr bytes.Buffer
	line   int
	done   bool
}

func (r *mdbRows) Next() ([]any, error) {
	if r.done {
		return nil, io.EOF
	}
	rec, err := r.csv.Read()
	if err == io.EOF {
		r.done = true
		if err = r.cmd.Wait(); err != nil {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(r.stderr.String()))
			return nil, ReadError(r.path, r.table, err)
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, ReadError(r.path, r.table, err)
	}
	r.line++
	if len(rec) != r.width {
		err = fmt.Errorf("row %d has %d fields instead of %d", r.line, len(rec), r.width)
		return nil, ReadError(r.path, r.table, err)
	}

	res := make([]any, len(rec))
	for i, v := range rec {
		res[i] = v
	}
	return res, nil
}

// Close stops mdb-export if the table was not read to the end.
func (r *mdbRows) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}

type mdbTable struct {
	names   []string
	natives []string
}

var (
	createRx = regexp.MustCompile(`^\s*CREATE TABLE \[(.+)\]\s*$`)
	columnRx = regexp.MustCompile(`^\s*\[(.+?)\]\s+(.+?)\s*,?\s*$`)
)

// parseSchema reads the output of 'mdb-schema <file> access'.
func parseSchema(r io.Reader) (map[string]mdbTable, error) {
	res := make(map[string]mdbTable)
	var name string
	var cur *mdbTable

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if m := createRx.FindStringSubmatch(line); m != nil {
			name = m[1]
			cur = &mdbTable{}
			continue
		}
		if cur == nil {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), ");") {
			res[name] = *cur
			cur = nil
			continue
		}
		if m := columnRx.FindStringSubmatch(line); m != nil {
			native := strings.TrimSuffix(strings.TrimSpace(m[2]), ",")
			native = strings.TrimSpace(strings.TrimSuffix(native, "NOT NULL"))
			cur.names = append(cur.names, m[1])
			cur.natives = append(cur.natives, native)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
