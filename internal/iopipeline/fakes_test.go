package iopipeline_test

import (
	"context"
	"fmt"
	"io"
	"iter"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gnames/cinder/internal/ioimport"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/cinder/pkg/schema"
)

type fakeCatalog struct {
	years []int
	err   error
}

func (c fakeCatalog) ListYears(context.Context) ([]lifecycle.YearDescriptor, error) {
	if c.err != nil {
		return nil, c.err
	}
	res := make([]lifecycle.YearDescriptor, len(c.years))
	for i, v := range c.years {
		res[i] = lifecycle.YearDescriptor{
			Year:        v,
			SnapshotURL: fmt.Sprintf("https://example.org/IPEDS_%d.zip", v),
		}
	}
	return res, nil
}

// gauge remembers the largest number of concurrent calls.
type gauge struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (g *gauge) enter() (leave func()) {
	n := g.active.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	var once sync.Once
	return func() { once.Do(func() { g.active.Add(-1) }) }
}

type fakeFetcher struct {
	fail  map[int]error
	delay time.Duration

	gauge gauge
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(
	ctx context.Context,
	yd lifecycle.YearDescriptor,
) (lifecycle.FetchedArtifacts, error) {
	f.calls.Add(1)
	leave := f.gauge.enter()
	defer leave()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.fail[yd.Year]; ok {
		return lifecycle.FetchedArtifacts{}, err
	}
	return lifecycle.FetchedArtifacts{
		Year:         yd.Year,
		SnapshotPath: fmt.Sprintf("/tmp/%d/ipeds_%d.zip", yd.Year, yd.Year),
	}, nil
}

type sliceRows struct {
	rows [][]any
	i    int
}

func (s *sliceRows) Next() ([]any, error) {
	if s.i >= len(s.rows) {
		return nil, io.EOF
	}
	s.i++
	return s.rows[s.i-1], nil
}

func (s *sliceRows) Close() error { return nil }

// fakeExtractor gives every year an HD table with one row, later
// years get an extra column. Extra tables can be added per year.
// Loose years read UNITID as text and report it as a warning. A
// snapshot counts as open until it is closed.
type fakeExtractor struct {
	extra map[int][]string
	fail  map[int]error
	loose map[int]bool
	delay time.Duration

	gauge gauge
}

func (e *fakeExtractor) Open(
	_ context.Context,
	year int,
	_ string,
) (lifecycle.SnapshotData, error) {
	leave := e.gauge.enter()
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if err, ok := e.fail[year]; ok {
		leave()
		return nil, err
	}

	res := &fakeSnapshot{digest: fmt.Sprintf("digest-%d", year), close: leave}
	cols := []schema.Column{
		{Source: "UNITID", Native: "Long Integer", Type: schema.Integer},
		{Source: "INSTNM", Native: "Text", Type: schema.Text},
	}
	if e.loose[year] {
		cols[0] = schema.Column{Source: "UNITID", Native: "Memo", Type: schema.Text}
	}
	row := []any{"100654", "Alabama A & M University"}
	if year >= 2005 {
		cols = append(cols,
			schema.Column{Source: "WEBADDR", Native: "Text", Type: schema.Text},
		)
		row = append(row, "www.aamu.edu")
	}
	hd := table(fmt.Sprintf("HD%d", year), cols, row)
	if e.loose[year] {
		hd.Warnings = append(hd.Warnings, schema.Warning{
			Table:  hd.Name,
			Column: "unitid",
			Msg:    "unknown native type Memo, stored as text",
		})
	}
	res.tables = append(res.tables, hd)
	for _, v := range e.extra[year] {
		res.tables = append(res.tables, table(v, cols[:1], []any{"1"}))
	}
	return res, nil
}

func table(source string, cols []schema.Column, row []any) *schema.Table {
	res := &schema.Table{
		Source:  source,
		Columns: append([]schema.Column(nil), cols...),
		Rows:    &sliceRows{rows: [][]any{row}},
	}
	schema.Normalize(res, true)
	return res
}

type fakeSnapshot struct {
	digest string
	tables []*schema.Table
	close  func()
}

func (s *fakeSnapshot) Tables(context.Context) iter.Seq2[*schema.Table, error] {
	return func(yield func(*schema.Table, error) bool) {
		for _, v := range s.tables {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (s *fakeSnapshot) Digest() string { return s.digest }

func (s *fakeSnapshot) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

type importKey struct {
	table string
	year  int
}

// fakeImporter keeps import records in memory. Failing tables are
// given as "table" for all years or "table/year" for one year.
type fakeImporter struct {
	fail  map[string]bool
	delay time.Duration
	gauge gauge

	mu      sync.Mutex
	records map[importKey]string
	plans   []schema.MigrationPlan
	loads   int
}

func newFakeImporter() *fakeImporter {
	return &fakeImporter{records: make(map[importKey]string)}
}

func (im *fakeImporter) Imported(
	_ context.Context,
	table string,
	year int,
	checksum string,
) (bool, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.records[importKey{table, year}] == checksum, nil
}

func (im *fakeImporter) Import(
	_ context.Context,
	plan schema.MigrationPlan,
	target schema.TableSchema,
	tbl *schema.Table,
	year int,
	checksum string,
) (lifecycle.ImportResult, error) {
	leave := im.gauge.enter()
	defer leave()
	if im.delay > 0 {
		time.Sleep(im.delay)
	}

	var res lifecycle.ImportResult
	if im.fail[target.Name] || im.fail[fmt.Sprintf("%s/%d", target.Name, year)] {
		return res, ioimport.ConstraintViolationError(
			target.Name, year, 1, "x", fmt.Errorf("duplicate key"),
		)
	}

	var count int64
	for {
		_, err := tbl.Rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
		count++
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	im.records[importKey{target.Name, year}] = checksum
	if !plan.Empty() {
		im.plans = append(im.plans, plan)
	}
	im.loads++
	res.Record = schema.ImportRecord{
		Table:       target.Name,
		SourceYear:  year,
		SourceTable: tbl.Source,
		RowCount:    count,
		Checksum:    checksum,
	}
	return res, nil
}

// snapshot copies import records and the number of loads.
func (im *fakeImporter) snapshot() (map[importKey]string, int) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return maps.Clone(im.records), im.loads
}

// fakeManager reports tables as existing in the database.
type fakeManager struct {
	tables map[string]schema.TableSchema

	mu   sync.Mutex
	runs []schema.IngestRun
}

func (m *fakeManager) Create(context.Context) error { return nil }

func (m *fakeManager) Introspect(context.Context) (map[string]schema.TableSchema, error) {
	return m.tables, nil
}

func (m *fakeManager) SaveRun(_ context.Context, run schema.IngestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}
