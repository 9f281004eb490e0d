package schema

import (
	"sync"
)

// Registry keeps the reconciled schema of all destination tables. It is
// shared by all year pipelines.
//
// Lock must be held for the whole reconcile, migrate and import
// sequence of a table, and Set is called only after the import
// transaction committed.
type Registry struct {
	mu     sync.Mutex
	tables map[string]TableSchema
	locks  map[string]*sync.Mutex
}

// NewRegistry creates a registry from existing destination tables.
func NewRegistry(initial map[string]TableSchema) *Registry {
	res := Registry{
		tables: make(map[string]TableSchema, len(initial)),
		locks:  make(map[string]*sync.Mutex),
	}
	for k, v := range initial {
		res.tables[k] = v.Clone()
	}
	return &res
}

// Lock acquires the exclusive lock of a destination table and returns
// the function that releases it.
func (r *Registry) Lock(table string) func() {
	r.mu.Lock()
	l, ok := r.locks[table]
	if !ok {
		l = &sync.Mutex{}
		r.locks[table] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns a copy of the current schema of a table. The schema is
// empty if the table does not exist yet.
func (r *Registry) Get(table string) TableSchema {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.tables[table]
	if !ok {
		return TableSchema{Name: table}
	}
	return ts.Clone()
}

// Set saves a new schema of a table. A schema that loses columns or
// narrows a column type is rejected.
func (r *Registry) Set(ts TableSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.tables[ts.Name]
	for _, v := range old.Columns {
		col, ok := ts.Column(v.Name)
		if !ok {
			return MonotonicityError(ts.Name, v.Name, "column removed")
		}
		if !widens(v.Type, col.Type) {
			return MonotonicityError(ts.Name, v.Name,
				"type narrowed from "+v.Type.String()+" to "+col.Type.String())
		}
	}
	r.tables[ts.Name] = ts.Clone()
	return nil
}

// Snapshot returns copies of all known table schemas.
func (r *Registry) Snapshot() map[string]TableSchema {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(map[string]TableSchema, len(r.tables))
	for k, v := range r.tables {
		res[k] = v.Clone()
	}
	return res
}

// widens is true if type b can hold all values of type a.
func widens(a, b Type) bool {
	return a == b || b == Text || (a == Integer && b == Real)
}
