// Package testutil provides in-memory doubles shared by package tests
package testutil

import (
	"context"
	"sync"

	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/schema"
)

// MockStore is an in-memory structural store. It implements both
// ddl.SchemaBuilder and ddl.ChainSchema and tracks the resulting schema.
type MockStore struct {
	mu sync.RWMutex

	schema     schema.SchemaInfo
	errors     map[string]error
	callCounts map[string]int
}

// MockOption is a functional option for configuring MockStore
type MockOption func(*MockStore)

// WithSchema seeds the store with existing tables
func WithSchema(info schema.SchemaInfo) MockOption {
	return func(m *MockStore) {
		m.schema = info.Clone()
	}
}

// WithError makes the operation on the given table fail, keyed as
// "<operation>:<table>" (e.g. "createTable:User") or by operation alone.
func WithError(key string, err error) MockOption {
	return func(m *MockStore) {
		m.errors[key] = err
	}
}

// NewMockStore creates an empty store with the given options
func NewMockStore(opts ...MockOption) *MockStore {
	mock := &MockStore{
		schema:     schema.NewSchemaInfo(),
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Schema returns a copy of the current structure
func (m *MockStore) Schema() schema.SchemaInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.schema.Clone()
}

// GetCallCount returns the number of times an operation was called
func (m *MockStore) GetCallCount(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[operation]
}

// ResetCallCounts resets all call counters
func (m *MockStore) ResetCallCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts = make(map[string]int)
}

// Chain returns the statement-builder view of the store
func (m *MockStore) Chain() ddl.ChainSchema {
	return mockChain{store: m}
}

// begin counts the call and returns an injected error, if any; m.mu must be held
func (m *MockStore) begin(operation, table string) error {
	m.callCounts[operation]++

	if err, ok := m.errors[operation+":"+table]; ok {
		return err
	}

	return m.errors[operation]
}

func (m *MockStore) requireTable(table string, want bool) error {
	exists := m.schema.HasTable(table)

	switch {
	case exists && !want:
		return errors.Newf(errors.ErrTypeSchema, "table %q already exists", table)
	case !exists && want:
		return errors.Newf(errors.ErrTypeSchema, "table %q does not exist", table)
	}

	return nil
}

func toColumn(spec ddl.ColumnSpec) schema.ColumnDefinition {
	return schema.ColumnDefinition{
		Name:         spec.Name,
		Type:         ddl.PrimitiveFor(spec.Type),
		IsNullable:   !spec.NotNull,
		IsPrimaryKey: spec.Primary,
		IsUnique:     spec.Unique,
	}
}

func (m *MockStore) createTable(table string, specs []ddl.ColumnSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("createTable", table); err != nil {
		return err
	}

	if err := m.requireTable(table, false); err != nil {
		return err
	}

	columns := make([]schema.ColumnDefinition, 0, len(specs))
	for _, spec := range specs {
		columns = append(columns, toColumn(spec))
	}

	m.schema.AddTable(table, columns)

	return nil
}

func (m *MockStore) dropTable(table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("dropTable", table); err != nil {
		return err
	}

	if err := m.requireTable(table, true); err != nil {
		return err
	}

	m.schema.RemoveTable(table)

	return nil
}

func (m *MockStore) alterTable(table string, changes []ddl.AlterChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin("alterTable", table); err != nil {
		return err
	}

	if err := m.requireTable(table, true); err != nil {
		return err
	}

	columns := append([]schema.ColumnDefinition(nil), m.schema.Tables[table]...)

	for _, change := range changes {
		if change.Add != nil {
			if _, exists := m.schema.Column(table, change.Add.Name); exists {
				return errors.Newf(errors.ErrTypeSchema, "column %q already exists in table %q", change.Add.Name, table)
			}

			columns = append(columns, toColumn(*change.Add))

			continue
		}

		kept := columns[:0]
		found := false

		for _, column := range columns {
			if column.Name == change.Drop {
				found = true
				continue
			}

			kept = append(kept, column)
		}

		if !found {
			return errors.Newf(errors.ErrTypeSchema, "column %q does not exist in table %q", change.Drop, table)
		}

		columns = kept
	}

	m.schema.Tables[table] = columns

	return nil
}

// CreateTable implements ddl.SchemaBuilder
func (m *MockStore) CreateTable(_ context.Context, name string, fn func(t ddl.TableBuilder)) error {
	return m.createTable(name, ddl.Collect(fn))
}

// DropTable implements ddl.SchemaBuilder
func (m *MockStore) DropTable(_ context.Context, name string) error {
	return m.dropTable(name)
}

// Table implements ddl.SchemaBuilder
func (m *MockStore) Table(_ context.Context, name string, fn func(t ddl.AlterTableBuilder)) error {
	return m.alterTable(name, ddl.CollectAlter(fn))
}

type mockChain struct {
	store *MockStore
}

type execFunc func(ctx context.Context) error

func (f execFunc) Execute(ctx context.Context) error { return f(ctx) }

func (c mockChain) CreateTable(name string) ddl.CreateTableChain {
	return mockCreate{store: c.store, table: name}
}

func (c mockChain) DropTable(name string) ddl.Executable {
	return execFunc(func(context.Context) error { return c.store.dropTable(name) })
}

func (c mockChain) AlterTable(name string) ddl.AlterTableChain {
	return mockAlter{store: c.store, table: name}
}

type mockCreate struct {
	store   *MockStore
	table   string
	columns []ddl.ColumnSpec
}

func (c mockCreate) AddColumn(name string, dataType ddl.DataType, build ddl.ColumnBuild) ddl.CreateTableChain {
	columns := make([]ddl.ColumnSpec, len(c.columns), len(c.columns)+1)
	copy(columns, c.columns)
	c.columns = append(columns, ddl.BuildColumn(name, dataType, build))

	return c
}

func (c mockCreate) Columns() []ddl.ColumnSpec { return c.columns }

func (c mockCreate) Execute(context.Context) error {
	return c.store.createTable(c.table, c.columns)
}

type mockAlter struct {
	store *MockStore
	table string
}

func (a mockAlter) AddColumn(name string, dataType ddl.DataType, build ddl.ColumnBuild) ddl.Executable {
	spec := ddl.BuildColumn(name, dataType, build)

	return execFunc(func(context.Context) error {
		return a.store.alterTable(a.table, []ddl.AlterChange{{Add: &spec}})
	})
}

func (a mockAlter) DropColumn(name string) ddl.Executable {
	return execFunc(func(context.Context) error {
		return a.store.alterTable(a.table, []ddl.AlterChange{{Drop: name}})
	})
}

func (a mockAlter) Execute(context.Context) error {
	return a.store.alterTable(a.table, nil)
}
