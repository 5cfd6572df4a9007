package ddl

import (
	"context"

	"github.com/kyleking/schemaflow/internal/errors"
)

// SQLSchema runs schema changes as SQL statements
type SQLSchema struct {
	db      Execer
	dialect *Dialect
}

// NewSQLSchema binds a dialect to a connection or transaction
func NewSQLSchema(db Execer, dialect *Dialect) *SQLSchema {
	return &SQLSchema{db: db, dialect: dialect}
}

func (s *SQLSchema) exec(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to execute %s", stmt)
		}
	}

	return nil
}

func (s *SQLSchema) requireTable(ctx context.Context, table string, want bool) error {
	exists, err := s.dialect.TableExists(ctx, s.db, table)
	if err != nil {
		return err
	}

	switch {
	case exists && !want:
		return errors.Newf(errors.ErrTypeSchema, "table %q already exists", table)
	case !exists && want:
		return errors.Newf(errors.ErrTypeSchema, "table %q does not exist", table)
	}

	return nil
}

func (s *SQLSchema) createTable(ctx context.Context, name string, columns []ColumnSpec) error {
	if err := s.requireTable(ctx, name, false); err != nil {
		return err
	}

	return s.exec(ctx, s.dialect.CreateTableSQL(name, columns))
}

func (s *SQLSchema) dropTable(ctx context.Context, name string) error {
	if err := s.requireTable(ctx, name, true); err != nil {
		return err
	}

	return s.exec(ctx, s.dialect.DropTableSQL(name))
}

func (s *SQLSchema) alterTable(ctx context.Context, name string, changes []AlterChange) error {
	if err := s.requireTable(ctx, name, true); err != nil {
		return err
	}

	for _, change := range changes {
		var statements []string

		if change.Add != nil {
			var err error
			if statements, err = s.dialect.AddColumnSQL(name, *change.Add); err != nil {
				return err
			}
		} else {
			statements = s.dialect.DropColumnSQL(name, change.Drop)
		}

		if err := s.exec(ctx, statements); err != nil {
			return err
		}
	}

	return nil
}

// CreateTable creates a table from the columns fn declares
func (s *SQLSchema) CreateTable(ctx context.Context, name string, fn func(t TableBuilder)) error {
	return s.createTable(ctx, name, Collect(fn))
}

// DropTable drops an existing table
func (s *SQLSchema) DropTable(ctx context.Context, name string) error {
	return s.dropTable(ctx, name)
}

// Table applies the changes fn declares to an existing table
func (s *SQLSchema) Table(ctx context.Context, name string, fn func(t AlterTableBuilder)) error {
	return s.alterTable(ctx, name, CollectAlter(fn))
}

// Chain returns the statement-builder view of the same connection
func (s *SQLSchema) Chain() *SQLChain {
	return &SQLChain{schema: s}
}

// SQLChain implements ChainSchema on top of SQLSchema
type SQLChain struct {
	schema *SQLSchema
}

// NewSQLChain binds a dialect to a connection or transaction
func NewSQLChain(db Execer, dialect *Dialect) *SQLChain {
	return NewSQLSchema(db, dialect).Chain()
}

func (c *SQLChain) CreateTable(name string) CreateTableChain {
	return createTableChain{schema: c.schema, table: name}
}

func (c *SQLChain) DropTable(name string) Executable {
	return execFunc(func(ctx context.Context) error {
		return c.schema.dropTable(ctx, name)
	})
}

func (c *SQLChain) AlterTable(name string) AlterTableChain {
	return alterTableChain{schema: c.schema, table: name}
}

type execFunc func(ctx context.Context) error

func (f execFunc) Execute(ctx context.Context) error { return f(ctx) }

type createTableChain struct {
	schema  *SQLSchema
	table   string
	columns []ColumnSpec
}

func (c createTableChain) AddColumn(name string, dataType DataType, build ColumnBuild) CreateTableChain {
	columns := make([]ColumnSpec, len(c.columns), len(c.columns)+1)
	copy(columns, c.columns)
	c.columns = append(columns, BuildColumn(name, dataType, build))

	return c
}

func (c createTableChain) Columns() []ColumnSpec {
	return c.columns
}

func (c createTableChain) Execute(ctx context.Context) error {
	return c.schema.createTable(ctx, c.table, c.columns)
}

type alterTableChain struct {
	schema *SQLSchema
	table  string
}

func (a alterTableChain) AddColumn(name string, dataType DataType, build ColumnBuild) Executable {
	spec := BuildColumn(name, dataType, build)

	return execFunc(func(ctx context.Context) error {
		return a.schema.alterTable(ctx, a.table, []AlterChange{{Add: &spec}})
	})
}

func (a alterTableChain) DropColumn(name string) Executable {
	return execFunc(func(ctx context.Context) error {
		return a.schema.alterTable(ctx, a.table, []AlterChange{{Drop: name}})
	})
}

func (a alterTableChain) Execute(ctx context.Context) error {
	return a.schema.alterTable(ctx, a.table, nil)
}
