package ddl

import (
	"context"
)

// ChainSchema is the statement-builder schema API: calls build an immutable
// statement which only touches the database when executed.
type ChainSchema interface {
	CreateTable(name string) CreateTableChain
	DropTable(name string) Executable
	AlterTable(name string) AlterTableChain
}

// Executable is a built statement
type Executable interface {
	Execute(ctx context.Context) error
}

// ColumnBuild customizes a column inside AddColumn
type ColumnBuild func(c ColumnChain) ColumnChain

// ColumnChain applies constraints; every call returns a new value
type ColumnChain interface {
	NotNull() ColumnChain
	PrimaryKey() ColumnChain
	Unique() ColumnChain
}

// CreateTableChain accumulates the columns of a new table
type CreateTableChain interface {
	AddColumn(name string, dataType DataType, build ColumnBuild) CreateTableChain
	Columns() []ColumnSpec
	Executable
}

// AlterTableChain selects one change to an existing table. Executing it
// without a change still verifies that the table exists.
type AlterTableChain interface {
	AddColumn(name string, dataType DataType, build ColumnBuild) Executable
	DropColumn(name string) Executable
	Executable
}

// columnChain is a value type, so constraint calls never alias
type columnChain struct {
	spec ColumnSpec
}

func (c columnChain) NotNull() ColumnChain {
	c.spec.NotNull = true
	return c
}

func (c columnChain) PrimaryKey() ColumnChain {
	c.spec.Primary = true
	return c
}

func (c columnChain) Unique() ColumnChain {
	c.spec.Unique = true
	return c
}

// BuildColumn applies build to a fresh column of the given type
func BuildColumn(name string, dataType DataType, build ColumnBuild) ColumnSpec {
	chain := ColumnChain(columnChain{spec: ColumnSpec{Name: name, Type: dataType}})
	if build != nil {
		chain = build(chain)
	}

	if c, ok := chain.(columnChain); ok {
		return c.spec
	}

	return ColumnSpec{Name: name, Type: dataType}
}
