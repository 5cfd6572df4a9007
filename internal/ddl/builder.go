// Package ddl defines the schema-builder contracts migrations run against,
// and SQL implementations of them for DuckDB, SQLite and PostgreSQL.
package ddl

import (
	"context"
	"database/sql"

	"github.com/kyleking/schemaflow/internal/schema"
)

// DataType names a backend-neutral column type
type DataType string

const (
	DataVarchar DataType = "varchar"
	DataText    DataType = "text"
	DataInteger DataType = "integer"
	DataFloat4  DataType = "float4"
	DataDecimal DataType = "decimal"
	DataBoolean DataType = "boolean"
	DataDate    DataType = "date"
	DataUUID    DataType = "uuid"
	DataJSON    DataType = "json"
)

// Decimal columns built from a plan use this precision and scale
const (
	DefaultDecimalPrecision = 10
	DefaultDecimalScale     = 2
)

var primitiveDataTypes = map[schema.PrimitiveType]DataType{
	schema.TypeString:  DataVarchar,
	schema.TypeText:    DataText,
	schema.TypeNumber:  DataInteger,
	schema.TypeFloat:   DataFloat4,
	schema.TypeDecimal: DataDecimal,
	schema.TypeBoolean: DataBoolean,
	schema.TypeDate:    DataDate,
	schema.TypeUUID:    DataUUID,
	schema.TypeJSON:    DataJSON,
}

// DataTypeFor maps a primitive to its column type; unknown primitives become varchar
func DataTypeFor(p schema.PrimitiveType) DataType {
	if dt, ok := primitiveDataTypes[p]; ok {
		return dt
	}

	return DataVarchar
}

// PrimitiveFor is the inverse of DataTypeFor
func PrimitiveFor(dt DataType) schema.PrimitiveType {
	for p, candidate := range primitiveDataTypes {
		if candidate == dt {
			return p
		}
	}

	return schema.TypeString
}

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SchemaBuilder is the callback-style schema API: each call opens a table
// context, lets fn describe columns, then applies the result.
type SchemaBuilder interface {
	CreateTable(ctx context.Context, name string, fn func(t TableBuilder)) error
	DropTable(ctx context.Context, name string) error
	// Table alters an existing table; it fails if the table does not exist
	// even when fn describes no change.
	Table(ctx context.Context, name string, fn func(t AlterTableBuilder)) error
}

// TableBuilder declares columns inside a table context
type TableBuilder interface {
	String(name string) ColumnBuilder
	Text(name string) ColumnBuilder
	Integer(name string) ColumnBuilder
	Float(name string) ColumnBuilder
	Decimal(name string, precision, scale int) ColumnBuilder
	Boolean(name string) ColumnBuilder
	Date(name string) ColumnBuilder
	UUID(name string) ColumnBuilder
	JSON(name string) ColumnBuilder
}

// AlterTableBuilder declares changes to an existing table
type AlterTableBuilder interface {
	TableBuilder
	DropColumn(name string)
}

// ColumnBuilder applies constraints to a declared column
type ColumnBuilder interface {
	NotNullable() ColumnBuilder
	Nullable() ColumnBuilder
	Primary() ColumnBuilder
	Unique() ColumnBuilder
}

// ColumnSpec is a fully described column
type ColumnSpec struct {
	Name      string
	Type      DataType
	Precision int
	Scale     int
	NotNull   bool
	Primary   bool
	Unique    bool
}

// columnRef is handed out by table builders; modifiers mutate the spec it points to
type columnRef struct {
	spec *ColumnSpec
}

func (c columnRef) NotNullable() ColumnBuilder {
	c.spec.NotNull = true
	return c
}

func (c columnRef) Nullable() ColumnBuilder {
	c.spec.NotNull = false
	return c
}

func (c columnRef) Primary() ColumnBuilder {
	c.spec.Primary = true
	return c
}

func (c columnRef) Unique() ColumnBuilder {
	c.spec.Unique = true
	return c
}

// alterOp is one change collected by an alter context, in call order
type alterOp struct {
	add  *ColumnSpec
	drop string
}

// columnCollector implements AlterTableBuilder (and so TableBuilder)
type columnCollector struct {
	ops []alterOp
}

func (c *columnCollector) add(name string, dt DataType) ColumnBuilder {
	spec := &ColumnSpec{Name: name, Type: dt}
	c.ops = append(c.ops, alterOp{add: spec})

	return columnRef{spec: spec}
}

func (c *columnCollector) String(name string) ColumnBuilder  { return c.add(name, DataVarchar) }
func (c *columnCollector) Text(name string) ColumnBuilder    { return c.add(name, DataText) }
func (c *columnCollector) Integer(name string) ColumnBuilder { return c.add(name, DataInteger) }
func (c *columnCollector) Float(name string) ColumnBuilder   { return c.add(name, DataFloat4) }
func (c *columnCollector) Boolean(name string) ColumnBuilder { return c.add(name, DataBoolean) }
func (c *columnCollector) Date(name string) ColumnBuilder    { return c.add(name, DataDate) }
func (c *columnCollector) UUID(name string) ColumnBuilder    { return c.add(name, DataUUID) }
func (c *columnCollector) JSON(name string) ColumnBuilder    { return c.add(name, DataJSON) }

func (c *columnCollector) Decimal(name string, precision, scale int) ColumnBuilder {
	ref := c.add(name, DataDecimal).(columnRef)
	ref.spec.Precision = precision
	ref.spec.Scale = scale

	return ref
}

func (c *columnCollector) DropColumn(name string) {
	c.ops = append(c.ops, alterOp{drop: name})
}

// columns returns the added columns, ignoring drops
func (c *columnCollector) columns() []ColumnSpec {
	var specs []ColumnSpec
	for _, op := range c.ops {
		if op.add != nil {
			specs = append(specs, *op.add)
		}
	}

	return specs
}

// Collect runs fn against a recording table builder and returns the columns it declared
func Collect(fn func(t TableBuilder)) []ColumnSpec {
	c := &columnCollector{}
	fn(c)

	return c.columns()
}

// AlterChange is one recorded alteration; exactly one of Add and Drop is set
type AlterChange struct {
	Add  *ColumnSpec
	Drop string
}

// CollectAlter runs fn against a recording alter builder and returns its changes in order
func CollectAlter(fn func(t AlterTableBuilder)) []AlterChange {
	c := &columnCollector{}
	fn(c)

	changes := make([]AlterChange, 0, len(c.ops))
	for _, op := range c.ops {
		if op.add != nil {
			spec := *op.add
			changes = append(changes, AlterChange{Add: &spec})
		} else {
			changes = append(changes, AlterChange{Drop: op.drop})
		}
	}

	return changes
}
