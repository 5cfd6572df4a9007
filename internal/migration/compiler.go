package migration

import (
	"context"

	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/schema"
)

// Logger receives compiler warnings; *logging.Logger satisfies it
type Logger interface {
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}

// Migration is a compiled plan for a schema builder of type DB.
// Down never changes the schema; migrations are forward-only.
type Migration[DB any] struct {
	Up   func(ctx context.Context, db DB) error
	Down func(ctx context.Context, db DB) error
}

// Compiler turns plans into migrations for one schema builder type
type Compiler[DB any] interface {
	Compile(plan Plan) Migration[DB]
}

// builder adapts the structural primitives of one schema builder type
type builder[DB any] interface {
	createTable(ctx context.Context, db DB, table string, columns []schema.ColumnDefinition) error
	dropTable(ctx context.Context, db DB, table string) error
	addColumn(ctx context.Context, db DB, table string, column schema.ColumnDefinition) error
	dropColumn(ctx context.Context, db DB, table, column string) error
	// alterNothing opens an alteration context on table without changing it
	alterNothing(ctx context.Context, db DB, table string) error
}

// PlanCompiler compiles plans by dispatching each step to a builder adapter
type PlanCompiler[DB any] struct {
	builder builder[DB]
	log     Logger
}

// NewFluentCompiler compiles for callback-style schema builders
func NewFluentCompiler(log Logger) *PlanCompiler[ddl.SchemaBuilder] {
	return &PlanCompiler[ddl.SchemaBuilder]{builder: fluentBuilder{}, log: orNop(log)}
}

// NewChainCompiler compiles for statement-builder schemas
func NewChainCompiler(log Logger) *PlanCompiler[ddl.ChainSchema] {
	return &PlanCompiler[ddl.ChainSchema]{builder: chainBuilder{}, log: orNop(log)}
}

func orNop(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}

	return log
}

// Compile returns a migration applying plan in order. The plan is copied, so
// later changes to the caller's slice do not affect the migration.
func (c *PlanCompiler[DB]) Compile(plan Plan) Migration[DB] {
	steps := append(Plan(nil), plan...)

	return Migration[DB]{
		Up: func(ctx context.Context, db DB) error {
			if err := ValidatePlan(steps); err != nil {
				return err
			}

			for _, step := range steps {
				if err := c.apply(ctx, db, step); err != nil {
					return err
				}
			}

			return nil
		},
		Down: func(context.Context, DB) error {
			c.log.Warnf("Down migrations are not implemented.")
			return nil
		},
	}
}

func (c *PlanCompiler[DB]) apply(ctx context.Context, db DB, step Step) error {
	switch s := step.(type) {
	case CreateTable:
		return c.builder.createTable(ctx, db, s.TableName, s.Columns)
	case DropTable:
		return c.builder.dropTable(ctx, db, s.TableName)
	case AddColumn:
		return c.builder.addColumn(ctx, db, s.TableName, s.Column)
	case DropColumn:
		return c.builder.dropColumn(ctx, db, s.TableName, s.ColumnName)
	case ModifyColumn:
		if err := c.builder.alterNothing(ctx, db, s.TableName); err != nil {
			return err
		}

		c.log.Warnf("Modify column step for table %q and column %q is not implemented.", s.TableName, s.Column.Name)

		return nil
	default:
		return unknownStep(step)
	}
}

// ValidatePlan rejects steps the compilers do not know
func ValidatePlan(plan Plan) error {
	for _, step := range plan {
		switch step.(type) {
		case CreateTable, DropTable, AddColumn, DropColumn, ModifyColumn:
		default:
			return unknownStep(step)
		}
	}

	return nil
}

func unknownStep(step Step) error {
	if step == nil {
		return errors.New(errors.ErrTypeMigration, "unknown migration step type: <nil>")
	}

	return errors.Newf(errors.ErrTypeMigration, "unknown migration step type: %s", step.Type())
}

// fluentBuilder targets ddl.SchemaBuilder
type fluentBuilder struct{}

func (fluentBuilder) createTable(ctx context.Context, db ddl.SchemaBuilder, table string, columns []schema.ColumnDefinition) error {
	return db.CreateTable(ctx, table, func(t ddl.TableBuilder) {
		for _, column := range columns {
			declareColumn(t, column, true)
		}
	})
}

func (fluentBuilder) dropTable(ctx context.Context, db ddl.SchemaBuilder, table string) error {
	return db.DropTable(ctx, table)
}

func (fluentBuilder) addColumn(ctx context.Context, db ddl.SchemaBuilder, table string, column schema.ColumnDefinition) error {
	return db.Table(ctx, table, func(t ddl.AlterTableBuilder) {
		declareColumn(t, column, false)
	})
}

func (fluentBuilder) dropColumn(ctx context.Context, db ddl.SchemaBuilder, table, column string) error {
	return db.Table(ctx, table, func(t ddl.AlterTableBuilder) {
		t.DropColumn(column)
	})
}

func (fluentBuilder) alterNothing(ctx context.Context, db ddl.SchemaBuilder, table string) error {
	return db.Table(ctx, table, func(ddl.AlterTableBuilder) {})
}

func declareColumn(t ddl.TableBuilder, column schema.ColumnDefinition, allowPrimary bool) {
	var c ddl.ColumnBuilder

	switch ddl.DataTypeFor(column.Type) {
	case ddl.DataText:
		c = t.Text(column.Name)
	case ddl.DataInteger:
		c = t.Integer(column.Name)
	case ddl.DataFloat4:
		c = t.Float(column.Name)
	case ddl.DataDecimal:
		c = t.Decimal(column.Name, ddl.DefaultDecimalPrecision, ddl.DefaultDecimalScale)
	case ddl.DataBoolean:
		c = t.Boolean(column.Name)
	case ddl.DataDate:
		c = t.Date(column.Name)
	case ddl.DataUUID:
		c = t.UUID(column.Name)
	case ddl.DataJSON:
		c = t.JSON(column.Name)
	default:
		c = t.String(column.Name)
	}

	if column.IsNullable {
		c = c.Nullable()
	} else {
		c = c.NotNullable()
	}

	if column.IsPrimaryKey && allowPrimary {
		c = c.Primary()
	}

	if column.IsUnique {
		c.Unique()
	}
}

// chainBuilder targets ddl.ChainSchema
type chainBuilder struct{}

func (chainBuilder) createTable(ctx context.Context, db ddl.ChainSchema, table string, columns []schema.ColumnDefinition) error {
	stmt := db.CreateTable(table)
	for _, column := range columns {
		stmt = stmt.AddColumn(column.Name, ddl.DataTypeFor(column.Type), columnAttributes(column, true))
	}

	return stmt.Execute(ctx)
}

func (chainBuilder) dropTable(ctx context.Context, db ddl.ChainSchema, table string) error {
	return db.DropTable(table).Execute(ctx)
}

func (chainBuilder) addColumn(ctx context.Context, db ddl.ChainSchema, table string, column schema.ColumnDefinition) error {
	return db.AlterTable(table).
		AddColumn(column.Name, ddl.DataTypeFor(column.Type), columnAttributes(column, false)).
		Execute(ctx)
}

func (chainBuilder) dropColumn(ctx context.Context, db ddl.ChainSchema, table, column string) error {
	return db.AlterTable(table).DropColumn(column).Execute(ctx)
}

func (chainBuilder) alterNothing(ctx context.Context, db ddl.ChainSchema, table string) error {
	return db.AlterTable(table).Execute(ctx)
}

func columnAttributes(column schema.ColumnDefinition, allowPrimary bool) ddl.ColumnBuild {
	return func(c ddl.ColumnChain) ddl.ColumnChain {
		if !column.IsNullable {
			c = c.NotNull()
		}

		if column.IsPrimaryKey && allowPrimary {
			c = c.PrimaryKey()
		}

		if column.IsUnique {
			c = c.Unique()
		}

		return c
	}
}
