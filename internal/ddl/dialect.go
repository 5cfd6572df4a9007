package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/kyleking/schemaflow/internal/errors"
)

// Dialect captures the SQL differences between supported engines
type Dialect struct {
	name        string
	types       map[DataType]string
	placeholder func(n int) string
	existsQuery string
	zeroDate    string

	// inlineUnique renders UNIQUE in column definitions instead of a separate index
	inlineUnique bool
	// splitNotNull adds NOT NULL columns in two steps: add with default, then SET NOT NULL
	splitNotNull bool
	// dropDefault removes the temporary default after a NOT NULL column is added
	dropDefault bool
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// DuckDB stores uuid and json as VARCHAR and dates as TIMESTAMP
var DuckDB = &Dialect{
	name: "duckdb",
	types: map[DataType]string{
		DataVarchar: "VARCHAR",
		DataText:    "TEXT",
		DataInteger: "INTEGER",
		DataFloat4:  "FLOAT",
		DataDecimal: "DECIMAL",
		DataBoolean: "BOOLEAN",
		DataDate:    "TIMESTAMP",
		DataUUID:    "VARCHAR",
		DataJSON:    "VARCHAR",
	},
	placeholder:  questionMark,
	existsQuery:  "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?",
	zeroDate:     "1970-01-01 00:00:00",
	splitNotNull: true,
	dropDefault:  true,
}

// SQLite relies on type affinity; declared types keep DATETIME scanning working
var SQLite = &Dialect{
	name: "sqlite",
	types: map[DataType]string{
		DataVarchar: "VARCHAR(255)",
		DataText:    "TEXT",
		DataInteger: "INTEGER",
		DataFloat4:  "REAL",
		DataDecimal: "DECIMAL",
		DataBoolean: "BOOLEAN",
		DataDate:    "DATETIME",
		DataUUID:    "CHAR(36)",
		DataJSON:    "JSON",
	},
	placeholder: questionMark,
	existsQuery: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	zeroDate:    "1970-01-01 00:00:00",
}

// Postgres uses native uuid and jsonb
var Postgres = &Dialect{
	name: "postgres",
	types: map[DataType]string{
		DataVarchar: "VARCHAR(255)",
		DataText:    "TEXT",
		DataInteger: "INTEGER",
		DataFloat4:  "REAL",
		DataDecimal: "DECIMAL",
		DataBoolean: "BOOLEAN",
		DataDate:    "TIMESTAMPTZ",
		DataUUID:    "UUID",
		DataJSON:    "JSONB",
	},
	placeholder: dollar,
	existsQuery: "SELECT COUNT(*) FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_name = $1",
	zeroDate:     "1970-01-01 00:00:00+00",
	inlineUnique: true,
	dropDefault:  true,
}

// Name returns the engine name
func (d *Dialect) Name() string {
	return d.name
}

// Placeholder returns the bind parameter for the n-th (1-based) argument
func (d *Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// Placeholders returns count comma-separated bind parameters starting at start
func (d *Dialect) Placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range count {
		parts[i] = d.placeholder(start + i)
	}

	return strings.Join(parts, ", ")
}

// QuoteIdent quotes an identifier, doubling embedded quotes
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnType renders the SQL type of a column
func (d *Dialect) ColumnType(spec ColumnSpec) string {
	sqlType, ok := d.types[spec.Type]
	if !ok {
		sqlType = d.types[DataVarchar]
	}

	if spec.Type == DataDecimal {
		precision, scale := spec.Precision, spec.Scale
		if precision == 0 {
			precision, scale = DefaultDecimalPrecision, DefaultDecimalScale
		}

		sqlType = fmt.Sprintf("%s(%d,%d)", sqlType, precision, scale)
	}

	return sqlType
}

// TableExists reports whether a table is present
func (d *Dialect) TableExists(ctx context.Context, db Execer, table string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, d.existsQuery, table).Scan(&count); err != nil {
		return false, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to check whether table %q exists", table)
	}

	return count > 0, nil
}

func (d *Dialect) columnDefinition(spec ColumnSpec) string {
	var b strings.Builder

	b.WriteString(QuoteIdent(spec.Name))
	b.WriteString(" ")
	b.WriteString(d.ColumnType(spec))

	if spec.NotNull {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}

	if spec.Primary {
		b.WriteString(" PRIMARY KEY")
	}

	if spec.Unique && d.inlineUnique {
		b.WriteString(" UNIQUE")
	}

	return b.String()
}

func uniqueIndexName(table, column string) string {
	return table + "_" + column + "_unique"
}

func (d *Dialect) uniqueIndex(table, column string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
		QuoteIdent(uniqueIndexName(table, column)), QuoteIdent(table), QuoteIdent(column))
}

// CreateTableSQL renders the statements creating a table
func (d *Dialect) CreateTableSQL(table string, columns []ColumnSpec) []string {
	definitions := make([]string, 0, len(columns))
	for _, c := range columns {
		definitions = append(definitions, d.columnDefinition(c))
	}

	statements := []string{
		fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(definitions, ", ")),
	}

	if !d.inlineUnique {
		for _, c := range columns {
			if c.Unique && !c.Primary {
				statements = append(statements, d.uniqueIndex(table, c.Name))
			}
		}
	}

	return statements
}

// DropTableSQL renders the statement dropping a table
func (d *Dialect) DropTableSQL(table string) []string {
	return []string{"DROP TABLE " + QuoteIdent(table)}
}

// AddColumnSQL renders the statements adding a column to an existing table.
// NOT NULL columns get a zero-value default so existing rows stay valid.
func (d *Dialect) AddColumnSQL(table string, spec ColumnSpec) ([]string, error) {
	if spec.Primary {
		return nil, errors.Newf(errors.ErrTypeSchema,
			"cannot add primary key column %q to existing table %q", spec.Name, table)
	}

	quotedTable, quotedColumn := QuoteIdent(table), QuoteIdent(spec.Name)
	add := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quotedTable, quotedColumn, d.ColumnType(spec))

	var after []string

	if spec.NotNull {
		def := d.zeroDefault(spec.Type)
		if d.splitNotNull {
			add += " DEFAULT " + def
			after = append(after, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", quotedTable, quotedColumn))
		} else {
			add += " NOT NULL DEFAULT " + def
		}

		if d.dropDefault {
			after = append(after, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quotedTable, quotedColumn))
		}
	}

	if spec.Unique {
		if d.inlineUnique {
			add += " UNIQUE"
		} else {
			after = append(after, d.uniqueIndex(table, spec.Name))
		}
	}

	return append([]string{add}, after...), nil
}

// DropColumnSQL renders the statements dropping a column, along with its unique index
func (d *Dialect) DropColumnSQL(table, column string) []string {
	var statements []string
	if !d.inlineUnique {
		statements = append(statements, "DROP INDEX IF EXISTS "+QuoteIdent(uniqueIndexName(table, column)))
	}

	return append(statements,
		fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", QuoteIdent(table), QuoteIdent(column)))
}

func (d *Dialect) zeroDefault(dt DataType) string {
	switch dt {
	case DataInteger, DataFloat4, DataDecimal:
		return "0"
	case DataBoolean:
		return "FALSE"
	case DataDate:
		return "'" + d.zeroDate + "'"
	case DataUUID:
		return "'00000000-0000-0000-0000-000000000000'"
	case DataJSON:
		return "'{}'"
	default:
		return "''"
	}
}
