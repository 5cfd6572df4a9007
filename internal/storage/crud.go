package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/schema"
)

const idColumn = "id"

func (c *core) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}

	return ctx, func() {}
}

func (c *core) columns(entity string) ([]schema.ColumnDefinition, error) {
	columns, ok := c.info.Tables[entity]
	if !ok {
		return nil, errors.Newf(errors.ErrTypeValidation, "unknown entity %q", entity)
	}

	return columns, nil
}

func (c *core) column(entity, name string) (schema.ColumnDefinition, error) {
	column, ok := c.info.Column(entity, name)
	if !ok {
		return schema.ColumnDefinition{}, errors.Newf(errors.ErrTypeValidation, "unknown column %q for entity %q", name, entity)
	}

	return column, nil
}

// sortedKeys keeps generated SQL stable for a given record
func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func selectSQL(entity string, columns []schema.ColumnDefinition, where string) string {
	names := make([]string, len(columns))
	hasID := false

	for i, column := range columns {
		names[i] = ddl.QuoteIdent(column.Name)
		hasID = hasID || column.Name == idColumn
	}

	query := "SELECT " + strings.Join(names, ", ") + " FROM " + ddl.QuoteIdent(entity) + where
	if hasID {
		query += " ORDER BY " + ddl.QuoteIdent(idColumn)
	}

	return query
}

func (c *core) query(
	ctx context.Context,
	exec ddl.Execer,
	entity string,
	filter Record,
	limit int,
) ([]Record, error) {
	columns, err := c.columns(entity)
	if err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)

	for _, name := range sortedKeys(filter) {
		column, err := c.column(entity, name)
		if err != nil {
			return nil, err
		}

		if filter[name] == nil {
			conditions = append(conditions, ddl.QuoteIdent(name)+" IS NULL")
			continue
		}

		value, err := encodeValue(column, filter[name])
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeValidation, "invalid filter value for %s.%s", entity, name)
		}

		args = append(args, value)
		conditions = append(conditions, ddl.QuoteIdent(name)+" = "+c.backend.dialect.Placeholder(len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := selectSQL(entity, columns, where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to query %s", entity)
	}

	defer rows.Close()

	return scanRecords(rows, columns)
}

func scanRecords(rows *sql.Rows, columns []schema.ColumnDefinition) ([]Record, error) {
	records := []Record{}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan row")
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			record[column.Name] = normalizeValue(column, values[i])
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read rows")
	}

	return records, nil
}

func (c *core) findByID(ctx context.Context, exec ddl.Execer, entity, id string) (Record, error) {
	return c.findOne(ctx, exec, entity, Record{idColumn: id})
}

func (c *core) findOne(ctx context.Context, exec ddl.Execer, entity string, filter Record) (Record, error) {
	records, err := c.query(ctx, exec, entity, filter, 1)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, nil
	}

	return records[0], nil
}

func (c *core) findAll(ctx context.Context, exec ddl.Execer, entity string) ([]Record, error) {
	return c.query(ctx, exec, entity, nil, 0)
}

// create inserts record, generating a uuid id when the entity has one and
// the record does not. It returns the stored attributes.
func (c *core) create(ctx context.Context, exec ddl.Execer, entity string, record Record) (Record, error) {
	if _, err := c.columns(entity); err != nil {
		return nil, err
	}

	stored := make(Record, len(record)+1)
	for k, v := range record {
		stored[k] = v
	}

	if idCol, ok := c.info.Column(entity, idColumn); ok && idCol.Type == schema.TypeUUID {
		if id, _ := stored[idColumn].(string); id == "" {
			stored[idColumn] = uuid.NewString()
		}
	}

	if err := c.validator.Validate(entity, stored); err != nil {
		return nil, err
	}

	names, args, err := c.encodeRecord(entity, stored)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = ddl.QuoteIdent(name)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteIdent(entity), strings.Join(quoted, ", "), c.backend.dialect.Placeholders(1, len(args)))

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	if _, err := exec.ExecContext(ctx, insertSQL, args...); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to create %s", entity)
	}

	return stored, nil
}

// update writes every attribute of record to the row with its id
func (c *core) update(ctx context.Context, exec ddl.Execer, entity string, record Record) (Record, error) {
	if _, err := c.columns(entity); err != nil {
		return nil, err
	}

	id, ok := record[idColumn]
	if !ok || id == nil {
		return nil, errors.Newf(errors.ErrTypeValidation, "cannot update %s without an id", entity)
	}

	if err := c.validator.ValidatePartial(entity, record); err != nil {
		return nil, err
	}

	changes := make(Record, len(record))
	for k, v := range record {
		if k != idColumn {
			changes[k] = v
		}
	}

	if len(changes) == 0 {
		return record, nil
	}

	names, args, err := c.encodeRecord(entity, changes)
	if err != nil {
		return nil, err
	}

	dialect := c.backend.dialect
	assignments := make([]string, len(names))

	for i, name := range names {
		assignments[i] = ddl.QuoteIdent(name) + " = " + dialect.Placeholder(i+1)
	}

	idColumnDef, err := c.column(entity, idColumn)
	if err != nil {
		return nil, err
	}

	idArg, err := encodeValue(idColumnDef, id)
	if err != nil {
		return nil, err
	}

	args = append(args, idArg)
	updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		ddl.QuoteIdent(entity), strings.Join(assignments, ", "), ddl.QuoteIdent(idColumn), dialect.Placeholder(len(args)))

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	result, err := exec.ExecContext(ctx, updateSQL, args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to update %s", entity)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, errors.Newf(errors.ErrTypeNotFound, "%s %v not found", entity, id)
	}

	return record, nil
}

// delete removes the row with id; deleting a missing row is not an error
func (c *core) delete(ctx context.Context, exec ddl.Execer, entity, id string) error {
	if _, err := c.column(entity, idColumn); err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		ddl.QuoteIdent(entity), ddl.QuoteIdent(idColumn), c.backend.dialect.Placeholder(1))

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	if _, err := exec.ExecContext(ctx, deleteSQL, id); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to delete %s %s", entity, id)
	}

	return nil
}

func (c *core) encodeRecord(entity string, record Record) ([]string, []any, error) {
	names := sortedKeys(record)
	args := make([]any, 0, len(names))

	for _, name := range names {
		column, err := c.column(entity, name)
		if err != nil {
			return nil, nil, err
		}

		value, err := encodeValue(column, record[name])
		if err != nil {
			return nil, nil, errors.Wrapf(err, errors.ErrTypeValidation, "invalid value for %s.%s", entity, name)
		}

		args = append(args, value)
	}

	return names, args, nil
}
