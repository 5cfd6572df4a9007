package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/logging"
	"github.com/kyleking/schemaflow/internal/migration"
)

// Ledger table names per backend
const (
	LedgerTable       = "schema_migrations"
	SQLiteLedgerTable = "schema_migration_history"
)

// TxRunner runs fn inside a transaction, committing when fn returns nil
type TxRunner func(ctx context.Context, fn func(tx ddl.Execer) error) error

// Ledger records which migrations a store has applied and applies the rest.
// DB is the schema builder type the migrations were compiled for.
type Ledger[DB any] struct {
	exec    ddl.Execer
	dialect *ddl.Dialect
	table   string
	bind    func(ddl.Execer) DB
	inTx    TxRunner
	log     *logging.Logger
}

// NewLedger creates a ledger stored in table. bind wraps a transaction in the
// schema builder the migrations expect.
func NewLedger[DB any](
	exec ddl.Execer,
	dialect *ddl.Dialect,
	table string,
	bind func(ddl.Execer) DB,
	inTx TxRunner,
	log *logging.Logger,
) *Ledger[DB] {
	if log == nil {
		log = logging.Nop()
	}

	return &Ledger[DB]{exec: exec, dialect: dialect, table: table, bind: bind, inTx: inTx, log: log}
}

// Table returns the name of the ledger table
func (l *Ledger[DB]) Table() string {
	return l.table
}

// Ensure creates the ledger table if needed
func (l *Ledger[DB]) Ensure(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (name VARCHAR(255) NOT NULL PRIMARY KEY, applied_at VARCHAR(64) NOT NULL)`,
		ddl.QuoteIdent(l.table))

	if _, err := l.exec.ExecContext(ctx, createTableSQL); err != nil {
		return errors.Wrap(err, errors.ErrTypeMigration, "failed to create migration table")
	}

	return nil
}

// Applied returns applied migration names with their application times
func (l *Ledger[DB]) Applied(ctx context.Context) (map[string]time.Time, error) {
	exists, err := l.dialect.TableExists(ctx, l.exec, l.table)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]time.Time)
	if !exists {
		return applied, nil
	}

	query := fmt.Sprintf("SELECT name, applied_at FROM %s", ddl.QuoteIdent(l.table))

	rows, err := l.exec.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeMigration, "failed to query applied migrations")
	}

	defer rows.Close()

	for rows.Next() {
		var name, appliedAt string
		if err := rows.Scan(&name, &appliedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeMigration, "failed to scan migration record")
		}

		at, _ := time.Parse(time.RFC3339Nano, appliedAt)
		applied[name] = at
	}

	return applied, rows.Err()
}

// Pending returns the names of migrations not yet applied, in order
func (l *Ledger[DB]) Pending(ctx context.Context, migrations migration.Migrations[DB]) ([]string, error) {
	applied, err := l.Applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string

	for _, name := range migrations.Names() {
		if _, ok := applied[name]; !ok {
			pending = append(pending, name)
		}
	}

	return pending, nil
}

// Status reports every migration with its ledger state
func (l *Ledger[DB]) Status(ctx context.Context, migrations migration.Migrations[DB]) ([]MigrationState, error) {
	applied, err := l.Applied(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]MigrationState, 0, len(migrations))

	for _, name := range migrations.Names() {
		state := MigrationState{Name: name}
		if at, ok := applied[name]; ok {
			state.Applied = true
			state.AppliedAt = &at
		}

		states = append(states, state)
	}

	return states, nil
}

// MigrateToLatest applies pending migrations in order. Each migration and
// its ledger row commit together; the first failure stops the run.
func (l *Ledger[DB]) MigrateToLatest(ctx context.Context, migrations migration.Migrations[DB]) ([]string, error) {
	if err := l.Ensure(ctx); err != nil {
		return nil, err
	}

	pending, err := l.Pending(ctx, migrations)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		l.log.Debug("Schema is up to date")
		return nil, nil
	}

	l.log.WithField("pending", len(pending)).Info("Applying schema migrations")

	applied := make([]string, 0, len(pending))

	for _, name := range pending {
		m, _ := migrations.Get(name)

		err := l.inTx(ctx, func(tx ddl.Execer) error {
			if err := m.Up(ctx, l.bind(tx)); err != nil {
				return err
			}

			return l.record(ctx, tx, name)
		})
		if err != nil {
			l.log.WithField("version", name).WithError(err).Error("Migration failed")
			return applied, errors.Wrapf(err, errors.ErrTypeMigration, "migration %s failed", name)
		}

		l.log.WithField("version", name).Info("Migration applied")

		applied = append(applied, name)
	}

	return applied, nil
}

func (l *Ledger[DB]) record(ctx context.Context, tx ddl.Execer, name string) error {
	insertSQL := fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (%s)",
		ddl.QuoteIdent(l.table), l.dialect.Placeholders(1, 2))

	appliedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, insertSQL, name, appliedAt); err != nil {
		return errors.Wrapf(err, errors.ErrTypeMigration, "failed to record migration %s", name)
	}

	return nil
}

// sqlTxRunner runs fn in a database/sql transaction
func sqlTxRunner(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn func(tx ddl.Execer) error) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeTransaction, "failed to begin transaction")
		}

		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, errors.ErrTypeTransaction, "failed to commit transaction")
		}

		return nil
	}
}
