package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/migration"
)

// DuckDBDatabase is the default backend. Migrations run through the
// callback-style schema builder.
type DuckDBDatabase struct {
	*core

	ledger     *Ledger[ddl.SchemaBuilder]
	migrations migration.Migrations[ddl.SchemaBuilder]
}

// NewDuckDBDatabase opens a DuckDB store at path (":memory:" for in-memory)
func NewDuckDBDatabase(path string, history migration.History, opts ...Option) (*DuckDBDatabase, error) {
	o := applyOptions(opts)

	existed, err := prepareFile(path)
	if err != nil {
		return nil, err
	}

	dsn := path
	if path == config.MemoryPath {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConnection, "failed to open database")
	}

	// one logical connection per database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeConnection, "failed to ping database")
	}

	c, err := newCore(db, history, path, existed, o)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DuckDBDatabase{
		core: c,
		ledger: NewLedger(db, ddl.DuckDB, LedgerTable,
			func(e ddl.Execer) ddl.SchemaBuilder { return ddl.NewSQLSchema(e, ddl.DuckDB) },
			sqlTxRunner(db), o.log),
		migrations: migration.Generate[ddl.SchemaBuilder](history, migration.NewFluentCompiler(o.log)),
	}

	c.self = d
	c.backend = backend{
		implementation: config.ImplementationDuckDB,
		dialect:        ddl.DuckDB,
		migrate: func(ctx context.Context) ([]string, error) {
			return d.ledger.MigrateToLatest(ctx, d.migrations)
		},
		status: func(ctx context.Context) ([]MigrationState, error) {
			return d.ledger.Status(ctx, d.migrations)
		},
		applied: func(ctx context.Context) (map[string]time.Time, error) {
			return d.ledger.Applied(ctx)
		},
		begin: beginSQL(db),
	}

	return d, nil
}

// prepareFile reports whether a file-backed store already exists and makes
// sure its directory does. In-memory stores are always new.
func prepareFile(path string) (bool, error) {
	if path == "" || path == config.MemoryPath {
		return false, nil
	}

	_, err := os.Stat(path)
	existed := err == nil

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create database directory")
	}

	return existed, nil
}
