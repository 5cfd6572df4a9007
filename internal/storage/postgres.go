package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/migration"
)

// PostgresDatabase migrates through the callback-style schema builder.
// The store counts as existing when its ledger table does.
type PostgresDatabase struct {
	*core

	ledger     *Ledger[ddl.SchemaBuilder]
	migrations migration.Migrations[ddl.SchemaBuilder]
}

// NewPostgresDatabase connects using a libpq-style or URL connection string
func NewPostgresDatabase(
	ctx context.Context,
	connString string,
	history migration.History,
	opts ...Option,
) (*PostgresDatabase, error) {
	o := applyOptions(opts)

	location, err := describeConnString(connString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConnection, "failed to open database")
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrTypeConnection, "failed to connect to %s", location)
	}

	existed, err := ddl.Postgres.TableExists(ctx, db, LedgerTable)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	c, err := newCore(db, history, location, existed, o)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &PostgresDatabase{
		core: c,
		ledger: NewLedger(db, ddl.Postgres, LedgerTable,
			func(e ddl.Execer) ddl.SchemaBuilder { return ddl.NewSQLSchema(e, ddl.Postgres) },
			sqlTxRunner(db), o.log),
		migrations: migration.Generate[ddl.SchemaBuilder](history, migration.NewFluentCompiler(o.log)),
	}

	c.self = p
	c.backend = backend{
		implementation: config.ImplementationPostgres,
		dialect:        ddl.Postgres,
		migrate: func(ctx context.Context) ([]string, error) {
			return p.ledger.MigrateToLatest(ctx, p.migrations)
		},
		status: func(ctx context.Context) ([]MigrationState, error) {
			return p.ledger.Status(ctx, p.migrations)
		},
		applied: func(ctx context.Context) (map[string]time.Time, error) {
			return p.ledger.Applied(ctx)
		},
		begin: beginSQL(db),
	}

	return p, nil
}

// describeConnString renders a connection string without credentials
func describeConnString(connString string) (string, error) {
	cfg, err := pgconn.ParseConfig(connString)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeConfig, "invalid postgres connection string")
	}

	return fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database), nil
}
