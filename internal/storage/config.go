package storage

import (
	"context"

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/logging"
	"github.com/kyleking/schemaflow/internal/migration"
)

// Open creates the database the configuration selects. The caller owns
// the result and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig, history migration.History, log *logging.Logger) (Database, error) {
	if log == nil {
		log = logging.Nop()
	}

	opts := []Option{WithLogger(log), WithQueryTimeout(cfg.Timeout())}

	var (
		db  Database
		err error
	)

	switch cfg.Implementation {
	case config.ImplementationDuckDB, "":
		db, err = asDatabase(NewDuckDBDatabase(cfg.Path, history, opts...))
	case config.ImplementationSQLite:
		db, err = asDatabase(NewSQLiteDatabase(cfg.Path, history, opts...))
	case config.ImplementationPostgres:
		db, err = asDatabase(NewPostgresDatabase(ctx, cfg.ConnectionString, history, opts...))
	default:
		err = errors.NewConfigError("unsupported database implementation "+cfg.Implementation, "database.implementation")
	}

	if err != nil {
		return nil, err
	}

	log.WithField("implementation", db.Implementation()).WithField("location", db.Location()).Debug("Database opened")

	return db, nil
}

// asDatabase keeps a failed constructor's typed nil out of the interface
func asDatabase[T Database](db T, err error) (Database, error) {
	if err != nil {
		return nil, err
	}

	return db, nil
}
