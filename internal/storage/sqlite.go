package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/migration"
)

// errRolledBack aborts a bridged transaction's callback
var errRolledBack = stderrors.New("transaction rolled back")

// SQLiteDatabase migrates through the statement-builder schema API. Its
// engine access is callback-scoped (runInTransaction); explicit transaction
// handles are bridged onto that callback.
type SQLiteDatabase struct {
	*core

	ledger     *Ledger[ddl.ChainSchema]
	migrations migration.Migrations[ddl.ChainSchema]
}

// NewSQLiteDatabase opens a SQLite store at path (":memory:" for in-memory)
func NewSQLiteDatabase(path string, history migration.History, opts ...Option) (*SQLiteDatabase, error) {
	o := applyOptions(opts)

	existed, err := prepareFile(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConnection, "failed to open database")
	}

	// every pooled connection to :memory: would see its own database
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

	s := &SQLiteDatabase{
		core:       c,
		migrations: migration.Generate[ddl.ChainSchema](history, migration.NewChainCompiler(o.log)),
	}

	s.ledger = NewLedger(db, ddl.SQLite, SQLiteLedgerTable,
		func(e ddl.Execer) ddl.ChainSchema { return ddl.NewSQLChain(e, ddl.SQLite) },
		s.runInTransaction, o.log)

	c.self = s
	c.backend = backend{
		implementation: config.ImplementationSQLite,
		dialect:        ddl.SQLite,
		migrate: func(ctx context.Context) ([]string, error) {
			return s.ledger.MigrateToLatest(ctx, s.migrations)
		},
		status: func(ctx context.Context) ([]MigrationState, error) {
			return s.ledger.Status(ctx, s.migrations)
		},
		applied: func(ctx context.Context) (map[string]time.Time, error) {
			return s.ledger.Applied(ctx)
		},
		begin: s.beginBridged,
	}

	return s, nil
}

// runInTransaction runs fn with a transactional context; fn's error rolls back
func (s *SQLiteDatabase) runInTransaction(ctx context.Context, fn func(tx ddl.Execer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeTransaction, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeTransaction, "failed to commit transaction")
	}

	return nil
}

// bridgedTx holds a runInTransaction callback open until the caller
// decides: nil on decision commits, errRolledBack rolls back.
type bridgedTx struct {
	tx       ddl.Execer
	decision chan error
	done     chan error
}

func (s *SQLiteDatabase) beginBridged(ctx context.Context) (txHandle, error) {
	b := &bridgedTx{
		decision: make(chan error),
		done:     make(chan error, 1),
	}
	ready := make(chan ddl.Execer, 1)

	go func() {
		b.done <- s.runInTransaction(context.WithoutCancel(ctx), func(tx ddl.Execer) error {
			ready <- tx
			return <-b.decision
		})
	}()

	select {
	case tx := <-ready:
		b.tx = tx
		return b, nil
	case err := <-b.done:
		return nil, err
	}
}

func (b *bridgedTx) exec() ddl.Execer { return b.tx }

func (b *bridgedTx) commit() error {
	b.decision <- nil
	return <-b.done
}

func (b *bridgedTx) rollback() error {
	b.decision <- errRolledBack

	if err := <-b.done; err != nil && !stderrors.Is(err, errRolledBack) {
		return err
	}

	return nil
}
