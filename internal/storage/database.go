package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/kyleking/schemaflow/internal/ddl"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/logging"
	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
)

// Option configures a database at construction
type Option func(*options)

type options struct {
	log          *logging.Logger
	queryTimeout time.Duration
}

// WithLogger sets the logger for migrations and data access
func WithLogger(log *logging.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithQueryTimeout bounds each CRUD statement
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.queryTimeout = d
	}
}

func applyOptions(opts []Option) options {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// txHandle is a backend's open transaction
type txHandle interface {
	exec() ddl.Execer
	commit() error
	rollback() error
}

// backend is what each engine plugs into the shared database core
type backend struct {
	implementation string
	dialect        *ddl.Dialect
	migrate        func(ctx context.Context) ([]string, error)
	status         func(ctx context.Context) ([]MigrationState, error)
	applied        func(ctx context.Context) (map[string]time.Time, error)
	begin          func(ctx context.Context) (txHandle, error)
}

// core implements the Database contract on top of a backend
type core struct {
	mu sync.Mutex

	db       *sql.DB
	backend  backend
	self     Database
	location string
	existed  bool
	log      *logging.Logger
	timeout  time.Duration

	info      schema.SchemaInfo
	validator *schema.Validator

	active      txHandle
	initialized bool
	closed      bool
}

func newCore(db *sql.DB, history migration.History, location string, existed bool, o options) (*core, error) {
	_, latest, ok := history.Latest()
	if !ok {
		return nil, errors.New(errors.ErrTypeValidation, "schema history has no versions")
	}

	return &core{
		db:        db,
		location:  location,
		existed:   existed,
		log:       o.log,
		timeout:   o.queryTimeout,
		info:      schema.ExtractSchemaInfo(latest),
		validator: schema.NewValidator(latest),
	}, nil
}

// Location returns where the store lives
func (c *core) Location() string {
	return c.location
}

// Implementation returns the backend name
func (c *core) Implementation() string {
	return c.backend.implementation
}

// Schema returns the structure the database serves
func (c *core) Schema() schema.SchemaInfo {
	return c.info.Clone()
}

// DB returns the underlying connection pool
func (c *core) DB() *sql.DB {
	return c.db
}

// executor returns the active transaction or the pool
func (c *core) executor() (ddl.Execer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.NewNotOpenError()
	}

	if c.active != nil {
		return c.active.exec(), nil
	}

	return c.db, nil
}

// Initialize migrates the store to the latest schema and, for a newly
// created store, runs seed once inside a transaction. A store whose ledger
// holds no rows counts as new. Later calls on the same connection do nothing.
func (c *core) Initialize(ctx context.Context, seed Seeder) (InitStatus, error) {
	c.mu.Lock()
	closed, inTx, initialized := c.closed, c.active != nil, c.initialized
	c.mu.Unlock()

	switch {
	case closed:
		return InitStatus{}, errors.NewNotOpenError()
	case initialized:
		return InitStatus{StoreExisted: c.existed}, nil
	case inTx:
		return InitStatus{}, errors.New(errors.ErrTypeTransaction, "cannot initialize while a transaction is open")
	}

	log := c.log.WithField("location", c.location).WithField("implementation", c.backend.implementation)

	if c.existed {
		applied, err := c.backend.applied(ctx)
		if err != nil {
			return InitStatus{StoreExisted: true}, err
		}

		if len(applied) == 0 {
			log.Debug("Existing store has no applied migrations, treating it as new")
			c.existed = false
		}
	}

	status := InitStatus{StoreExisted: c.existed}

	applied, err := c.backend.migrate(ctx)
	if err != nil {
		log.WithError(err).Error("Database migration failed")
		return status, err
	}

	status.Migrated = applied

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	if c.existed || seed == nil {
		return status, nil
	}

	log.Info("Seeding data for the first time")

	if err := c.seed(ctx, seed); err != nil {
		log.WithError(err).Error("Database initialization failed, seeding skipped")
		return status, err
	}

	status.Seeded = true

	return status, nil
}

func (c *core) seed(ctx context.Context, seed Seeder) error {
	tx, err := c.Transaction(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeSeed, "database initialization failed")
	}

	if err := seed(ctx, c.self, c.location); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, errors.ErrTypeSeed, "database initialization failed")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeSeed, "database initialization failed")
	}

	return nil
}

// MigrationStatus reports each version's ledger state
func (c *core) MigrationStatus(ctx context.Context) ([]MigrationState, error) {
	c.mu.Lock()
	closed, inTx := c.closed, c.active != nil
	c.mu.Unlock()

	switch {
	case closed:
		return nil, errors.NewNotOpenError()
	case inTx:
		return nil, errors.New(errors.ErrTypeTransaction, "migration status is unavailable while a transaction is open")
	}

	return c.backend.status(ctx)
}

// Transaction opens the single transaction context of this database
func (c *core) Transaction(ctx context.Context) (Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.NewNotOpenError()
	}

	if c.active != nil {
		return nil, errors.New(errors.ErrTypeTransaction, "a transaction is already open on this database")
	}

	handle, err := c.backend.begin(ctx)
	if err != nil {
		return nil, err
	}

	c.active = handle

	return &sqlTransaction{core: c, handle: handle, state: txOpen}, nil
}

// release clears the active transaction if it is handle
func (c *core) release(handle txHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == handle {
		c.active = nil
	}
}

// Close rolls back an open transaction and closes the connection
func (c *core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if c.active != nil {
		if err := c.active.rollback(); err != nil {
			c.log.WithError(err).Warn("Failed to roll back open transaction on close")
		}

		c.active = nil
	}

	c.closed = true
	c.initialized = false

	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, errors.ErrTypeConnection, "failed to close database")
	}

	return nil
}

func (c *core) FindByID(ctx context.Context, entity, id string) (Record, error) {
	exec, err := c.executor()
	if err != nil {
		return nil, err
	}

	return c.findByID(ctx, exec, entity, id)
}

func (c *core) FindOne(ctx context.Context, entity string, filter Record) (Record, error) {
	exec, err := c.executor()
	if err != nil {
		return nil, err
	}

	return c.findOne(ctx, exec, entity, filter)
}

func (c *core) FindAll(ctx context.Context, entity string) ([]Record, error) {
	exec, err := c.executor()
	if err != nil {
		return nil, err
	}

	return c.findAll(ctx, exec, entity)
}

func (c *core) Create(ctx context.Context, entity string, record Record) (Record, error) {
	exec, err := c.executor()
	if err != nil {
		return nil, err
	}

	return c.create(ctx, exec, entity, record)
}

func (c *core) Update(ctx context.Context, entity string, record Record) (Record, error) {
	exec, err := c.executor()
	if err != nil {
		return nil, err
	}

	return c.update(ctx, exec, entity, record)
}

func (c *core) Delete(ctx context.Context, entity, id string) error {
	exec, err := c.executor()
	if err != nil {
		return err
	}

	return c.delete(ctx, exec, entity, id)
}

type txState int

const (
	txIdle txState = iota
	txOpen
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txIdle:
		return "idle"
	case txOpen:
		return "open"
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// sqlTransaction is the Transaction handed to callers
type sqlTransaction struct {
	core   *core
	handle txHandle

	mu    sync.Mutex
	state txState
}

func (t *sqlTransaction) executor() (ddl.Execer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != txOpen {
		return nil, errors.Newf(errors.ErrTypeTransaction, "transaction is %s", t.state)
	}

	if _, err := t.core.executor(); err != nil {
		return nil, err
	}

	return t.handle.exec(), nil
}

// finish moves an open transaction to its final state
func (t *sqlTransaction) finish(final txState, fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != txOpen {
		return errors.Newf(errors.ErrTypeTransaction, "cannot finish transaction: transaction is %s", t.state)
	}

	t.state = final
	defer t.core.release(t.handle)

	return fn()
}

func (t *sqlTransaction) Commit() error {
	return t.finish(txCommitted, t.handle.commit)
}

func (t *sqlTransaction) Rollback() error {
	return t.finish(txRolledBack, t.handle.rollback)
}

func (t *sqlTransaction) FindByID(ctx context.Context, entity, id string) (Record, error) {
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}

	return t.core.findByID(ctx, exec, entity, id)
}

func (t *sqlTransaction) FindOne(ctx context.Context, entity string, filter Record) (Record, error) {
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}

	return t.core.findOne(ctx, exec, entity, filter)
}

func (t *sqlTransaction) FindAll(ctx context.Context, entity string) ([]Record, error) {
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}

	return t.core.findAll(ctx, exec, entity)
}

func (t *sqlTransaction) Create(ctx context.Context, entity string, record Record) (Record, error) {
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}

	return t.core.create(ctx, exec, entity, record)
}

func (t *sqlTransaction) Update(ctx context.Context, entity string, record Record) (Record, error) {
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}

	return t.core.update(ctx, exec, entity, record)
}

func (t *sqlTransaction) Delete(ctx context.Context, entity, id string) error {
	exec, err := t.executor()
	if err != nil {
		return err
	}

	return t.core.delete(ctx, exec, entity, id)
}

// sqlTxHandle wraps a database/sql transaction
type sqlTxHandle struct {
	tx *sql.Tx
}

func beginSQL(db *sql.DB) func(ctx context.Context) (txHandle, error) {
	return func(ctx context.Context) (txHandle, error) {
		// the handle outlives the call that opened it
		tx, err := db.BeginTx(context.WithoutCancel(ctx), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeTransaction, "failed to begin transaction")
		}

		return sqlTxHandle{tx: tx}, nil
	}
}

func (h sqlTxHandle) exec() ddl.Execer { return h.tx }

func (h sqlTxHandle) commit() error {
	if err := h.tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeTransaction, "failed to commit transaction")
	}

	return nil
}

func (h sqlTxHandle) rollback() error {
	if err := h.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errors.Wrap(err, errors.ErrTypeTransaction, "failed to roll back transaction")
	}

	return nil
}
