// Package storage runs schema migrations against a live database and exposes
// a backend-neutral CRUD and transaction API over the migrated schema.
package storage

import (
	"context"
	"time"
)

// Record is one row keyed by column name
type Record map[string]any

// CRUD is the entity-scoped data access surface shared by databases and transactions
type CRUD interface {
	FindByID(ctx context.Context, entity, id string) (Record, error)
	// FindOne returns the first record matching every filter attribute, or nil
	FindOne(ctx context.Context, entity string, filter Record) (Record, error)
	FindAll(ctx context.Context, entity string) ([]Record, error)
	Create(ctx context.Context, entity string, record Record) (Record, error)
	Update(ctx context.Context, entity string, record Record) (Record, error)
	Delete(ctx context.Context, entity, id string) error
}

// Transaction is an explicit transaction handle. Rollback never reports the
// engine's own rejection of the aborted work.
type Transaction interface {
	CRUD
	Commit() error
	Rollback() error
}

// Seeder populates a newly created store. It runs at most once, inside the
// transaction that finishes first-run setup.
type Seeder func(ctx context.Context, db Database, location string) error

// Database is a migrated store. Only one transaction may be open at a time;
// while it is open, the database's own CRUD calls run inside it.
type Database interface {
	CRUD
	Initialize(ctx context.Context, seed Seeder) (InitStatus, error)
	Transaction(ctx context.Context) (Transaction, error)
	MigrationStatus(ctx context.Context) ([]MigrationState, error)
	Location() string
	Implementation() string
	Close() error
}

// InitStatus reports what Initialize did
type InitStatus struct {
	Migrated     []string `json:"migrated"`
	Seeded       bool     `json:"seeded"`
	StoreExisted bool     `json:"store_existed"`
}

// MigrationState is one version's entry in the ledger
type MigrationState struct {
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}
