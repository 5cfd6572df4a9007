package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
)

type fileBackend struct {
	name string
	open func(path string, history migration.History) (Database, error)
}

var fileBackends = []fileBackend{
	{"duckdb", func(path string, history migration.History) (Database, error) {
		return asDatabase(NewDuckDBDatabase(path, history))
	}},
	{"sqlite", func(path string, history migration.History) (Database, error) {
		return asDatabase(NewSQLiteDatabase(path, history))
	}},
}

func TestFileStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file-backed store test in short mode")
	}

	for _, backend := range fileBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			path := tempDBPath(t, "app."+backend.name)
			seeds := 0

			seed := func(ctx context.Context, db Database, location string) error {
				seeds++
				assert.Equal(t, path, location)
				_, err := db.Create(ctx, "User", Record{"email": "first@example.com", "isActive": true})
				return err
			}

			db, err := backend.open(path, testHistory())
			require.NoError(t, err)

			status, err := db.Initialize(ctx, seed)
			require.NoError(t, err)
			assert.False(t, status.StoreExisted)
			assert.True(t, status.Seeded)
			require.NoError(t, db.Close())

			// a third version adds a column to an existing store
			history := testHistory()
			history["v3"] = migration.Version{
				Schema: schema.Define(
					schema.Table("User",
						schema.F("id", schema.UUID()),
						schema.F("email", schema.Email()),
						schema.F("name", schema.Optional(schema.String())),
						schema.F("age", schema.Optional(schema.Number())),
						schema.F("isActive", schema.Boolean()),
						schema.F("score", schema.Number()),
					),
					testPost,
				),
				PlanHook: migration.IdentityHook,
			}

			db, err = backend.open(path, history)
			require.NoError(t, err)

			status, err = db.Initialize(ctx, seed)
			require.NoError(t, err)
			assert.True(t, status.StoreExisted)
			assert.False(t, status.Seeded)
			assert.Equal(t, []string{"v3"}, status.Migrated)
			assert.Equal(t, 1, seeds)

			users, err := db.FindAll(ctx, "User")
			require.NoError(t, err)
			require.Len(t, users, 1)
			// existing rows get the zero value of a new NOT NULL column
			assert.Equal(t, int64(0), users[0]["score"])

			// an open transaction is rolled back on close, never committed
			tx, err := db.Transaction(ctx)
			require.NoError(t, err)
			_, err = tx.Create(ctx, "User", Record{"email": "lost@example.com", "isActive": true, "score": 1})
			require.NoError(t, err)
			require.NoError(t, db.Close())

			db, err = backend.open(path, history)
			require.NoError(t, err)

			defer db.Close()

			status, err = db.Initialize(ctx, seed)
			require.NoError(t, err)
			assert.Empty(t, status.Migrated)

			users, err = db.FindAll(ctx, "User")
			require.NoError(t, err)
			assert.Len(t, users, 1)
		})
	}
}

func TestStatusBeforeInitializeStillSeeds(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file-backed store test in short mode")
	}

	for _, backend := range fileBackends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			path := tempDBPath(t, "status."+backend.name)
			seeds := 0

			seed := func(context.Context, Database, string) error {
				seeds++
				return nil
			}

			// inspecting a fresh path creates the file without applying anything
			db, err := backend.open(path, testHistory())
			require.NoError(t, err)

			states, err := db.MigrationStatus(ctx)
			require.NoError(t, err)
			require.Len(t, states, 2)
			assert.False(t, states[0].Applied)
			require.NoError(t, db.Close())

			db, err = backend.open(path, testHistory())
			require.NoError(t, err)

			defer db.Close()

			status, err := db.Initialize(ctx, seed)
			require.NoError(t, err)
			assert.False(t, status.StoreExisted)
			assert.True(t, status.Seeded)
			assert.Equal(t, []string{"v1", "v2"}, status.Migrated)
			assert.Equal(t, 1, seeds)
		})
	}
}
