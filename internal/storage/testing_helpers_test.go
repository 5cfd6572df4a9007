package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
)

const postgresDSNEnv = "SCHEMAFLOW_TEST_POSTGRES_DSN"

var (
	testUserV1 = schema.Table("User",
		schema.F("id", schema.UUID()),
		schema.F("email", schema.Email()),
		schema.F("name", schema.Optional(schema.String())),
	)

	testUserV2 = schema.Table("User",
		schema.F("id", schema.UUID()),
		schema.F("email", schema.Email()),
		schema.F("name", schema.Optional(schema.String())),
		schema.F("age", schema.Optional(schema.Number())),
		schema.F("isActive", schema.Boolean()),
	)

	testPost = schema.Table("Post",
		schema.F("id", schema.UUID()),
		schema.F("title", schema.String()),
		schema.F("userId", schema.UUID()),
		schema.F("publishedAt", schema.Optional(schema.Date())),
		schema.F("meta", schema.Any()),
	)
)

// testHistory is a two-version history: User, then User with more columns plus Post
func testHistory() migration.History {
	return migration.History{
		"v1": {Schema: schema.Define(testUserV1), PlanHook: migration.IdentityHook},
		"v2": {Schema: schema.Define(testUserV2, testPost), PlanHook: migration.IdentityHook},
	}
}

type backendCase struct {
	name string
	open func(t *testing.T, history migration.History) Database
}

// backends returns the in-memory backends plus Postgres when a DSN is configured
func backends(t *testing.T) []backendCase {
	t.Helper()

	cases := []backendCase{
		{"duckdb", func(t *testing.T, history migration.History) Database {
			t.Helper()

			db, err := NewDuckDBDatabase(config.MemoryPath, history)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			return db
		}},
		{"sqlite", func(t *testing.T, history migration.History) Database {
			t.Helper()

			db, err := NewSQLiteDatabase(config.MemoryPath, history)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			return db
		}},
	}

	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		cases = append(cases, backendCase{"postgres", func(t *testing.T, history migration.History) Database {
			t.Helper()

			resetPostgres(t, dsn)

			db, err := NewPostgresDatabase(t.Context(), dsn, history)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = db.Close()
				resetPostgres(t, dsn)
			})

			return db
		}})
	}

	return cases
}

func resetPostgres(t *testing.T, dsn string) {
	t.Helper()

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	defer db.Close()

	for _, table := range []string{"Post", "User", LedgerTable} {
		_, err := db.Exec(`DROP TABLE IF EXISTS "` + table + `"`)
		require.NoError(t, err)
	}
}

// tempDBPath returns a file path for a store that does not exist yet
func tempDBPath(t *testing.T, name string) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "data", name)
}
