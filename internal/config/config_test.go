package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/schemaflow/internal/errors"
)

// isolateConfigFile points the config file lookup at an empty temp dir
func isolateConfigFile(t *testing.T) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(EnvPrefix+"CONFIG", configPath)

	return configPath
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfigFile(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ImplementationDuckDB, cfg.Database.Implementation)
	assert.Equal(t, "database.duckdb", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Database.Timeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, EnvProduction, cfg.App.Environment)
	assert.Empty(t, cfg.App.SchemaDir)
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := isolateConfigFile(t)

	fileConfig := map[string]interface{}{
		"database": map[string]interface{}{
			"implementation": "sqlite",
			"path":           "/data/app.sqlite",
			"query_timeout":  "5s",
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
		"app": map[string]interface{}{
			"environment": "development",
		},
	}

	data, err := json.MarshalIndent(fileConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ImplementationSQLite, cfg.Database.Implementation)
	assert.Equal(t, "/data/app.sqlite", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := isolateConfigFile(t)
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	isolateConfigFile(t)

	envVars := map[string]string{
		"SCHEMAFLOW_DB_IMPLEMENTATION": "sqlite",
		"SCHEMAFLOW_DB_FILE":           ":memory:",
		"SCHEMAFLOW_DB_QUERY_TIMEOUT":  "45s",
		"SCHEMAFLOW_LOG_LEVEL":         "warn",
		"SCHEMAFLOW_LOG_OUTPUT":        "stdout",
		"SCHEMAFLOW_APP_ENV":           "test",
		"SCHEMAFLOW_SCHEMA_DIR":        "/schemas",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ImplementationSQLite, cfg.Database.Implementation)
	assert.Equal(t, MemoryPath, cfg.Database.Path)
	assert.True(t, cfg.Database.InMemory())
	assert.Equal(t, 45*time.Second, cfg.Database.Timeout())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, EnvTest, cfg.App.Environment)
	assert.Equal(t, "/schemas", cfg.App.SchemaDir)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{}

	applyFlagOverrides(cfg, map[string]interface{}{
		"db-path":           "/flag/db.duckdb",
		"db-implementation": "postgres",
		"log-level":         "error",
		"env":               "development",
		"schema-dir":        "/flag/schemas",
		"unknown":           "ignored",
		"schema-dir-bad":    42,
	})

	assert.Equal(t, "/flag/db.duckdb", cfg.Database.Path)
	assert.Equal(t, ImplementationPostgres, cfg.Database.Implementation)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, "/flag/schemas", cfg.App.SchemaDir)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Implementation: "duckdb", Path: MemoryPath, QueryTimeout: "30s"},
			Logging:  LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
			App:      AppConfig{Environment: "production"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"uppercase implementation", func(c *Config) { c.Database.Implementation = "SQLite" }, ""},
		{"unknown implementation", func(c *Config) { c.Database.Implementation = "oracle" }, "database.implementation"},
		{"postgres without dsn", func(c *Config) { c.Database.Implementation = "postgres" }, "database.connection_string"},
		{"bad timeout", func(c *Config) { c.Database.QueryTimeout = "soon" }, "database.query_timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"bad environment", func(c *Config) { c.App.Environment = "staging" }, "app.environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestMergeConfigs(t *testing.T) {
	target := &Config{
		Database: DatabaseConfig{Implementation: "duckdb", Path: "a.duckdb"},
		Logging:  LoggingConfig{Level: "info"},
	}
	source := &Config{
		Database: DatabaseConfig{Path: "b.duckdb"},
	}

	mergeConfigs(target, source)

	assert.Equal(t, "duckdb", target.Database.Implementation)
	assert.Equal(t, "b.duckdb", target.Database.Path)
	assert.Equal(t, "info", target.Logging.Level)
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, homeDir, expandPath("~"))
	assert.Equal(t, filepath.Join(homeDir, "db.duckdb"), expandPath("~/db.duckdb"))
	assert.Equal(t, "/abs/db.duckdb", expandPath("/abs/db.duckdb"))
	assert.Equal(t, "~other/db", expandPath("~other/db"))
}

func TestExpandAllPathsKeepsMemoryPath(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: MemoryPath}}
	cfg.ExpandAllPaths()

	assert.Equal(t, MemoryPath, cfg.Database.Path)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	configPath := isolateConfigFile(t)
	require.NoError(t, os.WriteFile(configPath,
		[]byte(`{"database": {"implementation": "sqlite", "path": "file.sqlite"}}`), 0600))
	t.Setenv("SCHEMAFLOW_DB_FILE", "env.sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ImplementationSQLite, cfg.Database.Implementation)
	assert.Equal(t, "env.sqlite", cfg.Database.Path)
}
