package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kyleking/schemaflow/internal/errors"
)

// EnvPrefix is prepended to every environment variable the configuration reads
const EnvPrefix = "SCHEMAFLOW_"

// MemoryPath selects an in-memory store for the file-backed implementations
const MemoryPath = ":memory:"

// Supported database implementations
const (
	ImplementationDuckDB   = "duckdb"
	ImplementationSQLite   = "sqlite"
	ImplementationPostgres = "postgres"
)

// Supported application environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	App      AppConfig      `json:"app"`
}

// DatabaseConfig selects and locates the storage backend
type DatabaseConfig struct {
	Implementation   string `json:"implementation"    env:"DB_IMPLEMENTATION"`
	Path             string `json:"path"              env:"DB_FILE"`
	ConnectionString string `json:"connection_string" env:"DB_CONNECTION_STRING"`
	QueryTimeout     string `json:"query_timeout"     env:"DB_QUERY_TIMEOUT"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"`  // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT"` // text, json
	Output string `json:"output" env:"LOG_OUTPUT"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"`   // log file path when output is file
}

// AppConfig holds settings about the application owning the schema
type AppConfig struct {
	Environment string `json:"environment" env:"APP_ENV"`
	SchemaDir   string `json:"schema_dir"  env:"SCHEMA_DIR"`
}

// DefaultConfig returns the configuration used when neither file nor environment set a value
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Implementation: ImplementationDuckDB,
			Path:           "database.duckdb",
			QueryTimeout:   "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		App: AppConfig{
			Environment: EnvProduction,
		},
	}
}

// Timeout returns the parsed query timeout
func (d DatabaseConfig) Timeout() time.Duration {
	timeout, err := time.ParseDuration(d.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return timeout
}

// InMemory reports whether the configured store lives only in memory
func (d DatabaseConfig) InMemory() bool {
	return d.Path == MemoryPath || d.Path == ""
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load config file")
		}
	}

	// Only variables that are set override the file
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse environment variables")
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	config.ExpandAllPaths()

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		str, ok := value.(string)
		if !ok || str == "" {
			continue
		}

		switch key {
		case "db-path":
			config.Database.Path = str
		case "db-implementation":
			config.Database.Implementation = str
		case "db-connection-string":
			config.Database.ConnectionString = str
		case "log-level":
			config.Logging.Level = str
		case "env":
			config.App.Environment = str
		case "schema-dir":
			config.App.SchemaDir = str
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validImplementations := map[string]bool{
		ImplementationDuckDB: true, ImplementationSQLite: true, ImplementationPostgres: true,
	}
	config.Database.Implementation = strings.ToLower(config.Database.Implementation)
	if !validImplementations[config.Database.Implementation] {
		return errors.NewConfigError(
			fmt.Sprintf("invalid database implementation: %s (must be duckdb, sqlite, or postgres)",
				config.Database.Implementation),
			"database.implementation",
		)
	}

	if config.Database.Implementation == ImplementationPostgres && config.Database.ConnectionString == "" {
		return errors.NewConfigError(
			"postgres implementation requires a connection string",
			"database.connection_string",
		).WithSuggestion("Set " + EnvPrefix + "DB_CONNECTION_STRING")
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return errors.NewConfigError(
			"invalid database query timeout: "+config.Database.QueryTimeout,
			"database.query_timeout",
		)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return errors.NewConfigError(
			fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level),
			"logging.level",
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return errors.NewConfigError(
			fmt.Sprintf("invalid log format: %s (must be text or json)", config.Logging.Format),
			"logging.format",
		)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return errors.NewConfigError(
			fmt.Sprintf("invalid log output: %s (must be stdout, stderr, or file)", config.Logging.Output),
			"logging.output",
		)
	}

	validEnvironments := map[string]bool{
		EnvDevelopment: true, EnvProduction: true, EnvTest: true,
	}
	if !validEnvironments[strings.ToLower(config.App.Environment)] {
		return errors.NewConfigError(
			fmt.Sprintf("invalid environment: %s (must be development, production, or test)", config.App.Environment),
			"app.environment",
		)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	if !c.Database.InMemory() {
		c.Database.Path = expandPath(c.Database.Path)
	}

	c.Logging.File = expandPath(c.Logging.File)
	c.App.SchemaDir = expandPath(c.App.SchemaDir)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/schemaflow"
	}

	return filepath.Join(homeDir, ".config", "schemaflow")
}
