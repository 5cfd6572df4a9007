package cmd

import (
	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/appschema"
	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/logging"
	"github.com/kyleking/schemaflow/internal/migration"
)

// overrideFlags are the flags every command accepts, named after the
// configuration overrides they set
var overrideFlags = []struct {
	name  string
	usage string
}{
	{"db-implementation", "database implementation: duckdb, sqlite or postgres"},
	{"db-path", "database file path, or :memory:"},
	{"db-connection-string", "postgres connection string"},
	{"env", "application environment: development, production or test"},
	{"schema-dir", "directory of v1.yaml, v2.yaml, ... schema versions"},
	{"log-level", "log level: debug, info, warn or error"},
}

func configFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(overrideFlags))
	for _, f := range overrideFlags {
		flags = append(flags, &cli.StringFlag{Name: f.name, Usage: f.usage})
	}

	return flags
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	overrides := make(map[string]interface{}, len(overrideFlags))
	for _, f := range overrideFlags {
		overrides[f.name] = cmd.String(f.name)
	}

	return config.LoadConfigWithOverrides(overrides)
}

// loadHistory returns the configured schema directory's history, or the
// built-in application history when none is set
func loadHistory(cfg *config.Config) (migration.History, bool, error) {
	if cfg.App.SchemaDir == "" {
		return appschema.History(), true, nil
	}

	history, err := migration.LoadHistoryDir(cfg.App.SchemaDir)

	return history, false, err
}

// environment bundles what a database command needs
type environment struct {
	cfg     *config.Config
	log     *logging.Logger
	history migration.History
	builtin bool
}

func setup(cmd *cli.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	history, builtin, err := loadHistory(cfg)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	return &environment{cfg: cfg, log: log, history: history, builtin: builtin}, nil
}

func (e *environment) close() {
	_ = e.log.Close()
}
