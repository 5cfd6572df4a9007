package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
)

// NewApp returns the root command with every subcommand attached
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "schemaflow",
		Usage:   "Versioned schema migrations for DuckDB, SQLite and Postgres",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Description: `schemaflow derives migration plans from successive schema versions, applies
the pending ones to the configured database and seeds newly created stores.`,
		Commands: []*cli.Command{
			MigrateCommand(),
			StatusCommand(),
			PlanCommand(),
			DiffCommand(),
			ConfigCommand(),
		},
	}
}

// Execute runs the CLI against os.Args
func Execute() error {
	err := NewApp().Run(context.Background(), os.Args)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	for _, suggestion := range errors.SuggestionsOf(err) {
		fmt.Fprintf(w, "  hint: %s\n", suggestion)
	}
}
