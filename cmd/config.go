package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Flags: append(configFlags(), &cli.BoolFlag{
			Name:  "json",
			Usage: "print the raw configuration as JSON",
		}),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runConfig(os.Stdout, cfg, cmd.Bool("json"))
		},
	}
}

func runConfig(w io.Writer, cfg *config.Config, asJSON bool) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	masked := *cfg
	if masked.Database.ConnectionString != "" {
		masked.Database.ConnectionString = "********"
	}

	if asJSON {
		return writeJSON(w, masked)
	}

	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w, "Active Configuration:")

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  Implementation: %s\n", masked.Database.Implementation)
	fmt.Fprintf(w, "  Path: %s\n", masked.Database.Path)

	if masked.Database.ConnectionString != "" {
		fmt.Fprintf(w, "  Connection String: %s\n", masked.Database.ConnectionString)
	}

	fmt.Fprintf(w, "  Query Timeout: %s\n", masked.Database.QueryTimeout)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", masked.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", masked.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", masked.Logging.Output)

	if masked.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", masked.Logging.File)
	}

	fmt.Fprintln(w, "\nApplication:")
	fmt.Fprintf(w, "  Environment: %s\n", masked.App.Environment)

	schemaDir := masked.App.SchemaDir
	if schemaDir == "" {
		schemaDir = "(built-in)"
	}

	fmt.Fprintf(w, "  Schema Directory: %s\n", schemaDir)

	return nil
}
