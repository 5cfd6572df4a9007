package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/formatter"
	"github.com/kyleking/schemaflow/internal/storage"
)

func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Show which schema versions are applied",
		Description: `List every schema version with its ledger state, without applying anything.`,
		Flags:       append(configFlags(), formatFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			db, err := storage.Open(ctx, env.cfg.Database, env.history, env.log)
			if err != nil {
				return err
			}
			defer db.Close()

			return runStatus(ctx, os.Stdout, db, formatter.ParseFormat(cmd.String("format")))
		},
	}
}

func runStatus(ctx context.Context, w io.Writer, db storage.Database, format formatter.OutputFormat) error {
	states, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Migration Status (%s)\n", db.Implementation())
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintln(w, formatter.NewFormatter().FormatStatus(states, format))

	return nil
}
