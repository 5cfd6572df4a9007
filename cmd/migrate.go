package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/appschema"
	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/logging"
	"github.com/kyleking/schemaflow/internal/storage"
)

const spinnerDelay = 100 * time.Millisecond

func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and seed a new store",
		Description: `Open the configured database, apply every pending schema version in order and,
when the store did not exist before, seed it for the configured environment.
A failed migration aborts with a non-zero exit; a failed seed is reported only.`,
		Flags: append(configFlags(), &cli.BoolFlag{
			Name:  "quiet",
			Usage: "do not show a progress spinner",
		}),
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

			opts := migrateOptions{}
			if env.builtin {
				opts.seed, opts.seedMessage = appschema.Seeder(env.cfg.App.Environment)
			}

			if !cmd.Bool("quiet") {
				opts.progress = os.Stderr
			}

			return runMigrate(ctx, os.Stdout, db, env.log, opts)
		},
	}
}

type migrateOptions struct {
	seed        storage.Seeder
	seedMessage string
	// progress receives a spinner while migrations run; nil disables it
	progress io.Writer
}

func runMigrate(ctx context.Context, w io.Writer, db storage.Database, log *logging.Logger, opts migrateOptions) error {
	if log == nil {
		log = logging.Nop()
	}

	var s *spinner.Spinner
	if opts.progress != nil {
		s = spinner.New(spinner.CharSets[14], spinnerDelay, spinner.WithWriter(opts.progress))
		s.Suffix = " Applying migrations..."
		s.Start()
	}

	var status storage.InitStatus

	err := log.Timed("initialize", func() error {
		var err error
		status, err = db.Initialize(ctx, opts.seed)

		return err
	})

	if s != nil {
		s.Stop()
	}

	fmt.Fprintf(w, "Database: %s (%s)\n", db.Location(), db.Implementation())

	if err != nil && errors.GetType(err) != errors.ErrTypeSeed {
		return err
	}

	if len(status.Migrated) == 0 {
		fmt.Fprintln(w, "Schema is up to date.")
	} else {
		for _, name := range status.Migrated {
			fmt.Fprintf(w, "  applied %s\n", name)
		}
	}

	switch {
	case err != nil:
		fmt.Fprintf(w, "Seeding failed: %v\n", err)
	case status.Seeded && opts.seedMessage != "":
		fmt.Fprintln(w, opts.seedMessage)
	case status.StoreExisted:
		fmt.Fprintln(w, appschema.SkippedMessage)
	}

	return nil
}
