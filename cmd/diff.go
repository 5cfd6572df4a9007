package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/formatter"
	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
)

func DiffCommand() *cli.Command {
	return &cli.Command{
		Name:        "diff",
		Usage:       "Print the plan between two schema descriptor files",
		Description: `Compare two YAML schema descriptors and print the steps turning the first into the second.`,
		ArgsUsage:   " <previous.yaml> <next.yaml>",
		Flags: []cli.Flag{&cli.BoolFlag{
			Name:  "json",
			Usage: "print the plan as JSON",
		}},
		Action: func(_ context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return errors.Newf(errors.ErrTypeValidation, "expected exactly 2 arguments, got %d", args.Len())
			}

			return runDiff(os.Stdout, args.Get(0), args.Get(1), cmd.Bool("json"))
		},
	}
}

func runDiff(w io.Writer, previousPath, nextPath string, asJSON bool) error {
	previous, err := schema.LoadDescriptorFile(previousPath)
	if err != nil {
		return err
	}

	next, err := schema.LoadDescriptorFile(nextPath)
	if err != nil {
		return err
	}

	plan := migration.Compare(schema.ExtractSchemaInfo(previous), schema.ExtractSchemaInfo(next))

	if asJSON {
		return writeJSON(w, plan)
	}

	fmt.Fprintf(w, "%s -> %s:\n", previousPath, nextPath)
	fmt.Fprintln(w, formatter.NewFormatter().FormatPlan(plan))

	return nil
}
