package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/formatter"
	"github.com/kyleking/schemaflow/internal/migration"
)

func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:        "plan",
		Usage:       "Print the migration plan of every schema version",
		Description: `Walk the schema history and print the steps each version applies, after its plan hook.`,
		Flags: append(configFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print plans as JSON"},
			formatFlag(),
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			history, _, err := loadHistory(cfg)
			if err != nil {
				return err
			}

			return runPlan(os.Stdout, history, cmd.Bool("json"), formatter.ParseFormat(cmd.String("format")))
		},
	}
}

type versionPlanJSON struct {
	Version string         `json:"version"`
	Steps   migration.Plan `json:"steps"`
}

func runPlan(w io.Writer, history migration.History, asJSON bool, format formatter.OutputFormat) error {
	plans := migration.Plans(history)

	if asJSON {
		out := make([]versionPlanJSON, 0, len(plans))
		for _, vp := range plans {
			out = append(out, versionPlanJSON{Version: vp.Version, Steps: vp.Plan})
		}

		return writeJSON(w, out)
	}

	f := formatter.NewFormatter()
	for _, vp := range plans {
		fmt.Fprintln(w, f.FormatVersionPlan(vp, format))
	}

	return nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "output format: long or short",
		Value: string(formatter.FormatLong),
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode JSON")
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
