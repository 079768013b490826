package cmd

import (
	"context"
	"fmt"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/importers"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/fbz-tec/crudx/internal/ui"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		inputPath string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create users from a CSV, JSON or YAML file",
		Long: `Create one user per record of the input file. Records need a name and an
age; ids in the file are ignored. The import stops at the first record that
fails and reports how many were created before it.`,
		Example: `  crudx import -i users.csv
  crudx import -i dump.txt -f json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "input"); err != nil {
				return err
			}
			records, err := importers.ReadFile(inputPath, format)
			if err != nil {
				return err
			}
			logger.Debug("Read %d records from %s", len(records), inputPath)

			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				var progress func()
				if !logger.IsQuiet() && len(records) > 0 {
					bar := ui.NewProgressBar(len(records), "Importing users", cmd.ErrOrStderr())
					defer bar.Finish()
					progress = func() { _ = bar.Add(1) }
				}

				n, err := importers.Import(ctx, conn, records, progress)
				if err != nil {
					return fmt.Errorf("import stopped after %d of %d users: %w", n, len(records), err)
				}
				logger.Success("Import completed: %d users created from %s", n, inputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input file path (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format (csv, json, yaml); inferred from the extension when empty")
	return cmd
}
