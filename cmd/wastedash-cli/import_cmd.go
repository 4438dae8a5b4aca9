package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wastedash/internal/sources/csvfile"
)

var errNotImportable = errors.New("backend does not accept imports")

func newImportCmd(e *env) *cobra.Command {
	var delimiter string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the stored raw records with the rows of a CSV file",
		Long: "Rows are stored as raw text, so the dashboard applies the same " +
			"cleaning rules to imported data as to a CSV source.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.backend(cmd)
			if err != nil {
				return err
			}
			defer res.Close()
			if res.Importer == nil {
				return fmt.Errorf("%w: %s", errNotImportable, e.cfg.DataBackend)
			}

			sep := e.cfg.Delimiter()
			if delimiter != "" {
				sep = []rune(delimiter)[0]
			}
			raws, err := csvfile.New(args[0], sep).ReadRecords(cmd.Context())
			if err != nil {
				return err
			}

			n, err := res.Importer.ImportRecords(cmd.Context(), raws)
			if err != nil {
				return fmt.Errorf("import records: %w", err)
			}
			e.logger.Info("Import complete", "file", args[0], "rows", n, "backend", e.cfg.DataBackend)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", n, res.Source.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "field delimiter (defaults to CSV_DELIMITER)")
	return cmd
}
