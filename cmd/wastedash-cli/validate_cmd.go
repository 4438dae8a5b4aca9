package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/metrics"
)

func newValidateCmd(e *env) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the configured source and print what cleaning drops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := e.backend(cmd)
			if err != nil {
				return err
			}
			defer res.Close()

			ds, err := loader.New(res.Source, e.logger, metrics.New()).Load(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), ds.Source, ds.Summary)
			if strict && ds.Summary.Dropped > 0 {
				return fmt.Errorf("%d of %d records dropped", ds.Summary.Dropped, ds.Summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record is dropped")
	return cmd
}

func printSummary(w io.Writer, source string, s core.ValidationSummary) {
	fmt.Fprintf(w, "source:  %s\n", source)
	fmt.Fprintf(w, "records: %d total, %d kept\n", s.Total, s.Kept)
	fmt.Fprintln(w, s.String())
	for _, rc := range s.Reasons() {
		fmt.Fprintf(w, "  %-18s %d\n", rc.Reason, rc.Count)
	}
	if len(s.Samples) == 0 {
		return
	}
	fmt.Fprintln(w, "samples:")
	for _, d := range s.Samples {
		fmt.Fprintf(w, "  line %d: %s (category=%q weight=%q year=%q)\n",
			d.Line, d.Reason, d.Raw.Category, d.Raw.Weight, d.Raw.Year)
	}
}
