package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wastedash/internal/core"
	"wastedash/internal/loader"
	"wastedash/internal/metrics"
	"wastedash/internal/report"
)

func newReportCmd(e *env) *cobra.Command {
	var (
		from, to   int
		categories []string
		out        string
		id         string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a dashboard snapshot (workbook, charts, manifest) to disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := reportRequest(e.cfg.YearAxis(), from, to, categories, cmd.Flags().Changed("category"))
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			if err := report.ValidateID(id); err != nil {
				return fmt.Errorf("--id: %w", err)
			}
			req.ID = id
			if out == "" {
				out = e.cfg.SnapshotDir
			}

			res, err := e.backend(cmd)
			if err != nil {
				return err
			}
			defer res.Close()

			ds, err := loader.New(res.Source, e.logger, metrics.New()).Load(cmd.Context())
			if err != nil {
				return err
			}
			manifest, err := report.NewWriter(out, e.cfg.YearAxis()).Write(cmd.Context(), ds, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(manifest)
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "first year (defaults to the axis start)")
	cmd.Flags().IntVar(&to, "to", 0, "last year (defaults to the axis end)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "categories to include (repeatable; omit for all)")
	cmd.Flags().StringVar(&out, "out", "", "output directory (defaults to SNAPSHOT_DIR)")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id (defaults to a new UUID)")
	return cmd
}

// reportRequest turns the flags into a snapshot request. Zero years fall
// back to the axis bounds and the range is clamped to the axis.
func reportRequest(axis core.YearRange, from, to int, categories []string, categorySet bool) (report.Request, error) {
	years := axis
	if from != 0 {
		years.Min = from
	}
	if to != 0 {
		years.Max = to
	}
	if years.Min > years.Max {
		return report.Request{}, fmt.Errorf("--from %d is after --to %d", years.Min, years.Max)
	}

	req := report.Request{Years: years.Clamp(axis), AllCategories: !categorySet}
	for _, c := range categories {
		if n := core.NormalizeCategory(c); n != "" {
			req.Categories = append(req.Categories, n)
		}
	}
	return req, nil
}
