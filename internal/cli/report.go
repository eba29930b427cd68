package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesdw/internal/reports"
)

var reportTopN int

var reportCmd = &cobra.Command{
	Use:   "report [name...]",
	Short: "Run reporting queries against the warehouse",
	Long: `Run one or more of the fixed aggregation queries over the star schema
and print the results. With no names, every report is run.

Example:
  pgedge-salesdw report
  pgedge-salesdw report top_customers --top 10`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportTopN, "top", 0,
		"number of rows for ranked reports")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportTopN > 0 {
		cfg.Report.TopN = reportTopN
	}

	if err := cfg.ValidateReport(); err != nil {
		return err
	}

	var defs []reports.Definition
	if len(args) == 0 {
		defs = reports.All()
	} else {
		for _, name := range args {
			d, err := reports.Get(name)
			if err != nil {
				return err
			}
			defs = append(defs, d)
		}
	}

	ctx := context.Background()
	w, err := openWriter(ctx, 0)
	if err != nil {
		return err
	}
	defer w.Store().Close()

	params := reports.Params{TopN: cfg.Report.TopN}
	for _, d := range defs {
		t, err := d.Run(ctx, w.Store(), params)
		if err != nil {
			return fmt.Errorf("report %s failed: %w", d.Name, err)
		}
		if err := t.Print(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}
