package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rcsclean/internal/api"
	"github.com/obsidianstack/rcsclean/internal/pipeline"
	"github.com/obsidianstack/rcsclean/internal/validate"
)

func newDemoCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Process a built-in 360-sample pattern with gaps, negatives and a spike",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			series := pipeline.DemoSeries()
			p, err := a.pipeline(nil, nil)
			if err != nil {
				return err
			}
			out, report, err := p.ProcessSeries(series, pipeline.DefaultOptions())
			if err != nil {
				return err
			}

			if asJSON {
				return writeOutput(cmd, "-", processOutput{
					SeriesID:       "demo",
					ProcessedData:  api.Points(out),
					ProcessingInfo: api.NewProcessingInfo(report),
					Success:        true,
				})
			}

			valid, _ := validate.Check(series.Values)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Original data valid: %t\n", valid)
			fmt.Fprintf(w, "Issues found: %s\n", strings.Join(report.OriginalIssues.Messages(), "; "))
			fmt.Fprintln(w, "Fixes applied:")
			for _, fix := range report.FixesApplied {
				fmt.Fprintf(w, "  - %s\n", fix)
			}
			fmt.Fprintf(w, "Backend: %s\n", p.Backend())
			fmt.Fprintf(w, "Data points: %d\n", report.DataPoints)
			fmt.Fprintf(w, "Final RCS range: [%.2f, %.2f] dB\n", report.FinalRange.Min, report.FinalRange.Max)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
