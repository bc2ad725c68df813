package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rcsclean/internal/metrics"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		endpoint string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the metrics of a running rcsclean server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if endpoint == "" {
				endpoint = fmt.Sprintf("http://localhost:%d/metrics", a.cfg.Server.HTTPPort)
			}
			s, err := metrics.Scrape(cmd.Context(), metrics.NewClient(), endpoint)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			fmt.Fprintf(w, "Endpoint:       %s\n", s.Endpoint)
			fmt.Fprintf(w, "Series:         %.0f (%.0f with issues)\n", s.Runs, s.Invalid)
			fmt.Fprintf(w, "Mean length:    %.1f samples\n", s.MeanPoints)
			fmt.Fprintf(w, "Mean duration:  %.3f ms\n", s.MeanDuration*1000)
			kinds := make([]string, 0, len(s.Issues))
			for k := range s.Issues {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				fmt.Fprintf(w, "  %-18s %6.0f series, %8.0f samples\n", k, s.Issues[k], s.IssueSamples[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "metrics URL (default http://localhost:<http_port>/metrics)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
