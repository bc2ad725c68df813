package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/rcsclean/internal/plot"
)

func newPlotConfigCmd(_ *app) *cobra.Command {
	var title, format string
	cmd := &cobra.Command{
		Use:   "plot-config",
		Short: "Print the Plotly polar layout for cleaned RCS data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout := plot.NewLayout(title)
			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(layout)
			case "yaml":
				enc := yaml.NewEncoder(w)
				defer enc.Close()
				return enc.Encode(layout)
			default:
				return fmt.Errorf("plot-config: unknown format %q: want json|yaml", format)
			}
		},
	}
	cmd.Flags().StringVar(&title, "title", plot.DefaultTitle, "plot title")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml")
	return cmd
}
