package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rcsclean/internal/api"
)

type processFlags struct {
	in         string
	out        string
	noSmooth   bool
	noDB       bool
	noValidate bool
}

// processOutput is written by `rcsclean process`.
type processOutput struct {
	SeriesID       string             `json:"series_id,omitempty"`
	ProcessedData  []api.Point        `json:"processed_data"`
	ProcessingInfo api.ProcessingInfo `json:"processing_info"`
	Success        bool               `json:"success"`
}

func newProcessCmd(a *app) *cobra.Command {
	f := &processFlags{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean one series read as JSON",
		Long: `Reads {"series_id": "...", "data": [{"theta": 0, "rcs": 1.2}, ...], "options": {...}}
or a bare [{"theta": ..., "rcs": ...}] array. A null rcs is a missing sample.
Writes the cleaned samples and the processing report as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProcess(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.in, "in", "-", "input file, - for stdin")
	cmd.Flags().StringVar(&f.out, "out", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&f.noSmooth, "no-smooth", false, "use the fine smoothing width instead of the full one")
	cmd.Flags().BoolVar(&f.noDB, "no-db", false, "keep linear values instead of converting to dB")
	cmd.Flags().BoolVar(&f.noValidate, "no-validate", false, "skip issue detection")
	return cmd
}

func (a *app) runProcess(cmd *cobra.Command, f *processFlags) error {
	raw, err := readInput(cmd, f.in)
	if err != nil {
		return err
	}
	req, err := decodeRequest(raw)
	if err != nil {
		return err
	}

	opts := req.Options.Pipeline()
	if f.noSmooth {
		opts.Smooth = false
	}
	if f.noDB {
		opts.ConvertScale = false
	}
	if f.noValidate {
		opts.Validate = false
	}

	p, err := a.pipeline(req.Options.SmoothingSigma, req.Options.MinDBValue)
	if err != nil {
		return err
	}
	out, report, err := p.ProcessSeries(req.Series(), opts)
	if err != nil {
		return err
	}
	a.logger.Info("process: done",
		"points", report.DataPoints,
		"issues", len(report.OriginalIssues),
		"min", report.FinalRange.Min,
		"max", report.FinalRange.Max,
	)

	return writeOutput(cmd, f.out, processOutput{
		SeriesID:       req.SeriesID,
		ProcessedData:  api.Points(out),
		ProcessingInfo: api.NewProcessingInfo(report),
		Success:        true,
	})
}

func decodeRequest(raw []byte) (*api.ProcessRequest, error) {
	req := &api.ProcessRequest{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &req.Data); err != nil {
			return nil, fmt.Errorf("process: decode samples: %w", err)
		}
		return req, nil
	}
	if err := json.Unmarshal(trimmed, req); err != nil {
		return nil, fmt.Errorf("process: decode request: %w", err)
	}
	return req, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("process: read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("process: read %q: %w", path, err)
	}
	return raw, nil
}

func writeOutput(cmd *cobra.Command, path string, v interface{}) error {
	var w io.Writer = cmd.OutOrStdout()
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("process: create %q: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("process: encode output: %w", err)
	}
	return bw.Flush()
}
