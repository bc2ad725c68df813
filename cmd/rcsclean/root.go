package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rcsclean/internal/config"
	"github.com/obsidianstack/rcsclean/internal/pipeline"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "rcsclean",
		Short:        "Validate and repair angular RCS series for polar plotting",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level: debug|info|warn|error")

	root.AddCommand(
		newProcessCmd(a),
		newServeCmd(a),
		newDemoCmd(a),
		newStatsCmd(a),
		newPlotConfigCmd(a),
	)
	return root
}

// init loads the configuration and installs the process-wide logger.
func (a *app) init(logOut io.Writer) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(a.logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: want debug|info|warn|error", a.logLevel)
		}
		cfg.Log.Level = a.logLevel
	}

	a.cfg = cfg
	a.logger = newLogger(logOut, cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// pipeline builds a Pipeline from the loaded policy with optional per-run
// overrides.
func (a *app) pipeline(sigma, minDB *float64, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	p := a.cfg.Policy.Pipeline()
	if sigma != nil {
		p.SmoothingWidth = *sigma
	}
	if minDB != nil {
		p.MinDB = *minDB
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return pipeline.New(p, append([]pipeline.Option{pipeline.WithLogger(a.logger)}, opts...)...), nil
}
