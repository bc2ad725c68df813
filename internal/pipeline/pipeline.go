package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/obsidianstack/rcsclean/internal/repair"
	"github.com/obsidianstack/rcsclean/internal/validate"
	"github.com/obsidianstack/rcsclean/pkg/types"
)

// Default smoothing widths for the two smoothing preferences.
const (
	DefaultSmoothingWidth     = 1.0
	DefaultFineSmoothingWidth = 0.1
)

// Fix descriptions recorded in ProcessingReport.FixesApplied.
const (
	FixCleaning  = "Data cleaning and interpolation"
	FixSmoothing = "Smoothing applied"
	FixDB        = "Converted to dB scale"
)

// Policy is the complete set of processing parameters.
type Policy struct {
	// SmoothingWidth is used when Options.Smooth is set.
	SmoothingWidth float64

	// FineSmoothingWidth is used when Options.Smooth is not set.
	FineSmoothingWidth float64

	// MinValue is the floor for repaired linear values.
	MinValue float64

	// MinDB is the floor for dB-converted values.
	MinDB float64

	// Backend and Truncate select and shape the smoothing kernel.
	Backend  string
	Truncate float64
}

// DefaultPolicy returns the built-in processing parameters.
func DefaultPolicy() Policy {
	return Policy{
		SmoothingWidth:     DefaultSmoothingWidth,
		FineSmoothingWidth: DefaultFineSmoothingWidth,
		MinValue:           repair.DefaultMinValue,
		MinDB:              DefaultMinDB,
		Backend:            repair.DefaultBackend,
		Truncate:           repair.DefaultTruncate,
	}
}

// Validate checks every field range.
func (p Policy) Validate() error {
	if err := p.repairPolicy(p.SmoothingWidth).Validate(); err != nil {
		return err
	}
	if !(p.FineSmoothingWidth >= 0) || math.IsInf(p.FineSmoothingWidth, 0) {
		return fmt.Errorf("fine_smoothing_width must be a finite value >= 0, got %v", p.FineSmoothingWidth)
	}
	if math.IsNaN(p.MinDB) || math.IsInf(p.MinDB, 0) {
		return fmt.Errorf("min_db must be finite, got %v", p.MinDB)
	}
	return nil
}

func (p Policy) repairPolicy(width float64) repair.Policy {
	return repair.Policy{
		SmoothingWidth: width,
		MinValue:       p.MinValue,
		Backend:        p.Backend,
		Truncate:       p.Truncate,
	}
}

// Options selects the optional steps of one run.
type Options struct {
	Validate     bool
	Smooth       bool
	ConvertScale bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{Validate: true, Smooth: true, ConvertScale: true}
}

// Observer receives each finished report.
type Observer interface {
	ObserveReport(report *types.ProcessingReport, opts Options)
}

// Pipeline orchestrates validation, repair and scale conversion. It is
// immutable after New and safe for concurrent use.
type Pipeline struct {
	policy   Policy
	coarse   *repair.Repairer
	fine     *repair.Repairer
	logger   *slog.Logger
	observer Observer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger injects the logger used by the pipeline and its repairers.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers an observer for finished reports.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New builds a Pipeline for policy.
func New(policy Policy, opts ...Option) *Pipeline {
	p := &Pipeline{policy: policy, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.coarse = repair.New(policy.repairPolicy(policy.SmoothingWidth), repair.WithLogger(p.logger))
	p.fine = repair.New(policy.repairPolicy(policy.FineSmoothingWidth), repair.WithLogger(p.logger))
	return p
}

// Policy returns the policy the pipeline was built with.
func (p *Pipeline) Policy() Policy { return p.policy }

// Backend names the smoothing backend actually in use, which differs from
// Policy().Backend when the configured one is not compiled in.
func (p *Pipeline) Backend() string { return p.coarse.Smoother().Name() }

// Process cleans values and returns the result with its report. values is
// not modified. An empty input yields an empty output and a zero range.
func (p *Pipeline) Process(values []float64, opts Options) ([]float64, *types.ProcessingReport) {
	report := &types.ProcessingReport{
		OriginalIssues: types.IssueReport{},
		FixesApplied:   []string{},
		DataPoints:     len(values),
	}

	if opts.Validate {
		ok, issues := validate.Check(values)
		report.OriginalIssues = issues
		if !ok {
			p.logger.Warn("pipeline: validation found issues",
				"count", len(issues), "issues", issues.Messages())
		}
	}

	r := p.fine
	if opts.Smooth {
		r = p.coarse
	}
	outcome := r.Run(values)
	out := outcome.Values

	report.FixesApplied = append(report.FixesApplied, FixCleaning)
	if opts.Smooth {
		report.FixesApplied = append(report.FixesApplied, FixSmoothing)
	}
	for _, a := range outcome.Actions {
		report.FixesApplied = append(report.FixesApplied, a.Message)
	}

	if opts.ConvertScale {
		out = ToDB(out, p.policy.MinDB)
		report.FixesApplied = append(report.FixesApplied, FixDB)
	}

	if len(out) > 0 {
		report.FinalRange = types.Range{Min: floats.Min(out), Max: floats.Max(out)}
	}

	p.logger.Debug("pipeline: processed series",
		"points", report.DataPoints,
		"issues", len(report.OriginalIssues),
		"fixes", len(report.FixesApplied),
		"min", report.FinalRange.Min,
		"max", report.FinalRange.Max,
	)
	if p.observer != nil {
		p.observer.ObserveReport(report, opts)
	}
	return out, report
}

// ProcessSeries checks the shape of s and processes its values. Angles are
// carried over unchanged.
func (p *Pipeline) ProcessSeries(s types.AngularSeries, opts Options) (types.AngularSeries, *types.ProcessingReport, error) {
	if err := s.Validate(); err != nil {
		return types.AngularSeries{}, nil, fmt.Errorf("pipeline: %w", err)
	}
	values, report := p.Process(s.Values, opts)
	angles := append(make([]float64, 0, len(s.Angles)), s.Angles...)
	return types.AngularSeries{Angles: angles, Values: values}, report, nil
}
