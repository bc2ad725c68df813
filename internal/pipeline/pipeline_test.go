package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

func scenario() ([]float64, []float64) {
	s := DemoSeries()
	return s.Angles, s.Values
}

type recordingObserver struct {
	reports []*types.ProcessingReport
	opts    []Options
}

func (o *recordingObserver) ObserveReport(r *types.ProcessingReport, opts Options) {
	o.reports = append(o.reports, r)
	o.opts = append(o.opts, opts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// --- Process ---

func TestProcess_ScenarioAllSteps(t *testing.T) {
	_, values := scenario()
	p := New(DefaultPolicy(), WithLogger(discardLogger()))

	out, report := p.Process(values, DefaultOptions())

	require.Len(t, out, 360)
	assert.Equal(t, 360, report.DataPoints)
	assert.True(t, report.OriginalIssues.Has(types.IssueNonFinite))
	assert.True(t, report.OriginalIssues.Has(types.IssueNegative))
	assert.Equal(t, 10, report.IssueCount(types.IssueNonFinite))

	require.GreaterOrEqual(t, len(report.FixesApplied), 3)
	assert.Equal(t, FixCleaning, report.FixesApplied[0])
	assert.Equal(t, FixSmoothing, report.FixesApplied[1])
	assert.Equal(t, FixDB, report.FixesApplied[len(report.FixesApplied)-1])
	assert.Contains(t, report.FixesApplied, "Interpolating 10 NaN/infinite values")
	assert.Contains(t, report.FixesApplied, "Setting 10 negative values to minimum positive value")

	for _, v := range out {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.GreaterOrEqual(t, v, DefaultMinDB)
	}
	assert.GreaterOrEqual(t, report.FinalRange.Min, DefaultMinDB)
	assert.LessOrEqual(t, report.FinalRange.Min, report.FinalRange.Max)
}

func TestProcess_LinearOutputKeepsInvariants(t *testing.T) {
	_, values := scenario()
	p := New(DefaultPolicy(), WithLogger(discardLogger()))

	out, report := p.Process(values, Options{Validate: true, Smooth: true})

	require.Len(t, out, 360)
	var sum float64
	for _, v := range out {
		assert.GreaterOrEqual(t, v, p.Policy().MinValue)
		sum += v
	}
	mean := sum / float64(len(out))
	assert.LessOrEqual(t, math.Abs(out[0]-out[359]), 0.1*mean+1e-9)
	assert.NotContains(t, report.FixesApplied, FixDB)
}

func TestProcess_WithoutValidation(t *testing.T) {
	_, values := scenario()
	_, report := New(DefaultPolicy(), WithLogger(discardLogger())).
		Process(values, Options{Smooth: true})

	assert.Empty(t, report.OriginalIssues)
	assert.NotNil(t, report.OriginalIssues)
}

func TestProcess_WithoutSmoothingUsesFineWidth(t *testing.T) {
	p := New(DefaultPolicy(), WithLogger(discardLogger()))
	in := []float64{1, 2, 3, 2, 1}

	out, report := p.Process(in, Options{})

	assert.NotContains(t, report.FixesApplied, FixSmoothing)
	assert.Equal(t, []string{FixCleaning}, report.FixesApplied[:1])
	assert.Len(t, out, len(in))
}

func TestProcess_FinalRange(t *testing.T) {
	policy := DefaultPolicy()
	policy.SmoothingWidth = 0
	p := New(policy, WithLogger(discardLogger()))

	out, report := p.Process([]float64{1, 10, 100, 10, 1}, Options{Smooth: true, ConvertScale: true})

	assert.InDeltaSlice(t, []float64{0, 10, 20, 10, 0}, out, 1e-9)
	assert.InDelta(t, 0, report.FinalRange.Min, 1e-9)
	assert.InDelta(t, 20, report.FinalRange.Max, 1e-9)
}

func TestProcess_Empty(t *testing.T) {
	out, report := New(DefaultPolicy(), WithLogger(discardLogger())).Process(nil, DefaultOptions())

	assert.Empty(t, out)
	assert.Equal(t, 0, report.DataPoints)
	assert.Equal(t, types.Range{}, report.FinalRange)
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	_, values := scenario()
	before := append([]float64(nil), values...)

	New(DefaultPolicy(), WithLogger(discardLogger())).Process(values, DefaultOptions())

	for i := range values {
		if math.IsNaN(before[i]) {
			assert.True(t, math.IsNaN(values[i]))
			continue
		}
		assert.Equal(t, before[i], values[i])
	}
}

func TestProcess_LogsValidationWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	_, values := scenario()

	New(DefaultPolicy(), WithLogger(logger)).Process(values, DefaultOptions())

	assert.Contains(t, buf.String(), "pipeline: validation found issues")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestProcess_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	p := New(DefaultPolicy(), WithLogger(discardLogger()), WithObserver(obs))

	_, report := p.Process([]float64{1, 2, 3}, DefaultOptions())

	require.Len(t, obs.reports, 1)
	assert.Same(t, report, obs.reports[0])
	assert.Equal(t, DefaultOptions(), obs.opts[0])
}

// --- ProcessSeries ---

func TestProcessSeries_CopiesAngles(t *testing.T) {
	theta, values := scenario()
	p := New(DefaultPolicy(), WithLogger(discardLogger()))

	out, report, err := p.ProcessSeries(types.AngularSeries{Angles: theta, Values: values}, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, theta, out.Angles)
	assert.Len(t, out.Values, 360)
	assert.Equal(t, 360, report.DataPoints)

	out.Angles[0] = 99
	assert.Equal(t, 0.0, theta[0])
}

func TestProcessSeries_RejectsMalformed(t *testing.T) {
	p := New(DefaultPolicy(), WithLogger(discardLogger()))

	tests := []struct {
		name   string
		series types.AngularSeries
		want   error
	}{
		{"empty", types.AngularSeries{}, types.ErrEmptySeries},
		{"length mismatch", types.AngularSeries{Angles: []float64{0}, Values: []float64{1, 2}}, types.ErrLengthMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, report, err := p.ProcessSeries(tc.series, DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Nil(t, report)
		})
	}
}

// --- Policy ---

func TestPipeline_BackendHonoursPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.Backend = "box"
	assert.Equal(t, "box", New(policy, WithLogger(discardLogger())).Backend())
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.FineSmoothingWidth = -0.1
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.FineSmoothingWidth = math.Inf(1)
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.SmoothingWidth = math.Inf(1)
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.Truncate = math.Inf(1)
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MinDB = math.Inf(-1)
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MinValue = 0
	assert.Error(t, p.Validate())
}

// --- DemoSeries ---

func TestDemoSeries(t *testing.T) {
	s := DemoSeries()
	require.NoError(t, s.Validate())
	require.Equal(t, 360, s.Len())

	nan, negative := 0, 0
	for _, v := range s.Values {
		switch {
		case math.IsNaN(v):
			nan++
		case v < 0:
			negative++
		}
	}
	assert.Equal(t, 10, nan)
	assert.Equal(t, 10, negative)
	assert.Equal(t, 1000.0, s.Values[200])
	assert.InDelta(t, 2*math.Pi, s.Angles[359], 1e-12)
	assert.InDelta(t, 12, s.Values[0], 1e-12)
}
