package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/rcsclean/internal/config"
	"github.com/obsidianstack/rcsclean/internal/metrics"
	"github.com/obsidianstack/rcsclean/internal/pipeline"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errb.String(), err
}

func decodeOutput(t *testing.T, raw string) processOutput {
	t.Helper()
	var out processOutput
	require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	return out
}

const smallSeries = `{"series_id": "s1", "data": [
	{"theta": 0, "rcs": 4},
	{"theta": 1.57, "rcs": null},
	{"theta": 3.14, "rcs": -2},
	{"theta": 4.71, "rcs": 3},
	{"theta": 6.28, "rcs": 4}
]}`

// --- demo ---

func TestDemo_Text(t *testing.T) {
	out, _, err := run(t, "", "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "Original data valid: false")
	assert.Contains(t, out, "Found 10 NaN/infinite values")
	assert.Contains(t, out, "Found 10 negative RCS values")
	assert.Contains(t, out, pipeline.FixDB)
	assert.Contains(t, out, "Data points: 360")
}

func TestDemo_JSON(t *testing.T) {
	raw, _, err := run(t, "", "demo", "--json")
	require.NoError(t, err)

	out := decodeOutput(t, raw)
	assert.True(t, out.Success)
	require.Len(t, out.ProcessedData, 360)
	for _, p := range out.ProcessedData {
		assert.GreaterOrEqual(t, p.RCS, pipeline.DefaultMinDB)
	}
}

func TestDemo_ConfigPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  min_db: -20\nlog:\n  level: error\n"), 0o600))

	raw, _, err := run(t, "", "--config", path, "demo", "--json")
	require.NoError(t, err)
	out := decodeOutput(t, raw)
	assert.GreaterOrEqual(t, out.ProcessingInfo.FinalRange[0], -20.0)
}

// --- process ---

func TestProcess_Stdin(t *testing.T) {
	raw, _, err := run(t, smallSeries, "process")
	require.NoError(t, err)

	out := decodeOutput(t, raw)
	assert.Equal(t, "s1", out.SeriesID)
	require.Len(t, out.ProcessedData, 5)
	assert.Equal(t, 1.57, out.ProcessedData[1].Theta)
	assert.Contains(t, out.ProcessingInfo.OriginalIssues, "Found 1 NaN/infinite values")
	assert.Contains(t, out.ProcessingInfo.OriginalIssues, "Found 1 negative RCS values")
	assert.Contains(t, out.ProcessingInfo.FixesApplied, pipeline.FixDB)
}

func TestProcess_BareArrayFlags(t *testing.T) {
	in := `[{"theta": 0, "rcs": 1}, {"theta": 1, "rcs": 0}, {"theta": 2, "rcs": 2}]`
	raw, _, err := run(t, in, "process", "--no-db", "--no-smooth", "--no-validate")
	require.NoError(t, err)

	out := decodeOutput(t, raw)
	assert.Empty(t, out.ProcessingInfo.OriginalIssues)
	assert.NotContains(t, out.ProcessingInfo.FixesApplied, pipeline.FixDB)
	assert.NotContains(t, out.ProcessingInfo.FixesApplied, pipeline.FixSmoothing)
	for _, p := range out.ProcessedData {
		assert.GreaterOrEqual(t, p.RCS, 1e-10)
	}
}

func TestProcess_HugeSigma(t *testing.T) {
	in := `{"data": [{"theta": 0, "rcs": 1}, {"theta": 1, "rcs": 5}, {"theta": 2, "rcs": 2},
		{"theta": 3, "rcs": 8}, {"theta": 4, "rcs": 3}, {"theta": 5, "rcs": 9}],
		"options": {"smoothing_sigma": 1e19, "convert_to_db": false}}`
	raw, _, err := run(t, in, "process")
	require.NoError(t, err)

	out := decodeOutput(t, raw)
	require.Len(t, out.ProcessedData, 6)
	for _, p := range out.ProcessedData {
		assert.InDelta(t, 28.0/6, p.RCS, 1e-9)
	}
}

func TestProcess_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	outPath := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte(smallSeries), 0o600))

	stdout, _, err := run(t, "", "process", "--in", in, "--out", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Len(t, decodeOutput(t, string(raw)).ProcessedData, 5)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"empty series", `{"data": []}`, nil, "empty"},
		{"bad json", `{"data": [`, nil, "decode request"},
		{"missing file", "", []string{"--in", "/nonexistent/in.json"}, "read"},
		{"bad override", `{"data": [{"theta": 0, "rcs": 1}], "options": {"smoothing_sigma": -2}}`, nil, "smoothing_width"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.stdin, append([]string{"process"}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// --- plot-config ---

func TestPlotConfig(t *testing.T) {
	out, _, err := run(t, "", "plot-config")
	require.NoError(t, err)
	var layout map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &layout))
	assert.Equal(t, "RCS Pattern", layout["title"])

	out, _, err = run(t, "", "plot-config", "--title", "Radar", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Radar")
	assert.Contains(t, out, "period: 360")

	_, _, err = run(t, "", "plot-config", "--format", "xml")
	assert.Error(t, err)
}

// --- global flags ---

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, _, err := run(t, "", "--log-level", "chatty", "demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-level")
}

func TestRoot_BadConfig(t *testing.T) {
	_, _, err := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestRoot_LogsToStderr(t *testing.T) {
	_, stderr, err := run(t, smallSeries, "--log-level", "debug", "process")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"process: done"`)
}

// --- stats ---

func TestStats(t *testing.T) {
	c := metrics.NewCollector()
	p := pipeline.New(pipeline.DefaultPolicy(), pipeline.WithObserver(c),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	p.Process(pipeline.DemoSeries().Values, pipeline.DefaultOptions())

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	out, _, err := run(t, "", "stats", "--endpoint", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Series:         1 (1 with issues)")
	assert.Contains(t, out, "non_finite")

	out, _, err = run(t, "", "stats", "--endpoint", srv.URL, "--json")
	require.NoError(t, err)
	var s metrics.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1.0, s.Runs)
	assert.Equal(t, 10.0, s.IssueSamples["non_finite"])
}

func TestStats_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, _, err := run(t, "", "stats", "--endpoint", srv.URL)
	assert.Error(t, err)
}

// --- serve wiring ---

func testApp() *app {
	return &app{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestServer_Routes(t *testing.T) {
	s := testApp().newServer()
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/rcs/process", "application/json", strings.NewReader(smallSeries))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "rcsclean_runs_total")

	resp, err = http.Get(srv.URL + "/api/v1/reports")
	require.NoError(t, err)
	var reports []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reports))
	resp.Body.Close()
	assert.Len(t, reports, 1)
	assert.Equal(t, 1, s.store.Count())
}

func TestServer_Reload(t *testing.T) {
	a := testApp()
	s := a.newServer()

	updated := config.Default()
	updated.Policy.MinDB = -10
	s.reload(a, updated)
	assert.Equal(t, -10.0, s.api.Policy().MinDB)

	broken := config.Default()
	broken.Policy.MinValue = 0
	s.reload(a, broken)
	assert.Equal(t, -10.0, s.api.Policy().MinDB)
	assert.Equal(t, config.Default().Policy.MinValue, s.api.Policy().MinValue)
}
