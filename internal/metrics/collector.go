package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/rcsclean/internal/pipeline"
	"github.com/obsidianstack/rcsclean/pkg/types"
)

// Metric family names. Scrape looks families up by these names.
const (
	RunsTotal         = "rcsclean_runs_total"
	InvalidTotal      = "rcsclean_invalid_series_total"
	IssuesTotal       = "rcsclean_issues_total"
	IssueSamplesTotal = "rcsclean_issue_samples_total"
	SeriesPoints      = "rcsclean_series_points"
	ProcessDuration   = "rcsclean_process_duration_seconds"
	LastFinalRange    = "rcsclean_last_final_range"
)

// Collector records pipeline statistics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	invalid      prometheus.Counter
	issues       *prometheus.CounterVec
	issueSamples *prometheus.CounterVec
	points       prometheus.Histogram
	duration     prometheus.Histogram
	finalRange   *prometheus.GaugeVec
}

// NewCollector creates a Collector with a fresh registry. Go runtime and
// process collectors are registered alongside the rcsclean families.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	c := &Collector{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: RunsTotal,
			Help: "Processed series, by smoothing and dB conversion options",
		}, []string{"smooth", "db"}),
		invalid: f.NewCounter(prometheus.CounterOpts{
			Name: InvalidTotal,
			Help: "Processed series that failed validation",
		}),
		issues: f.NewCounterVec(prometheus.CounterOpts{
			Name: IssuesTotal,
			Help: "Series in which each issue kind was detected",
		}, []string{"kind"}),
		issueSamples: f.NewCounterVec(prometheus.CounterOpts{
			Name: IssueSamplesTotal,
			Help: "Samples affected by each issue kind",
		}, []string{"kind"}),
		points: f.NewHistogram(prometheus.HistogramOpts{
			Name:    SeriesPoints,
			Help:    "Number of samples per processed series",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10),
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    ProcessDuration,
			Help:    "Time spent processing one series",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		finalRange: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: LastFinalRange,
			Help: "Output range of the most recent series",
		}, []string{"bound"}),
	}
	for _, kind := range types.IssueKinds {
		c.issues.WithLabelValues(string(kind))
		c.issueSamples.WithLabelValues(string(kind))
	}
	return c
}

// ObserveReport implements pipeline.Observer.
func (c *Collector) ObserveReport(report *types.ProcessingReport, opts pipeline.Options) {
	c.runs.WithLabelValues(strconv.FormatBool(opts.Smooth), strconv.FormatBool(opts.ConvertScale)).Inc()
	if len(report.OriginalIssues) > 0 {
		c.invalid.Inc()
	}
	for _, is := range report.OriginalIssues {
		c.issues.WithLabelValues(string(is.Kind)).Inc()
		c.issueSamples.WithLabelValues(string(is.Kind)).Add(float64(is.Count))
	}
	c.points.Observe(float64(report.DataPoints))
	if report.DataPoints > 0 {
		c.finalRange.WithLabelValues("min").Set(report.FinalRange.Min)
		c.finalRange.WithLabelValues("max").Set(report.FinalRange.Max)
	}
}

// ObserveDuration records the wall time of one processing call.
func (c *Collector) ObserveDuration(d time.Duration) {
	c.duration.Observe(d.Seconds())
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
