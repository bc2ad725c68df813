package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultScrapeTimeout = 10 * time.Second

// Summary is the condensed view of one scrape of a running server.
type Summary struct {
	Endpoint  string    `json:"endpoint"`
	ScrapedAt time.Time `json:"scraped_at"`

	Runs    float64 `json:"runs"`
	Invalid float64 `json:"invalid"`

	// Issues and IssueSamples are keyed by issue kind.
	Issues       map[string]float64 `json:"issues"`
	IssueSamples map[string]float64 `json:"issue_samples"`

	// MeanPoints is the average series length, 0 before the first run.
	MeanPoints float64 `json:"mean_points"`

	// MeanDuration is the average processing time in seconds.
	MeanDuration float64 `json:"mean_duration_seconds"`
}

// NewClient returns the HTTP client used by Scrape.
func NewClient() *http.Client {
	return &http.Client{Timeout: defaultScrapeTimeout}
}

// Scrape fetches url and summarizes the rcsclean metric families.
func Scrape(ctx context.Context, client *http.Client, url string) (*Summary, error) {
	mfs, err := fetchMetrics(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("metrics: scrape %s: %w", url, err)
	}
	return summarize(url, mfs), nil
}

func summarize(endpoint string, mfs map[string]*dto.MetricFamily) *Summary {
	s := &Summary{
		Endpoint:     endpoint,
		ScrapedAt:    time.Now().UTC(),
		Runs:         sumFamily(mfs[RunsTotal]),
		Invalid:      sumFamily(mfs[InvalidTotal]),
		Issues:       sumByLabel(mfs[IssuesTotal], "kind"),
		IssueSamples: sumByLabel(mfs[IssueSamplesTotal], "kind"),
	}
	s.MeanPoints = histogramMean(mfs[SeriesPoints])
	s.MeanDuration = histogramMean(mfs[ProcessDuration])
	return s
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a text exposition. A partial parse is still a result.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge or untyped values in mf.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += value(m)
	}
	return total
}

// sumByLabel groups the values of mf by the value of label.
func sumByLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	out := make(map[string]float64)
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += value(m)
			}
		}
	}
	return out
}

func histogramMean(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var sum float64
	var count uint64
	for _, m := range mf.GetMetric() {
		if h := m.GetHistogram(); h != nil {
			sum += h.GetSampleSum()
			count += h.GetSampleCount()
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
