package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/obsidianstack/rcsclean/internal/alerts"
	"github.com/obsidianstack/rcsclean/internal/config"
	"github.com/obsidianstack/rcsclean/internal/metrics"
	"github.com/obsidianstack/rcsclean/internal/pipeline"
	"github.com/obsidianstack/rcsclean/internal/plot"
	"github.com/obsidianstack/rcsclean/internal/store"
	"github.com/obsidianstack/rcsclean/pkg/types"
)

const maxBodyBytes = 32 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store    *store.Store
	alerts   *alerts.Engine
	metrics  *metrics.Collector
	logger   *slog.Logger
	auth     config.AuthConfig
	validate *validator.Validate
	pipe     atomic.Pointer[pipeline.Pipeline]
	mux      *http.ServeMux
}

// Option customizes a Handler.
type Option func(*Handler)

// WithAlerts evaluates every processed report against e.
func WithAlerts(e *alerts.Engine) Option { return func(h *Handler) { h.alerts = e } }

// WithMetrics records reports and processing time in c.
func WithMetrics(c *metrics.Collector) Option { return func(h *Handler) { h.metrics = c } }

// WithAuth protects the process endpoint according to a.
func WithAuth(a config.AuthConfig) Option { return func(h *Handler) { h.auth = a } }

// WithLogger sets the logger for the handler and the pipelines it builds.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler that processes series with policy and keeps the
// results in st.
func New(policy pipeline.Policy, st *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		logger:   slog.Default(),
		validate: newValidator(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pipe.Store(h.newPipeline(policy))

	process := RequireAPIKey(h.auth.Mode, h.auth.EffectiveHeader(), h.auth.Key(), http.HandlerFunc(h.process))
	h.mux.Handle("/api/v1/rcs/process", process)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/reports", h.listReports)
	h.mux.HandleFunc("/api/v1/reports/", h.getReport)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/plot-config", h.plotConfig)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetPolicy replaces the processing policy for subsequent requests.
func (h *Handler) SetPolicy(p pipeline.Policy) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("api: policy: %w", err)
	}
	h.pipe.Store(h.newPipeline(p))
	h.logger.Info("api: policy updated",
		"smoothing_width", p.SmoothingWidth,
		"backend", p.Backend,
		"min_db", p.MinDB,
	)
	return nil
}

// Policy returns the active processing policy.
func (h *Handler) Policy() pipeline.Policy { return h.pipe.Load().Policy() }

func (h *Handler) newPipeline(p pipeline.Policy) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithLogger(h.logger)}
	if h.metrics != nil {
		opts = append(opts, pipeline.WithObserver(h.metrics))
	}
	return pipeline.New(p, opts...)
}

// --- route handlers ---

// process handles POST /api/v1/rcs/process.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		jsonResp(w, http.StatusOK, EndpointInfo{
			Message: "RCS data processing endpoint is active",
			Endpoints: map[string]string{
				"POST": "/api/v1/rcs/process - validate, repair and convert an angular RCS series",
			},
		})
		return
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ProcessRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		jsonErr(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	p := h.pipelineFor(req.Options)
	start := time.Now()
	out, report, err := p.ProcessSeries(req.Series(), req.Options.Pipeline())
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveDuration(time.Since(start))
	}

	res := h.store.Add(req.SeriesID, out, report)
	if h.alerts != nil {
		h.alerts.Evaluate(req.SeriesID, report)
	}

	h.logger.Info("api: processed series",
		"id", res.ID,
		"series", req.SeriesID,
		"points", report.DataPoints,
		"issues", len(report.OriginalIssues),
		"duration", time.Since(start),
	)
	jsonResp(w, http.StatusOK, toProcessResponse(res))
}

// health handles GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	p := h.pipe.Load()
	resp := HealthResponse{
		Status:      "ok",
		ReportCount: len(h.store.List()),
		Policy:      toPolicyResponse(p),
		GeneratedAt: formatTime(time.Now()),
	}
	if h.alerts != nil {
		for _, a := range h.alerts.Active() {
			if a.State == alerts.StateFiring {
				resp.AlertCount++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listReports handles GET /api/v1/reports[?series=<id>].
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jsonResp(w, http.StatusOK, BuildSeriesReports(h.store, r.URL.Query().Get("series"), 0).Reports)
}

// getReport handles GET /api/v1/reports/{id}.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	if id == "" {
		h.listReports(w, r)
		return
	}
	res, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "report not found")
		return
	}
	jsonResp(w, http.StatusOK, toProcessResponse(res))
}

// listAlerts handles GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// plotConfig handles GET /api/v1/plot-config.
func (h *Handler) plotConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, plot.NewLayout(r.URL.Query().Get("title")))
}

// --- helpers ---

func (h *Handler) pipelineFor(o ProcessOptions) *pipeline.Pipeline {
	base := h.pipe.Load()
	if o.SmoothingSigma == nil && o.MinDBValue == nil {
		return base
	}
	p := base.Policy()
	if o.SmoothingSigma != nil {
		p.SmoothingWidth = *o.SmoothingSigma
	}
	if o.MinDBValue != nil {
		p.MinDB = *o.MinDBValue
	}
	return h.newPipeline(p)
}

// Series converts the samples into an AngularSeries; null values become NaN.
func (r ProcessRequest) Series() types.AngularSeries {
	s := types.AngularSeries{
		Angles: make([]float64, len(r.Data)),
		Values: make([]float64, len(r.Data)),
	}
	for i, d := range r.Data {
		s.Angles[i] = d.Theta
		s.Values[i] = math.NaN()
		if d.RCS != nil {
			s.Values[i] = *d.RCS
		}
	}
	return s
}

// Pipeline converts the flags into pipeline.Options.
func (o ProcessOptions) Pipeline() pipeline.Options {
	return pipeline.Options{
		Validate:     boolOr(o.Validate, true),
		Smooth:       boolOr(o.SmoothData, true),
		ConvertScale: boolOr(o.ConvertToDB, true),
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s", field, fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Success: false, Error: msg})
}

func toProcessResponse(res *store.Result) ProcessResponse {
	rep := res.Report
	return ProcessResponse{
		ID:             res.ID,
		SeriesID:       res.SeriesID,
		ProcessedData:  Points(res.Series),
		ProcessingInfo: NewProcessingInfo(rep),
		Diagnostics:    computeDiagnostics(rep),
		CreatedAt:      formatTime(res.Created),
		Success:        true,
	}
}

// Points pairs the angles and values of s.
func Points(s types.AngularSeries) []Point {
	points := make([]Point, s.Len())
	for i := range points {
		points[i] = Point{Theta: s.Angles[i], RCS: s.Values[i]}
	}
	return points
}

// NewProcessingInfo flattens a report into its wire form.
func NewProcessingInfo(rep *types.ProcessingReport) ProcessingInfo {
	return ProcessingInfo{
		OriginalIssues: rep.OriginalIssues.Messages(),
		Issues:         rep.OriginalIssues,
		FixesApplied:   rep.FixesApplied,
		FinalRange:     [2]float64{rep.FinalRange.Min, rep.FinalRange.Max},
		DataPoints:     rep.DataPoints,
	}
}

func toReportSummary(res *store.Result) ReportSummary {
	rep := res.Report
	return ReportSummary{
		ID:         res.ID,
		SeriesID:   res.SeriesID,
		Issues:     rep.OriginalIssues.Messages(),
		FixCount:   len(rep.FixesApplied),
		FinalRange: [2]float64{rep.FinalRange.Min, rep.FinalRange.Max},
		DataPoints: rep.DataPoints,
		CreatedAt:  formatTime(res.Created),
	}
}

// BuildReports summarizes the newest live results in st, at most limit of
// them when limit > 0.
func BuildReports(st *store.Store, limit int) ReportsSnapshot {
	return BuildSeriesReports(st, "", limit)
}

// BuildSeriesReports is BuildReports restricted to one series. An empty
// seriesID matches every result.
func BuildSeriesReports(st *store.Store, seriesID string, limit int) ReportsSnapshot {
	results := st.List()
	if seriesID != "" {
		matched := results[:0]
		for _, res := range results {
			if res.SeriesID == seriesID {
				matched = append(matched, res)
			}
		}
		results = matched
	}
	total := len(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]ReportSummary, 0, len(results))
	for _, res := range results {
		out = append(out, toReportSummary(res))
	}
	return ReportsSnapshot{Reports: out, Total: total, GeneratedAt: formatTime(time.Now())}
}

func toPolicyResponse(p *pipeline.Pipeline) PolicyResponse {
	pol := p.Policy()
	return PolicyResponse{
		SmoothingWidth:     pol.SmoothingWidth,
		FineSmoothingWidth: pol.FineSmoothingWidth,
		MinValue:           pol.MinValue,
		MinDB:              pol.MinDB,
		Backend:            pol.Backend,
		ActiveBackend:      p.Backend(),
		Truncate:           pol.Truncate,
	}
}
