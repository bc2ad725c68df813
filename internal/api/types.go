package api

import (
	"time"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// Sample is one (angle, value) pair. RCS is nil for a missing sample.
type Sample struct {
	Theta float64  `json:"theta"`
	RCS   *float64 `json:"rcs"`
}

// ProcessOptions mirrors pipeline.Options; unset flags default to true.
type ProcessOptions struct {
	SmoothData     *bool    `json:"smooth_data"`
	ConvertToDB    *bool    `json:"convert_to_db"`
	Validate       *bool    `json:"validate"`
	MinDBValue     *float64 `json:"min_db_value" validate:"omitempty,gte=-300,lte=0"`
	SmoothingSigma *float64 `json:"smoothing_sigma" validate:"omitempty,gte=0,lte=100"`
}

// ProcessRequest is the body of POST /api/v1/rcs/process.
type ProcessRequest struct {
	SeriesID string         `json:"series_id" validate:"omitempty,max=128,printascii"`
	Data     []Sample       `json:"data" validate:"required,min=1,max=1000000,dive"`
	Options  ProcessOptions `json:"options"`
}

// Point is one cleaned sample.
type Point struct {
	Theta float64 `json:"theta"`
	RCS   float64 `json:"rcs"`
}

// ProcessingInfo summarizes a run.
type ProcessingInfo struct {
	OriginalIssues []string          `json:"original_issues"`
	Issues         types.IssueReport `json:"issues"`
	FixesApplied   []string          `json:"fixes_applied"`
	FinalRange     [2]float64        `json:"final_range"`
	DataPoints     int               `json:"data_points"`
}

// ProcessResponse is returned by POST /api/v1/rcs/process and
// GET /api/v1/reports/{id}.
type ProcessResponse struct {
	ID             string           `json:"id"`
	SeriesID       string           `json:"series_id,omitempty"`
	ProcessedData  []Point          `json:"processed_data"`
	ProcessingInfo ProcessingInfo   `json:"processing_info"`
	Diagnostics    []DiagnosticHint `json:"diagnostics"`
	CreatedAt      string           `json:"created_at"`
	Success        bool             `json:"success"`
}

// ReportSummary is one entry of GET /api/v1/reports.
type ReportSummary struct {
	ID         string     `json:"id"`
	SeriesID   string     `json:"series_id,omitempty"`
	Issues     []string   `json:"issues"`
	FixCount   int        `json:"fix_count"`
	FinalRange [2]float64 `json:"final_range"`
	DataPoints int        `json:"data_points"`
	CreatedAt  string     `json:"created_at"`
}

// ReportsSnapshot is the list of recent results pushed to stream clients.
type ReportsSnapshot struct {
	Reports     []ReportSummary `json:"reports"`
	Total       int             `json:"total"`
	GeneratedAt string          `json:"generated_at"`
}

// PolicyResponse is the active processing policy.
type PolicyResponse struct {
	SmoothingWidth     float64 `json:"smoothing_width"`
	FineSmoothingWidth float64 `json:"fine_smoothing_width"`
	MinValue           float64 `json:"min_value"`
	MinDB              float64 `json:"min_db"`
	Backend            string  `json:"backend"`
	ActiveBackend      string  `json:"active_backend"`
	Truncate           float64 `json:"truncate"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string         `json:"status"`
	ReportCount int            `json:"report_count"`
	AlertCount  int            `json:"alert_count"`
	Policy      PolicyResponse `json:"policy"`
	GeneratedAt string         `json:"generated_at"`
}

// EndpointInfo is the payload for GET /api/v1/rcs/process.
type EndpointInfo struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
