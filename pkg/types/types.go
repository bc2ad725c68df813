package types

import (
	"errors"
	"fmt"
)

// Boundary errors returned when a caller hands over a malformed series.
// The core repair path never returns these; they guard the API and CLI.
var (
	ErrEmptySeries    = errors.New("series is empty")
	ErrLengthMismatch = errors.New("angle and value counts differ")
)

// AngularSeries is an ordered set of (angle, value) samples. Angles increase
// monotonically and wrap: sample N-1 is adjacent to sample 0 across the seam.
// Only Values is ever rewritten by repair.
type AngularSeries struct {
	Angles []float64
	Values []float64
}

// Len returns the number of samples.
func (s AngularSeries) Len() int { return len(s.Values) }

// Validate checks the structural shape of the series.
func (s AngularSeries) Validate() error {
	if len(s.Values) == 0 {
		return ErrEmptySeries
	}
	if len(s.Angles) != len(s.Values) {
		return fmt.Errorf("%w: %d angles, %d values", ErrLengthMismatch, len(s.Angles), len(s.Values))
	}
	return nil
}

// IssueKind tags a validation finding.
type IssueKind string

const (
	IssueNonFinite        IssueKind = "non_finite"
	IssueNegative         IssueKind = "negative"
	IssueDiscontinuity    IssueKind = "discontinuity"
	IssueBoundaryMismatch IssueKind = "boundary_mismatch"
)

// IssueKinds lists every kind in reporting order.
var IssueKinds = []IssueKind{IssueNonFinite, IssueNegative, IssueDiscontinuity, IssueBoundaryMismatch}

// Valid reports whether k is one of IssueKinds.
func (k IssueKind) Valid() bool {
	for _, known := range IssueKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Issue is one human-readable finding.
type Issue struct {
	Kind IssueKind `json:"kind"`

	// Count is the number of offending samples (or gradients). Zero for
	// boundary_mismatch, which reports Magnitude instead.
	Count int `json:"count"`

	// Magnitude is the seam difference for boundary_mismatch and the
	// gradient threshold for discontinuity.
	Magnitude float64 `json:"magnitude,omitempty"`

	Message string `json:"message"`
}

// IssueReport is the set of findings for one series.
type IssueReport []Issue

// Has reports whether a finding of the given kind is present.
func (r IssueReport) Has(kind IssueKind) bool {
	_, ok := r.Find(kind)
	return ok
}

// Find returns the first finding of the given kind.
func (r IssueReport) Find(kind IssueKind) (Issue, bool) {
	for _, is := range r {
		if is.Kind == kind {
			return is, true
		}
	}
	return Issue{}, false
}

// Messages returns the human-readable message of every finding, in order.
func (r IssueReport) Messages() []string {
	out := make([]string, 0, len(r))
	for _, is := range r {
		out = append(out, is.Message)
	}
	return out
}

// Range is an inclusive (min, max) value range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProcessingReport records one pipeline run. It is created by the pipeline
// and owned by the caller afterwards.
type ProcessingReport struct {
	// OriginalIssues holds the findings on the input, before any repair.
	// Empty when validation was not requested.
	OriginalIssues IssueReport `json:"original_issues"`

	// FixesApplied lists the repair actions in the order they happened.
	FixesApplied []string `json:"fixes_applied"`

	// FinalRange is the (min, max) of the output series.
	FinalRange Range `json:"final_range"`

	DataPoints int `json:"data_points"`
}

// IssueCount returns the count recorded for kind, or 0 when absent.
func (r *ProcessingReport) IssueCount(kind IssueKind) int {
	if r == nil {
		return 0
	}
	is, ok := r.OriginalIssues.Find(kind)
	if !ok {
		return 0
	}
	return is.Count
}
