package api

import (
	"fmt"
	"sort"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// DiagnosticHint is one human-readable insight about a processed series.
type DiagnosticHint struct {
	// Key is a stable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is the share of affected samples in percent, when it applies.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a report, critical first.
func computeDiagnostics(r *types.ProcessingReport) []DiagnosticHint {
	if len(r.OriginalIssues) == 0 {
		return []DiagnosticHint{{
			Key:    "clean",
			Level:  "ok",
			Title:  "Clean input",
			Detail: "No missing, negative or discontinuous samples were found. Only light smoothing was applied.",
		}}
	}

	n := float64(r.DataPoints)
	pct := func(count int) *float64 {
		v := 0.0
		if n > 0 {
			v = float64(count) / n * 100
		}
		return &v
	}

	var hints []DiagnosticHint
	for _, is := range r.OriginalIssues {
		switch is.Kind {
		case types.IssueNonFinite:
			share := pct(is.Count)
			h := DiagnosticHint{Key: "missing_samples", Value: share}
			switch {
			case is.Count >= r.DataPoints-1:
				h.Level, h.Title = "critical", "No usable samples"
				h.Detail = "At most one sample is finite, so nothing can be interpolated. " +
					"The series was filled with the minimum value and will plot as a flat circle."
			case *share >= 25:
				h.Level, h.Title = "critical", fmt.Sprintf("%.0f%% samples missing", *share)
				h.Detail = fmt.Sprintf("%d samples were NaN or infinite and were linearly interpolated. "+
					"Long gaps become straight segments, so lobes inside them are not real.", is.Count)
			case *share >= 5:
				h.Level, h.Title = "warning", fmt.Sprintf("%.0f%% samples missing", *share)
				h.Detail = fmt.Sprintf("%d samples were NaN or infinite and were interpolated from their neighbours.", is.Count)
			default:
				h.Level, h.Title = "info", "Few samples missing"
				h.Detail = fmt.Sprintf("%d isolated samples were NaN or infinite and were interpolated.", is.Count)
			}
			hints = append(hints, h)

		case types.IssueNegative:
			share := pct(is.Count)
			level := "info"
			if *share >= 5 {
				level = "warning"
			}
			hints = append(hints, DiagnosticHint{
				Key:   "negative_values",
				Level: level,
				Title: "Negative RCS values",
				Detail: fmt.Sprintf("%d samples were below zero, which is not physical for a cross-section. "+
					"They were raised to the minimum value and show up at the dB floor.", is.Count),
				Value: share,
			})

		case types.IssueDiscontinuity:
			hints = append(hints, DiagnosticHint{
				Key:   "discontinuities",
				Level: "warning",
				Title: "Sharp jumps",
				Detail: fmt.Sprintf("%d gradients exceeded %.3g, three times the 95th percentile. "+
					"Raise smoothing_sigma if the jumps are measurement noise.", is.Count, is.Magnitude),
				Value: pct(is.Count),
			})

		case types.IssueBoundaryMismatch:
			hints = append(hints, DiagnosticHint{
				Key:   "seam_mismatch",
				Level: "info",
				Title: "Open seam at 0°/360°",
				Detail: fmt.Sprintf("The first and last samples differed by %.3g. "+
					"The seam was closed so the polar trace does not draw a radial line.", is.Magnitude),
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}
