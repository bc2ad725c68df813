package validate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// Thresholds used by the discontinuity and boundary checks.
const (
	// GradientPercentile is the quantile of |gradient| used as the baseline.
	GradientPercentile = 0.95

	// GradientFactor multiplies the baseline to obtain the spike threshold.
	GradientFactor = 3.0

	// DiscontinuityShare is the fraction of N that flagged gradients must exceed.
	DiscontinuityShare = 0.05

	// SeamTolerance is the allowed seam difference as a fraction of the mean.
	SeamTolerance = 0.1
)

// Check runs all four diagnostics on values and reports whether none fired.
// values is never modified.
func Check(values []float64) (bool, types.IssueReport) {
	var issues types.IssueReport

	if n := countNonFinite(values); n > 0 {
		issues = append(issues, types.Issue{
			Kind:    types.IssueNonFinite,
			Count:   n,
			Message: fmt.Sprintf("Found %d NaN/infinite values", n),
		})
	}

	if n := countNegative(values); n > 0 {
		issues = append(issues, types.Issue{
			Kind:    types.IssueNegative,
			Count:   n,
			Message: fmt.Sprintf("Found %d negative RCS values", n),
		})
	}

	if is, ok := checkDiscontinuity(values); ok {
		issues = append(issues, is)
	}

	if is, ok := checkBoundary(values); ok {
		issues = append(issues, is)
	}

	return len(issues) == 0, issues
}

func countNonFinite(values []float64) int {
	var n int
	for _, v := range values {
		if !isFinite(v) {
			n++
		}
	}
	return n
}

func countNegative(values []float64) int {
	var n int
	for _, v := range values {
		if v < 0 {
			n++
		}
	}
	return n
}

// checkDiscontinuity flags series where too many gradient magnitudes sit far
// above the 95th percentile. Non-finite gradients (next to NaN samples) are
// left out of both the percentile and the count.
func checkDiscontinuity(values []float64) (types.Issue, bool) {
	if len(values) < 2 {
		return types.Issue{}, false
	}

	grad := Gradient(values)
	mags := make([]float64, 0, len(grad))
	for _, g := range grad {
		if isFinite(g) {
			mags = append(mags, math.Abs(g))
		}
	}
	if len(mags) == 0 {
		return types.Issue{}, false
	}

	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	threshold := GradientFactor * stat.Quantile(GradientPercentile, stat.LinInterp, sorted, nil)

	var high int
	for _, m := range mags {
		if m > threshold {
			high++
		}
	}
	if float64(high) <= float64(len(values))*DiscontinuityShare {
		return types.Issue{}, false
	}
	return types.Issue{
		Kind:      types.IssueDiscontinuity,
		Count:     high,
		Magnitude: threshold,
		Message:   fmt.Sprintf("Found %d sharp discontinuities", high),
	}, true
}

// checkBoundary compares the two samples that meet at the 0°/360° seam.
// The check is skipped when no finite sample exists to take a mean from.
func checkBoundary(values []float64) (types.Issue, bool) {
	n := len(values)
	if n < 2 {
		return types.Issue{}, false
	}

	finite := make([]float64, 0, n)
	for _, v := range values {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return types.Issue{}, false
	}

	// Accumulate v/len so that large finite samples cannot overflow the mean.
	mean := floats.Sum(floats.ScaleTo(finite, 1/float64(len(finite)), finite))
	diff := math.Abs(values[0] - values[n-1])
	if !(diff > SeamTolerance*mean) {
		return types.Issue{}, false
	}
	return types.Issue{
		Kind:      types.IssueBoundaryMismatch,
		Magnitude: diff,
		Message:   "Discontinuity at 0°/360° boundary",
	}, true
}

// Gradient returns the discrete gradient of values over a unit-spaced index
// axis: one-sided differences at both ends, central differences inside.
// It returns nil for fewer than two samples.
func Gradient(values []float64) []float64 {
	n := len(values)
	if n < 2 {
		return nil
	}
	out := make([]float64, n)
	out[0] = values[1] - values[0]
	out[n-1] = values[n-1] - values[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (values[i+1] - values[i-1]) / 2
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
