package alerts

import (
	"strconv"
	"strings"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// evalCondition evaluates a rule condition against a report.
//
// Supported expressions (field operator value):
//
//	non_finite > 20
//	negative >= 1
//	discontinuity > 0
//	boundary_mismatch > 0
//	issue_count >= 2
//	final_min < -45
//	final_max > 30
//	data_points < 90
//	issue == discontinuity
//
// Issue-kind fields hold the affected sample count (the seam difference for
// boundary_mismatch), 0 when the kind was not found. Returns (false, 0) for
// expressions that cannot be parsed.
func evalCondition(cond string, r *types.ProcessingReport) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "issue" {
		if op != "==" {
			return false, 0
		}
		is, ok := r.OriginalIssues.Find(types.IssueKind(rhs))
		if !ok {
			return false, 0
		}
		return true, issueValue(is)
	}

	v, ok := numericField(field, r)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// validCondition reports whether cond parses into a known field and operator.
func validCondition(cond string) bool {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false
	}
	if parts[0] == "issue" {
		return parts[1] == "==" && types.IssueKind(parts[2]).Valid()
	}
	if _, ok := numericField(parts[0], &types.ProcessingReport{}); !ok {
		return false
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==":
	default:
		return false
	}
	_, err := strconv.ParseFloat(parts[2], 64)
	return err == nil
}

// numericField maps a field name to its value in the report.
func numericField(field string, r *types.ProcessingReport) (float64, bool) {
	switch field {
	case "issue_count":
		return float64(len(r.OriginalIssues)), true
	case "final_min":
		return r.FinalRange.Min, true
	case "final_max":
		return r.FinalRange.Max, true
	case "data_points":
		return float64(r.DataPoints), true
	}
	if kind := types.IssueKind(field); kind.Valid() {
		if is, ok := r.OriginalIssues.Find(kind); ok {
			return issueValue(is), true
		}
		return 0, true
	}
	return 0, false
}

func issueValue(is types.Issue) float64 {
	if is.Kind == types.IssueBoundaryMismatch {
		return is.Magnitude
	}
	return float64(is.Count)
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
