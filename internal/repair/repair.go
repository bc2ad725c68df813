package repair

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// SeamTolerance is the seam difference, as a fraction of the mean, above
// which the two boundary samples are replaced by their average.
const SeamTolerance = 0.1

// Stage identifies the repair step that produced an Action.
type Stage string

const (
	StageInterpolate Stage = "interpolate"
	StageFloor       Stage = "floor"
	StageSmooth      Stage = "smooth"
	StageSeam        Stage = "seam"
)

// Action records one change made by Run.
type Action struct {
	Stage   Stage  `json:"stage"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Outcome is the repaired series plus the actions that produced it.
type Outcome struct {
	Values  []float64
	Actions []Action
}

// Repairer applies a fixed Policy. It holds no mutable state and is safe for
// concurrent use.
type Repairer struct {
	policy   Policy
	smoother Smoother
	logger   *slog.Logger
}

// Option customizes a Repairer.
type Option func(*Repairer)

// WithLogger sets the logger used for repair events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repairer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSmoother overrides the backend chosen from Policy.Backend.
func WithSmoother(s Smoother) Option {
	return func(r *Repairer) { r.smoother = s }
}

// New returns a Repairer for p. Fields outside their range fall back to
// defaults; use Policy.Validate to reject them up front instead.
func New(p Policy, opts ...Option) *Repairer {
	r := &Repairer{policy: p.normalized(), logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.smoother == nil {
		r.smoother = selectSmoother(r.policy, r.logger)
	}
	return r
}

// Policy returns the effective policy.
func (r *Repairer) Policy() Policy { return r.policy }

// Smoother returns the active smoothing backend.
func (r *Repairer) Smoother() Smoother { return r.smoother }

// Repair returns the repaired copy of values.
func (r *Repairer) Repair(values []float64) []float64 {
	return r.Run(values).Values
}

// Run repairs a copy of values and reports every action taken. It never
// fails: all-NaN, all-negative and single-sample inputs have defined output.
func (r *Repairer) Run(values []float64) Outcome {
	out := Outcome{Values: clone(values)}
	if len(out.Values) == 0 {
		return out
	}

	r.interpolate(&out)
	r.floorNonPositive(&out)
	r.smooth(&out)
	r.fixSeam(&out)
	r.floorMin(&out)

	return out
}

func (r *Repairer) record(out *Outcome, a Action) {
	out.Actions = append(out.Actions, a)
	r.logger.Debug("repair: "+a.Message, "stage", string(a.Stage), "count", a.Count)
}

// interpolate replaces non-finite samples by linear interpolation between
// the nearest finite neighbours on the index axis. Samples before the first
// or after the last finite one take that sample's value.
func (r *Repairer) interpolate(out *Outcome) {
	vals := out.Values

	bad := make([]bool, len(vals))
	finite := make([]int, 0, len(vals))
	for i, v := range vals {
		if isFinite(v) {
			finite = append(finite, i)
		} else {
			bad[i] = true
		}
	}
	missing := len(vals) - len(finite)
	if missing == 0 {
		return
	}

	if len(finite) < 2 {
		for i := range vals {
			if bad[i] {
				vals[i] = r.policy.MinValue
			}
		}
		r.record(out, Action{
			Stage:   StageInterpolate,
			Count:   missing,
			Message: fmt.Sprintf("Too few finite samples (%d), set %d values to minimum value", len(finite), missing),
		})
		return
	}

	j := 0 // finite[j] is the first finite index >= i
	for i := range vals {
		for j < len(finite) && finite[j] < i {
			j++
		}
		if !bad[i] {
			continue
		}
		switch {
		case j == 0:
			vals[i] = vals[finite[0]]
		case j == len(finite):
			vals[i] = vals[finite[len(finite)-1]]
		default:
			lo, hi := finite[j-1], finite[j]
			t := float64(i-lo) / float64(hi-lo)
			vals[i] = (1-t)*vals[lo] + t*vals[hi]
		}
	}
	r.record(out, Action{
		Stage:   StageInterpolate,
		Count:   missing,
		Message: fmt.Sprintf("Interpolating %d NaN/infinite values", missing),
	})
}

// floorNonPositive raises negatives and exact zeros to MinValue in one pass.
func (r *Repairer) floorNonPositive(out *Outcome) {
	var negative, zero int
	for i, v := range out.Values {
		switch {
		case v < 0:
			negative++
		case v == 0:
			zero++
		default:
			continue
		}
		out.Values[i] = r.policy.MinValue
	}
	if negative > 0 {
		r.record(out, Action{
			Stage:   StageFloor,
			Count:   negative,
			Message: fmt.Sprintf("Setting %d negative values to minimum positive value", negative),
		})
	}
	if zero > 0 {
		r.record(out, Action{
			Stage:   StageFloor,
			Count:   zero,
			Message: fmt.Sprintf("Setting %d zero values to minimum positive value", zero),
		})
	}
}

func (r *Repairer) smooth(out *Outcome) {
	width := r.policy.SmoothingWidth
	if width <= 0 || len(out.Values) < 2 {
		return
	}
	out.Values = r.smoother.Smooth(out.Values, width)
	r.record(out, Action{
		Stage:   StageSmooth,
		Count:   len(out.Values),
		Message: fmt.Sprintf("Applied %s smoothing (width %g) with wrap-around", r.smoother.Name(), width),
	})
}

// fixSeam averages the two samples at the 0°/360° seam when they differ by
// more than SeamTolerance of the mean.
func (r *Repairer) fixSeam(out *Outcome) {
	vals := out.Values
	n := len(vals)
	if n < 2 {
		return
	}
	diff := math.Abs(vals[0] - vals[n-1])
	if !(diff > SeamTolerance*scaledMean(vals)) {
		return
	}
	avg := vals[0]/2 + vals[n-1]/2
	vals[0], vals[n-1] = avg, avg
	r.record(out, Action{
		Stage:   StageSeam,
		Count:   2,
		Message: "Fixing discontinuity at 0°/360° boundary",
	})
}

// floorMin clamps everything below MinValue, including values in
// (0, MinValue) that the non-positive floor leaves alone.
func (r *Repairer) floorMin(out *Outcome) {
	var n int
	for i, v := range out.Values {
		if !(v >= r.policy.MinValue) {
			out.Values[i] = r.policy.MinValue
			n++
		}
	}
	if n > 0 {
		r.record(out, Action{
			Stage:   StageFloor,
			Count:   n,
			Message: fmt.Sprintf("Raised %d values below minimum value", n),
		})
	}
}

// scaledMean is the mean of vals accumulated as v/n, which stays finite for
// any finite input.
func scaledMean(vals []float64) float64 {
	scaled := floats.ScaleTo(make([]float64, len(vals)), 1/float64(len(vals)), vals)
	return floats.Sum(scaled)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
