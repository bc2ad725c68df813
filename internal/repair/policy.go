package repair

import (
	"fmt"
	"math"
)

// Defaults for Policy fields.
const (
	DefaultSmoothingWidth = 1.0
	DefaultMinValue       = 1e-10
	DefaultTruncate       = 4.0
	DefaultBackend        = BackendGaussian
)

// Policy configures a Repairer.
type Policy struct {
	// SmoothingWidth is the kernel sigma (gaussian) or half-width (box).
	// Zero or negative disables smoothing.
	SmoothingWidth float64

	// MinValue is the floor for physical values. Must be > 0.
	MinValue float64

	// Backend names the preferred Smoother: "gaussian" or "box".
	Backend string

	// Truncate is the gaussian kernel radius in sigmas.
	Truncate float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		SmoothingWidth: DefaultSmoothingWidth,
		MinValue:       DefaultMinValue,
		Backend:        DefaultBackend,
		Truncate:       DefaultTruncate,
	}
}

// Validate reports the first field outside its allowed range.
func (p Policy) Validate() error {
	if !finiteNonNegative(p.SmoothingWidth) {
		return fmt.Errorf("smoothing_width must be a finite value >= 0, got %v", p.SmoothingWidth)
	}
	if !(p.MinValue > 0) || math.IsInf(p.MinValue, 0) {
		return fmt.Errorf("min_value must be a finite value > 0, got %v", p.MinValue)
	}
	switch p.Backend {
	case BackendGaussian, BackendBox, "":
	default:
		return fmt.Errorf("backend %q unknown: want gaussian|box", p.Backend)
	}
	if !finiteNonNegative(p.Truncate) {
		return fmt.Errorf("truncate must be a finite value >= 0, got %v", p.Truncate)
	}
	return nil
}

// normalized fills unset or out-of-range fields with defaults so that Run
// stays total for any Policy value.
func (p Policy) normalized() Policy {
	if !(p.MinValue > 0) || math.IsInf(p.MinValue, 0) {
		p.MinValue = DefaultMinValue
	}
	if !finiteNonNegative(p.SmoothingWidth) {
		p.SmoothingWidth = 0
	}
	if p.Backend == "" {
		p.Backend = DefaultBackend
	}
	if !(p.Truncate > 0) || math.IsInf(p.Truncate, 0) {
		p.Truncate = DefaultTruncate
	}
	return p
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
