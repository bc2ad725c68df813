package pipeline

import "math"

// Scale conversion constants.
const (
	// LinearFloor is the smallest linear value converted to dB.
	LinearFloor = 1e-10

	// DefaultMinDB is the lowest dB value ToDB returns by default.
	DefaultMinDB = -50.0
)

// ToDB converts linear values to decibels: clamp to LinearFloor, take
// 10·log10, clamp to minDB. The transform is elementwise and monotonically
// non-decreasing. values is not modified.
func ToDB(values []float64, minDB float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Max(10*math.Log10(math.Max(v, LinearFloor)), minDB)
	}
	return out
}
