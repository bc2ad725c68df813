package pipeline

import (
	"math"

	"github.com/obsidianstack/rcsclean/pkg/types"
)

// DemoSeries returns a 360-sample pattern 10·cos⁴θ + 2·cos²2θ over [0, 2π]
// with ten NaN samples at 50..59, ten values of -5 at 100..109 and a spike
// of 1000 at 200.
func DemoSeries() types.AngularSeries {
	const n = 360
	s := types.AngularSeries{Angles: make([]float64, n), Values: make([]float64, n)}
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / (n - 1)
		c, c2 := math.Cos(theta), math.Cos(2*theta)
		s.Angles[i] = theta
		s.Values[i] = 10*c*c*c*c + 2*c2*c2
	}
	for i := 50; i < 60; i++ {
		s.Values[i] = math.NaN()
	}
	for i := 100; i < 110; i++ {
		s.Values[i] = -5
	}
	s.Values[200] = 1000
	return s
}
