package repair

import (
	"log/slog"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"gonum.org/v1/gonum/floats"
)

// Backend names accepted by Policy.Backend.
const (
	BackendGaussian = "gaussian"
	BackendBox      = "box"
)

// Smoother is a periodic, width-parameterized smoothing kernel. Index N is
// treated as index 0 and index -1 as index N-1. Implementations must return
// a new slice of exactly len(values) and must return an unchanged copy when
// width <= 0.
type Smoother interface {
	Name() string
	Smooth(values []float64, width float64) []float64
}

// backends holds the constructors compiled into this binary.
var backends = map[string]func(truncate float64) Smoother{
	BackendBox: func(float64) Smoother { return Box{} },
}

// Available reports whether the named backend is compiled in.
func Available(name string) bool {
	_, ok := backends[name]
	return ok
}

// SmootherFor returns the named backend. When it is not compiled in, the box
// filter is returned together with false.
func SmootherFor(name string, truncate float64) (Smoother, bool) {
	if ctor, ok := backends[name]; ok {
		return ctor(truncate), true
	}
	return Box{}, false
}

// selectSmoother resolves p.Backend, logging the substitution when the
// preferred backend is missing.
func selectSmoother(p Policy, logger *slog.Logger) Smoother {
	s, ok := SmootherFor(p.Backend, p.Truncate)
	if !ok {
		logger.Info("repair: smoothing backend unavailable, using fallback",
			"backend", p.Backend, "fallback", s.Name())
	}
	return s
}

// Box is a moving-average filter of width max(3, round(2·width)). The window
// is wrap-padded on both ends before a valid-mode convolution, so the seam
// is smoothed like any other neighbourhood.
type Box struct{}

func (Box) Name() string { return BackendBox }

// Smooth implements Smoother.
func (Box) Smooth(values []float64, width float64) []float64 {
	n := len(values)
	if !(width > 0) || n < 2 {
		return clone(values)
	}

	w := BoxWindow(width, n)
	kernel := make([]float64, w)
	for i := range kernel {
		kernel[i] = 1 / float64(w)
	}
	// Even windows reach one sample further back than forward.
	return correlateWrapped(values, kernel, w/2)
}

// BoxWindow returns the moving-average width used for a smoothing width
// over n samples. Windows that would cover the whole series collapse to 3.
func BoxWindow(width float64, n int) int {
	w := math.Max(3, math.Round(2*width))
	if !(w < float64(n)) {
		return 3
	}
	return int(w)
}

// correlateWrapped returns out[i] = Σ kernel[j]·values[i+j-center] with
// indices taken modulo len(values). The series is wrap-padded and run
// through a valid-mode convolution with the reversed kernel.
//
// kernel must be non-negative, sum to one and be no longer than values.
// Each output is then a weighted mean of inputs and is clamped to the
// input range, which absorbs rounding in the convolution.
func correlateWrapped(values, kernel []float64, center int) []float64 {
	n, m := len(values), len(kernel)
	lo, hi := floats.Min(values), floats.Max(values)

	// Bring large magnitudes below 1 by a power of two so that partial sums
	// cannot overflow.
	var shift int
	if peak := math.Max(math.Abs(lo), math.Abs(hi)); peak > 1 && !math.IsInf(peak, 0) {
		_, shift = math.Frexp(peak)
	}

	padded := make([]float64, n+m-1)
	for i := range padded {
		padded[i] = math.Ldexp(values[wrap(i-center, n)], -shift)
	}
	reversed := make([]float64, m)
	for j, k := range kernel {
		reversed[m-1-j] = k
	}

	out, err := conv.ConvolveMode(padded, reversed, conv.ModeValid)
	if err != nil || len(out) != n {
		return clone(values)
	}
	for i, v := range out {
		out[i] = math.Min(hi, math.Max(lo, math.Ldexp(v, shift)))
	}
	return out
}

// wrap maps any integer index onto [0, n).
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clone(values []float64) []float64 {
	return append(make([]float64, 0, len(values)), values...)
}
