package repair

import "math"

const (
	// maxTruncate caps the kernel radius in sigmas. Weights further out are
	// below exp(-40) of the peak and vanish in float64 sums.
	maxTruncate = 9.0

	// maxFold is the number of periods a kernel may span before its folded
	// weights are taken as uniform.
	maxFold = 16
)

// Gaussian is a normalized gaussian kernel with sigma = width, truncated at
// Truncate sigmas. Indices wrap modulo N, repeatedly when the kernel is
// wider than the series.
type Gaussian struct {
	Truncate float64
}

func (Gaussian) Name() string { return BackendGaussian }

// Smooth implements Smoother.
func (g Gaussian) Smooth(values []float64, width float64) []float64 {
	n := len(values)
	if !(width > 0) || n < 2 {
		return clone(values)
	}

	kernel, center := g.Kernel(width, n)
	if len(kernel) == 1 {
		return clone(values)
	}
	return correlateWrapped(values, kernel, center)
}

// Kernel returns the normalized weights for sigma over a periodic series of
// n samples, and the index of the zero offset within them. The radius is
// int(truncate·sigma + 0.5). A kernel longer than the series is folded
// modulo n, so it never has more than n taps; one spanning more than
// maxFold periods is flat.
func (g Gaussian) Kernel(sigma float64, n int) ([]float64, int) {
	if !(sigma > 0) || n < 2 {
		return []float64{1}, 0
	}
	truncate := g.Truncate
	if !(truncate > 0) || math.IsInf(truncate, 0) {
		truncate = DefaultTruncate
	}
	truncate = math.Min(truncate, maxTruncate)

	rf := math.Floor(truncate*sigma + 0.5)
	switch {
	case rf < 1:
		return []float64{1}, 0
	case rf > maxFold*float64(n):
		kernel := make([]float64, n)
		for i := range kernel {
			kernel[i] = 1 / float64(n)
		}
		return kernel, n / 2
	}

	radius := int(rf)
	size, center := 2*radius+1, radius
	if size > n {
		size, center = n, n/2
	}

	kernel := make([]float64, size)
	var total float64
	for k := -radius; k <= radius; k++ {
		x := float64(k)
		w := math.Exp(-0.5 * x * x / (sigma * sigma))
		kernel[wrap(k+center, size)] += w
		total += w
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel, center
}
