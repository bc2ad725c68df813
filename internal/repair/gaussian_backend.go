//go:build !rcsclean_nogauss

package repair

func init() {
	backends[BackendGaussian] = func(truncate float64) Smoother {
		return Gaussian{Truncate: truncate}
	}
}
