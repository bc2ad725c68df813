//go:build rcsclean_nogauss

package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WithoutGaussianUsesBox(t *testing.T) {
	assert.False(t, Available(BackendGaussian))
	assert.Equal(t, BackendBox, New(DefaultPolicy()).Smoother().Name())
}
