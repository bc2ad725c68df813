package pipeline

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// --- ToDB() table-driven tests ---

func TestToDB(t *testing.T) {
	tests := []struct {
		name  string
		in    float64
		minDB float64
		want  float64
	}{
		{"unity", 1, DefaultMinDB, 0},
		{"ten", 10, DefaultMinDB, 10},
		{"hundred", 100, DefaultMinDB, 20},
		{"small clamps to min_db", 1e-7, DefaultMinDB, -50},
		{"zero", 0, DefaultMinDB, -50},
		{"negative", -1, DefaultMinDB, -50},
		{"zero with low floor", 0, -200, -100},
		{"below linear floor", 1e-20, -200, -100},
		{"largest finite", math.MaxFloat64, DefaultMinDB, 10 * math.Log10(math.MaxFloat64)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDB([]float64{tc.in}, tc.minDB)
			if !almostEqual(got[0], tc.want, 1e-9) {
				t.Errorf("ToDB(%v, %v) = %.12f, want %.12f", tc.in, tc.minDB, got[0], tc.want)
			}
		})
	}
}

// --- Properties ---

func TestToDB_BoundedAndMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := make([]float64, 500)
	for i := range in {
		in[i] = rng.ExpFloat64() * float64(rng.Intn(1000)+1) * 1e-6
	}
	sort.Float64s(in)

	got := ToDB(in, DefaultMinDB)
	for i, v := range got {
		if v < DefaultMinDB {
			t.Errorf("out[%d] = %v, below min_db %v", i, v, DefaultMinDB)
		}
		if i > 0 && v < got[i-1] {
			t.Errorf("not monotonic at %d: %v < %v", i, v, got[i-1])
		}
	}
}

func TestToDB_DoesNotMutate(t *testing.T) {
	in := []float64{1, 10}
	ToDB(in, DefaultMinDB)
	if in[0] != 1 || in[1] != 10 {
		t.Errorf("input mutated: %v", in)
	}
}
