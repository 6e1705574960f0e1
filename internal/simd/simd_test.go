package simd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func relClose(t *testing.T, want, got float32, label string) {
	t.Helper()
	diff := math.Abs(float64(want - got))
	scale := math.Max(math.Abs(float64(want)), 1)
	assert.LessOrEqual(t, diff/scale, 1e-6, label)
}

func TestKernelsMatchScalarReference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{0, 1, 3, 7, 8, 9, 15, 16, 17, 64, 100, 1000} {
		a := randVec(rng, n)
		b := randVec(rng, n)

		relClose(t, dotScalar(a, b), dotLanes(a, b), "dot")
		relClose(t, squaredL2Scalar(a, b), squaredL2Lanes(a, b), "l2")
	}
}

func TestSquaredL2Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := randVec(rng, 33)
	b := randVec(rng, 33)

	assert.Zero(t, SquaredL2(a, a))
	assert.Greater(t, SquaredL2(a, b), float32(0))
	relClose(t, SquaredL2(a, b), SquaredL2(b, a), "symmetry")
}

func TestNorm(t *testing.T) {
	relClose(t, 5, Norm([]float32{3, 4}), "3-4-5")
	assert.Zero(t, Norm(nil))
}

func TestPopcount(t *testing.T) {
	a := []uint64{0b1011, 0, ^uint64(0)}
	b := []uint64{0b0110, 0, ^uint64(0)}

	assert.Equal(t, int64(1+0+64), PopcountAnd(a, b))
	assert.Equal(t, int64(4+0+64), PopcountOr(a, b))

	// Remainder path beyond the 4-word unroll.
	long := make([]uint64, 11)
	for i := range long {
		long[i] = uint64(i)
	}
	var want int64
	for _, w := range long {
		want += int64(popcountOne(w))
	}
	assert.Equal(t, want, PopcountAnd(long, long))
	assert.Equal(t, want, PopcountOr(long, long))
}

func popcountOne(w uint64) int {
	n := 0
	for ; w != 0; w &= w - 1 {
		n++
	}
	return n
}

func TestActiveISA(t *testing.T) {
	require.Contains(t, []ISA{Scalar, Lanes8}, ActiveISA())
	assert.NotEqual(t, "unknown", ActiveISA().String())
}
