package stencil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func applyStencil(axis, field []float64, lb int, w []float64, periodic bool) (sum float64) {
	n := len(axis)
	for j, wj := range w {
		idx := lb + j
		if periodic {
			idx = (idx%n + n) % n
		}
		sum += wj * field[idx]
	}
	return
}

func TestFirstDerivativeUniform(t *testing.T) {
	var (
		n    = 21
		axis = make([]float64, n)
		f    = make([]float64, n)
	)
	for i := range axis {
		axis[i] = float64(i) * 0.1
		f[i] = 3.*axis[i] - 1.5
	}
	for center := 0; center < n; center++ {
		lb, w := Build(axis, center, 1, 2, false, nil)
		assert.NotEqual(t, FailedLB(n), lb)
		d := applyStencil(axis, f, lb, w, false)
		assert.InDelta(t, 3., d, 1.e-10)
	}
}

func TestSecondDerivativeNonUniform(t *testing.T) {
	// Quadratic on a stretched axis must come back with an exact
	// second derivative.
	var (
		n    = 16
		axis = make([]float64, n)
		f    = make([]float64, n)
	)
	for i := range axis {
		x := float64(i) * 0.1
		axis[i] = x + 0.03*x*x
		f[i] = 2.5*axis[i]*axis[i] - axis[i] + 4.
	}
	for center := 0; center < n; center++ {
		lb, w := Build(axis, center, 2, 2, false, nil)
		assert.NotEqual(t, FailedLB(n), lb)
		d := applyStencil(axis, f, lb, w, false)
		assert.InDelta(t, 5., d, 1.e-7, "center %d", center)
	}
}

func TestBoundaryShiftsOneSided(t *testing.T) {
	var (
		n    = 10
		axis = make([]float64, n)
	)
	for i := range axis {
		axis[i] = float64(i)
	}
	lb, w := Build(axis, 0, 1, 2, false, nil)
	assert.Equal(t, 0, lb)
	assert.Len(t, w, 3)

	lb, w = Build(axis, n-1, 1, 2, false, nil)
	assert.Equal(t, n-3, lb)
	assert.Len(t, w, 3)
}

func TestPeriodicWrap(t *testing.T) {
	var (
		n    = 32
		axis = make([]float64, n)
		f    = make([]float64, n)
	)
	for i := range axis {
		axis[i] = 2. * math.Pi * float64(i) / float64(n)
		f[i] = math.Sin(axis[i])
	}
	// At the seam the stencil must wrap and still differentiate sin
	// to cos accurately.
	for _, center := range []int{0, 1, n - 1} {
		lb, w := Build(axis, center, 1, 2, true, nil)
		assert.NotEqual(t, FailedLB(n), lb)
		d := applyStencil(axis, f, lb, w, true)
		assert.InDelta(t, math.Cos(axis[center]), d, 1.e-2)
	}
}

func TestMaskForcesShift(t *testing.T) {
	var (
		n    = 12
		axis = make([]float64, n)
		f    = make([]float64, n)
	)
	for i := range axis {
		axis[i] = float64(i)
		f[i] = 2. * axis[i]
	}
	masked := func(i int) bool { return i == 5 }
	lb, w := Build(axis, 4, 1, 2, false, masked)
	assert.NotEqual(t, FailedLB(n), lb)
	for j := range w {
		assert.NotEqual(t, 5, lb+j)
	}
	assert.InDelta(t, 2., applyStencil(axis, f, lb, w, false), 1.e-10)
}

func TestTooFewNeighboursFails(t *testing.T) {
	var (
		n    = 12
		axis = make([]float64, n)
	)
	for i := range axis {
		axis[i] = float64(i)
	}
	masked := func(i int) bool { return i != 6 }
	lb, w := Build(axis, 6, 1, 2, false, masked)
	assert.Equal(t, FailedLB(n), lb)
	assert.Nil(t, w)
}

func TestOneSidedWindowStartsAtCenter(t *testing.T) {
	var (
		n    = 14
		axis = make([]float64, n)
		f    = make([]float64, n)
	)
	for i := range axis {
		axis[i] = float64(i) * 0.25
		f[i] = -1.25 * axis[i]
	}
	lb, w := BuildOneSided(axis, 3, 1, 2, false, nil)
	assert.Equal(t, 3, lb)
	assert.InDelta(t, -1.25, applyStencil(axis, f, lb, w, false), 1.e-10)
}
