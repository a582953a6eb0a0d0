// Package stencil builds finite-difference stencils of configurable
// derivative and accuracy order on general non-uniform 1-D axes.
//
// A stencil is returned as a lower bound plus a weight vector. On
// periodic axes the lower bound may be negative or extend past the end
// of the axis; modular reduction of the indices is the caller's job.
package stencil

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FailedLB is the sentinel lower bound returned when no stencil can be
// built at the requested center (too few usable neighbours).
func FailedLB(nAxis int) int { return -2 * nAxis }

// Masked reports whether the axis point at (possibly out-of-range) index
// i is unusable. Implementations receive raw signed offsets and must do
// their own modular reduction on periodic axes.
type Masked func(i int) bool

// Build constructs the weights for the derivOrder-th derivative at
// axis[center], exact for polynomials up to accOrder-1 on the supplied
// axis. The stencil is centred where possible and shifted one-sided
// toward the interior at non-periodic boundaries or where masked cells
// intrude. Returns FailedLB(len(axis)) and nil weights on failure.
func Build(axis []float64, center, derivOrder, accOrder int, periodic bool, masked Masked) (lb int, weights []float64) {
	var (
		n     = len(axis)
		width = 2*(accOrder/2) + derivOrder
	)
	lb = FailedLB(n)
	if width > n || center < 0 || center >= n {
		return lb, nil
	}

	ideal := center - width/2

	// Scan candidate windows nearest-first: the centred window, then
	// windows shifted one point at a time toward either side. A window
	// must contain the center, stay in bounds unless the axis wraps,
	// and be fully unmasked.
	for shift := 0; shift <= width; shift++ {
		for _, s := range []int{shift, -shift} {
			cand := ideal + s
			if cand > center || cand+width <= center {
				continue
			}
			if !periodic && (cand < 0 || cand > n-width) {
				continue
			}
			if windowClear(cand, width, masked) {
				if w := solveWeights(axis, cand, center, width, derivOrder, periodic); w != nil {
					return cand, w
				}
			}
			if shift == 0 {
				break
			}
		}
	}
	return FailedLB(n), nil
}

// BuildOneSided is Build with the window forced to start at the center
// point, i.e. a fully forward-shifted stencil. On a non-periodic axis,
// where fewer than width points lie at or past the center, the window
// is the last width points instead. Used where a derivative
// and the field it multiplies must not share grid points symmetrically.
func BuildOneSided(axis []float64, center, derivOrder, accOrder int, periodic bool, masked Masked) (lb int, weights []float64) {
	var (
		n     = len(axis)
		width = 2*(accOrder/2) + derivOrder
	)
	lb = FailedLB(n)
	if width > n || center < 0 || center >= n {
		return lb, nil
	}
	cand := center
	if !periodic && cand > n-width {
		cand = n - width
	}
	if !windowClear(cand, width, masked) {
		return FailedLB(n), nil
	}
	if w := solveWeights(axis, cand, center, width, derivOrder, periodic); w != nil {
		return cand, w
	}
	return FailedLB(n), nil
}

func windowClear(lb, width int, masked Masked) bool {
	if masked == nil {
		return true
	}
	for i := lb; i < lb+width; i++ {
		if masked(i) {
			return false
		}
	}
	return true
}

// solveWeights inverts the local Vandermonde system for the offsets
// x_j = axis[j] - axis[center], unwrapping periodic offsets across the
// axis span.
func solveWeights(axis []float64, lb, center, width, derivOrder int, periodic bool) []float64 {
	var (
		n    = len(axis)
		span = axisSpan(axis)
		x    = make([]float64, width)
	)
	for j := 0; j < width; j++ {
		idx := lb + j
		switch {
		case periodic && idx < 0:
			x[j] = axis[(idx%n+n)%n] - span - axis[center]
		case periodic && idx >= n:
			x[j] = axis[idx%n] + span - axis[center]
		default:
			x[j] = axis[idx] - axis[center]
		}
	}

	V := mat.NewDense(width, width, nil)
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			V.Set(i, j, math.Pow(x[j], float64(i)))
		}
	}
	b := mat.NewVecDense(width, nil)
	b.SetVec(derivOrder, factorial(derivOrder))

	var w mat.VecDense
	if err := w.SolveVec(V, b); err != nil {
		return nil
	}
	return w.RawVector().Data
}

func axisSpan(axis []float64) float64 {
	n := len(axis)
	if n < 2 {
		return 0
	}
	// Uniform extension of the last cell closes the circle.
	return axis[n-1] - axis[0] + (axis[n-1]-axis[0])/float64(n-1)
}

func factorial(k int) (f float64) {
	f = 1
	for i := 2; i <= k; i++ {
		f *= float64(i)
	}
	return
}
