package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/oceansieve/geometry"
)

func testGrid(t *testing.T, nLat, nLon int) *geometry.Grid {
	var (
		lat = make([]float64, nLat)
		lon = make([]float64, nLon)
	)
	for i := range lat {
		lat[i] = -1.0 + 2.0*float64(i)/float64(nLat-1)
	}
	for j := range lon {
		lon[j] = 2. * math.Pi * float64(j) / float64(nLon)
	}
	g, err := geometry.NewGrid([]float64{0}, []float64{0}, lat, lon, 6371.e3)
	require.NoError(t, err)
	require.NoError(t, g.SetPeriodic(true, false))
	return g
}

// A spatially uniform coarse flow has zero gradients, so Pi vanishes
// identically whatever the sub-filter stress is.
func TestPiVanishesForUniformFlow(t *testing.T) {
	var (
		g    = testGrid(t, 16, 32)
		n    = g.Size()
		ux   = make([]float64, n)
		uy   = make([]float64, n)
		uz   = make([]float64, n)
		pi   = make([]float64, n)
		quad = NewCoarseQuadratics(n)
	)
	for i := 0; i < n; i++ {
		ux[i], uy[i], uz[i] = 1.5, -0.5, 0.25
		quad.UxUx[i] = 3.
		quad.UxUy[i] = -1.
		quad.UyUy[i] = 2.
		quad.UzUz[i] = 0.7
	}
	ComputePi(pi, g, ux, uy, uz, quad, 1025., 2, nil, -32767.)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0., pi[i], 1.e-8)
	}
}

// With tau = 0 (the quadratics equal the products of the means) Pi is
// exactly zero no matter how the flow varies.
func TestPiVanishesForZeroStress(t *testing.T) {
	var (
		g    = testGrid(t, 16, 32)
		n    = g.Size()
		ux   = make([]float64, n)
		uy   = make([]float64, n)
		uz   = make([]float64, n)
		pi   = make([]float64, n)
		quad = NewCoarseQuadratics(n)
	)
	for i := 0; i < n; i++ {
		ux[i] = math.Sin(0.01 * float64(i))
		uy[i] = math.Cos(0.02 * float64(i))
		uz[i] = 0.3 * math.Sin(0.03*float64(i))
		quad.UxUx[i] = ux[i] * ux[i]
		quad.UxUy[i] = ux[i] * uy[i]
		quad.UxUz[i] = ux[i] * uz[i]
		quad.UyUy[i] = uy[i] * uy[i]
		quad.UyUz[i] = uy[i] * uz[i]
		quad.UzUz[i] = uz[i] * uz[i]
	}
	ComputePi(pi, g, ux, uy, uz, quad, 1025., 2, nil, -32767.)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0., pi[i], 1.e-10)
	}
}

func TestZVanishesForZeroVorticityFlux(t *testing.T) {
	var (
		g    = testGrid(t, 12, 24)
		n    = g.Size()
		ux   = make([]float64, n)
		uy   = make([]float64, n)
		uz   = make([]float64, n)
		w    = make([]float64, n)
		z    = make([]float64, n)
		quad = NewCoarseQuadratics(n)
	)
	for i := 0; i < n; i++ {
		ux[i] = 0.5
		uy[i] = -1.
		w[i] = math.Sin(0.05 * float64(i))
		quad.VortUx[i] = w[i] * ux[i]
		quad.VortUy[i] = w[i] * uy[i]
		quad.VortUz[i] = w[i] * uz[i]
	}
	ComputeZ(z, g, ux, uy, uz, w, quad, 1025., 2, nil, -32767.)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0., z[i], 1.e-10)
	}
}

func TestDivTransportZeroForStillFlow(t *testing.T) {
	var (
		g    = testGrid(t, 12, 24)
		n    = g.Size()
		zv   = make([]float64, n)
		divJ = make([]float64, n)
		quad = NewCoarseQuadratics(n)
	)
	ComputeDivTransport(divJ, g, zv, zv, zv, quad, 1025., 2, nil, -32767.)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0., divJ[i], 1.e-12)
	}
}

func TestFillValueOnLand(t *testing.T) {
	var (
		g    = testGrid(t, 12, 24)
		n    = g.Size()
		ux   = make([]float64, n)
		pi   = make([]float64, n)
		quad = NewCoarseQuadratics(n)
		fill = -32767.
	)
	land := g.Index(0, 0, 5, 5)
	g.Mask[land] = false
	ComputePi(pi, g, ux, ux, ux, quad, 1025., 2, g.Mask, fill)
	assert.Equal(t, fill, pi[land])
}

// Pi and Pi2 agree for a linear velocity profile: the shifted stencil
// is exact there too.
func TestPi2MatchesPiForLinearFlow(t *testing.T) {
	var (
		g    = testGrid(t, 16, 32)
		n    = g.Size()
		ux   = make([]float64, n)
		uy   = make([]float64, n)
		uz   = make([]float64, n)
		pi   = make([]float64, n)
		pi2  = make([]float64, n)
		quad = NewCoarseQuadratics(n)
	)
	for i := 0; i < g.Nlat(); i++ {
		for j := 0; j < g.Nlon(); j++ {
			idx := g.Index(0, 0, i, j)
			// Linear in the latitude coordinate, so both the centred
			// and the one-sided stencils are exact.
			ux[idx] = 2.e-7 * g.R * g.Lat[i]
			quad.UxUx[idx] = ux[idx]*ux[idx] + 1.
		}
	}
	ComputePi(pi, g, ux, uy, uz, quad, 1025., 2, nil, -32767.)
	ComputePiShiftDeriv(pi2, g, ux, uy, uz, quad, 1025., 2, nil, -32767.)
	for i := 2; i < g.Nlat()-2; i++ {
		for j := 0; j < g.Nlon(); j++ {
			idx := g.Index(0, 0, i, j)
			assert.InDelta(t, pi[idx], pi2[idx], 1.e-6, "at (%d,%d)", i, j)
		}
	}
}
