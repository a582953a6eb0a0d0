package operators

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
	// Stay away from the poles so the metric terms remain tame.
	for i := range lat {
		lat[i] = -1.2 + 2.4*float64(i)/float64(nLat-1)
	}
	for j := range lon {
		lon[j] = 2. * math.Pi * float64(j) / float64(nLon)
	}
	g, err := geometry.NewGrid([]float64{0}, []float64{0}, lat, lon, 6371.e3)
	require.NoError(t, err)
	require.NoError(t, g.SetPeriodic(true, false))
	return g
}

func TestDerivAtPointSinLon(t *testing.T) {
	var (
		g = testGrid(t, 24, 96)
		f = make([]float64, g.Size())
	)
	for i := 0; i < g.Nlat(); i++ {
		for j := 0; j < g.Nlon(); j++ {
			f[g.Index(0, 0, i, j)] = math.Sin(g.Lon[j])
		}
	}
	out := make([]float64, 1)
	for _, j := range []int{0, 10, 95} {
		ok := DerivAtPoint(out, [][]float64{f}, g, AxisLon, 1, 2, 0, 0, 5, j, nil)
		assert.True(t, ok)
		assert.InDelta(t, math.Cos(g.Lon[j]), out[0], 2.e-3)
	}
}

// Solid-body rotation: u_lon = omega R cos(lat) has vort_r = 2 omega
// sin(lat) and zero divergence.
func TestSolidBodyVorticity(t *testing.T) {
	var (
		g     = testGrid(t, 48, 96)
		omega = 1.e-5
		n     = g.Size()
		uR    = make([]float64, n)
		uLon  = make([]float64, n)
		uLat  = make([]float64, n)
	)
	for i := 0; i < g.Nlat(); i++ {
		for j := 0; j < g.Nlon(); j++ {
			uLon[g.Index(0, 0, i, j)] = omega * g.R * math.Cos(g.Lat[i])
		}
	}
	for _, iLat := range []int{5, 24, 40} {
		vort, div, _ := VorticityAtPoint(g, uR, uLon, uLat, 2, 0, 0, iLat, 10, nil)
		want := 2. * omega * math.Sin(g.Lat[iLat])
		assert.InDelta(t, want, vort, 5.e-8, "iLat %d", iLat)
		assert.InDelta(t, 0., div, 5.e-8)
	}
}

// Toroidal velocities are divergence free; potential velocities carry
// no radial vorticity.
func TestHelmholtzVelocityProperties(t *testing.T) {
	var (
		g   = testGrid(t, 48, 96)
		n   = g.Size()
		psi = make([]float64, n)
		uR  = make([]float64, n)
	)
	for i := 0; i < g.Nlat(); i++ {
		for j := 0; j < g.Nlon(); j++ {
			psi[g.Index(0, 0, i, j)] = g.R * math.Sin(g.Lat[i]) * math.Cos(2.*g.Lon[j])
		}
	}
	var (
		uLon = make([]float64, n)
		uLat = make([]float64, n)
		div  = make([]float64, n)
	)
	ToroidalVel(uLon, uLat, psi, g, 2, nil)
	ComputeVorticity(nil, div, nil, g, uR, uLon, uLat, 2, nil, 0)

	var rmsDiv, rmsVel float64
	for i := 0; i < n; i++ {
		rmsDiv += div[i] * div[i]
		rmsVel += uLon[i]*uLon[i] + uLat[i]*uLat[i]
	}
	rmsDiv = math.Sqrt(rmsDiv / float64(n))
	rmsVel = math.Sqrt(rmsVel / float64(n))
	// The discrete divergence of a discrete curl is not identically
	// zero, but it is small relative to the flow.
	assert.Less(t, rmsDiv*g.R, rmsVel*0.05)
}

func TestSpherCartRoundTrip(t *testing.T) {
	var (
		g  = testGrid(t, 12, 24)
		n  = g.Size()
		uR = make([]float64, n)
		lo = make([]float64, n)
		la = make([]float64, n)
		ux = make([]float64, n)
		uy = make([]float64, n)
		uz = make([]float64, n)
		r2 = make([]float64, n)
		o2 = make([]float64, n)
		a2 = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		uR[i] = 0.1 * float64(i%5)
		lo[i] = math.Sin(0.2 * float64(i))
		la[i] = math.Cos(0.3 * float64(i))
	}
	VelSpherToCart(ux, uy, uz, uR, lo, la, g)
	VelCartToSpher(r2, o2, a2, ux, uy, uz, g)
	for i := 0; i < n; i++ {
		assert.InDelta(t, uR[i], r2[i], 1.e-12)
		assert.InDelta(t, lo[i], o2[i], 1.e-12)
		assert.InDelta(t, la[i], a2[i], 1.e-12)
	}
}

// Magnitude is preserved by the rotation.
func TestSpherCartMagnitude(t *testing.T) {
	var (
		g  = testGrid(t, 8, 16)
		n  = g.Size()
		uR = make([]float64, n)
		lo = make([]float64, n)
		la = make([]float64, n)
		ux = make([]float64, n)
		uy = make([]float64, n)
		uz = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		lo[i] = 1.5
		la[i] = -0.5
	}
	VelSpherToCart(ux, uy, uz, uR, lo, la, g)
	for i := 0; i < n; i++ {
		m1 := lo[i]*lo[i] + la[i]*la[i]
		m2 := ux[i]*ux[i] + uy[i]*uy[i] + uz[i]*uz[i]
		assert.InDelta(t, m1, m2, 1.e-12)
	}
}

func TestFillValueOnLand(t *testing.T) {
	var (
		g    = testGrid(t, 12, 24)
		n    = g.Size()
		uR   = make([]float64, n)
		uLon = make([]float64, n)
		uLat = make([]float64, n)
		vort = make([]float64, n)
		fill = -32767.
	)
	g.Mask[g.Index(0, 0, 4, 7)] = false
	ComputeVorticity(vort, nil, nil, g, uR, uLon, uLat, 2, g.Mask, fill)
	assert.Equal(t, fill, vort[g.Index(0, 0, 4, 7)])
	assert.NotEqual(t, fill, vort[g.Index(0, 0, 4, 8)])
}
