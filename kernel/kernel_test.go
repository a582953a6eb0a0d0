package kernel

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
		lat[i] = -math.Pi/2 + (float64(i)+0.5)*math.Pi/float64(nLat)
	}
	for j := range lon {
		lon[j] = 2. * math.Pi * float64(j) / float64(nLon)
	}
	g, err := geometry.NewGrid([]float64{0}, []float64{0}, lat, lon, 6371.e3)
	require.NoError(t, err)
	require.NoError(t, g.SetPeriodic(true, false))
	return g
}

func newApplier(g *geometry.Grid, shape Shape, scale float64, iLat, iLon int) *Applier {
	var (
		pad          = shape.PadFactor()
		latLB, latUB = LatBounds(g, iLat, scale, pad)
		local        = make([]float64, g.Npts())
	)
	Compute(local, g, shape, scale, iLat, iLon, latLB, latUB)
	return &Applier{Grid: g, Local: local, CenterLon: iLon, LatLB: latLB, LatUB: latUB}
}

// Filtering a constant field returns the constant on every water
// point, whatever the kernel shape or scale.
func TestConstantFieldIdempotence(t *testing.T) {
	g := testGrid(t, 36, 72)
	field := make([]float64, g.Size())
	for i := range field {
		field[i] = 3.14
	}
	for _, shape := range []Shape{TopHat, TanhRamp, Gaussian} {
		for _, scale := range []float64{200.e3, 500.e3} {
			for _, iLat := range []int{0, 9, 18, 35} {
				a := newApplier(g, shape, scale, iLat, 0)
				results := make([]float64, 1)
				a.At(results, [][]float64{field}, []bool{true}, 0, 0, iLat, 0)
				assert.InDelta(t, 3.14, results[0], 1.e-12,
					"shape %v scale %g iLat %d", shape, scale, iLat)
			}
		}
	}
}

// <af + bg> = a<f> + b<g>.
func TestLinearity(t *testing.T) {
	var (
		g     = testGrid(t, 24, 48)
		f     = make([]float64, g.Size())
		h     = make([]float64, g.Size())
		combo = make([]float64, g.Size())
	)
	for i := range f {
		f[i] = math.Sin(float64(i) * 0.1)
		h[i] = math.Cos(float64(i) * 0.07)
		combo[i] = 2.*f[i] - 0.5*h[i]
	}
	a := newApplier(g, TanhRamp, 400.e3, 12, 5)
	results := make([]float64, 3)
	a.At(results, [][]float64{f, h, combo}, []bool{true, true, true}, 0, 0, 12, 5)
	assert.InDelta(t, 2.*results[0]-0.5*results[1], results[2], 1.e-12)
}

// The cached, translated kernel must agree with one computed directly
// at the center.
func TestCachedKernelTranslation(t *testing.T) {
	var (
		g     = testGrid(t, 24, 48)
		f     = make([]float64, g.Size())
		iLat  = 13
		scale = 300.e3
	)
	for i := range f {
		f[i] = math.Sin(float64(i)*0.13) + 0.2*float64(i%7)
	}
	require.True(t, CanCache(g))

	cached := newApplier(g, TanhRamp, scale, iLat, 0)
	for _, iLon := range []int{0, 1, 17, 47} {
		direct := newApplier(g, TanhRamp, scale, iLat, iLon)
		var rc, rd [1]float64
		cached.At(rc[:], [][]float64{f}, []bool{true}, 0, 0, iLat, iLon)
		direct.At(rd[:], [][]float64{f}, []bool{true}, 0, 0, iLat, iLon)
		assert.InDelta(t, rd[0], rc[0], 1.e-12, "iLon %d", iLon)
	}
}

// With use_mask, land neither contributes nor dilutes; without it, land
// cells count as zero-valued area.
func TestMaskSemantics(t *testing.T) {
	var (
		g    = testGrid(t, 24, 48)
		f    = make([]float64, g.Size())
		iLat = 12
	)
	for i := range f {
		f[i] = 1.
	}
	// Put a blob of land around the center. The kernel radius reaches
	// past the blob edge, so the support holds water as well as land.
	for i := 10; i <= 14; i++ {
		for j := 3; j <= 8; j++ {
			g.Mask[g.Index(0, 0, i, j)] = false
		}
	}
	a := newApplier(g, TopHat, 6000.e3, iLat, 5)
	var masked, unmasked [1]float64
	a.At(masked[:], [][]float64{f}, []bool{true}, 0, 0, iLat, 5)
	a.At(unmasked[:], [][]float64{f}, []bool{false}, 0, 0, iLat, 5)
	assert.InDelta(t, 1., masked[0], 1.e-12)
	// Land values enter the unmasked average (they are 1 here too),
	// so the mass-weighted mean also stays 1.
	assert.InDelta(t, 1., unmasked[0], 1.e-12)

	// Zero the land values: the unmasked average must now dip.
	for i := 10; i <= 14; i++ {
		for j := 3; j <= 8; j++ {
			f[g.Index(0, 0, i, j)] = 0
		}
	}
	a.At(unmasked[:], [][]float64{f}, []bool{false}, 0, 0, iLat, 5)
	assert.Less(t, unmasked[0], 1.)
	a.At(masked[:], [][]float64{f}, []bool{true}, 0, 0, iLat, 5)
	assert.InDelta(t, 1., masked[0], 1.e-12)
}

// A Gaussian bump is attenuated at its peak, more so at larger scales.
func TestBumpAttenuationMonotone(t *testing.T) {
	var (
		g     = testGrid(t, 180, 360)
		f     = make([]float64, g.Size())
		sigma = 5. * math.Pi / 180.
	)
	var iLat0, iLon0 int
	for i, lat := range g.Lat {
		if math.Abs(lat) < math.Abs(g.Lat[iLat0]) {
			iLat0 = i
		}
	}
	for i, lat := range g.Lat {
		for j, lon := range g.Lon {
			dlon := lon - g.Lon[iLon0]
			if dlon > math.Pi {
				dlon -= 2. * math.Pi
			}
			f[g.Index(0, 0, i, j)] = math.Exp(-(lat*lat + dlon*dlon) / (sigma * sigma))
		}
	}
	peak := f[g.Index(0, 0, iLat0, iLon0)]
	var prev = peak
	for _, scale := range []float64{400.e3, 800.e3, 1600.e3} {
		a := newApplier(g, TanhRamp, scale, iLat0, iLon0)
		var r [1]float64
		a.At(r[:], [][]float64{f}, []bool{true}, 0, 0, iLat0, iLon0)
		assert.Less(t, r[0], prev, "scale %g", scale)
		prev = r[0]
	}
}

func TestQuadraticsMatchMaterialisedProducts(t *testing.T) {
	var (
		g  = testGrid(t, 24, 48)
		n  = g.Size()
		ux = make([]float64, n)
		uy = make([]float64, n)
		uz = make([]float64, n)
		w  = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		ux[i] = math.Sin(0.3 * float64(i))
		uy[i] = math.Cos(0.11 * float64(i))
		uz[i] = 0.5 * math.Sin(0.07*float64(i))
		w[i] = math.Cos(0.19 * float64(i))
	}
	var (
		uxux = make([]float64, n)
		uxuy = make([]float64, n)
		wuz  = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		uxux[i] = ux[i] * ux[i]
		uxuy[i] = ux[i] * uy[i]
		wuz[i] = w[i] * uz[i]
	}
	a := newApplier(g, TanhRamp, 350.e3, 11, 7)
	var q Quadratics
	a.AtQuadratics(&q, ux, uy, uz, w, 0, 0, 11, 7)
	var r [3]float64
	a.At(r[:], [][]float64{uxux, uxuy, wuz}, []bool{true, true, true}, 0, 0, 11, 7)
	assert.InDelta(t, r[0], q.UxUx, 1.e-12)
	assert.InDelta(t, r[1], q.UxUy, 1.e-12)
	assert.InDelta(t, r[2], q.VortUz, 1.e-12)
}

func TestAlphaTopHatIsOne(t *testing.T) {
	assert.InDelta(t, 1., TopHat.Alpha(), 1.e-3)
	assert.Greater(t, TanhRamp.Alpha(), 1.)
	assert.Greater(t, Gaussian.Alpha(), 0.)
}

func TestLatBoundsCoverReach(t *testing.T) {
	var (
		g     = testGrid(t, 90, 180)
		scale = 500.e3
	)
	lb, ub := LatBounds(g, 45, scale, 1.1)
	assert.LessOrEqual(t, lb, 45)
	assert.GreaterOrEqual(t, ub, 45)
	// Everything inside [lb, ub] is within reach, the first row
	// outside is not.
	reach := 1.1 * scale / 2.
	if lb > 0 {
		assert.Greater(t, g.R*math.Abs(g.Lat[lb-1]-g.Lat[45]), reach)
	}
	if ub < g.Nlat()-1 {
		assert.Greater(t, g.R*math.Abs(g.Lat[ub+1]-g.Lat[45]), reach)
	}
}
