package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func globalGrid(t *testing.T, nLat, nLon int) *Grid {
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
	g, err := NewGrid([]float64{0}, []float64{0}, lat, lon, 6371.e3)
	require.NoError(t, err)
	require.NoError(t, g.SetPeriodic(true, false))
	return g
}

func TestAreasSumToSphere(t *testing.T) {
	g := globalGrid(t, 90, 180)
	var total float64
	for _, a := range g.Areas {
		total += a
	}
	sphere := 4. * math.Pi * g.R * g.R
	assert.InEpsilon(t, sphere, total, 1.e-3)
}

func TestHaversine(t *testing.T) {
	g := globalGrid(t, 4, 8)
	// Quarter circumference from equator to pole.
	d := g.Distance(0, 0, math.Pi/2, 0)
	assert.InDelta(t, math.Pi/2*g.R, d, 1.)
	// Antipodal along the equator.
	d = g.Distance(0, 0, 0, math.Pi)
	assert.InDelta(t, math.Pi*g.R, d, 1.)
	// Symmetric in its arguments.
	assert.InDelta(t, g.Distance(0.3, 1.2, -0.4, 2.), g.Distance(-0.4, 2., 0.3, 1.2), 1.e-9)
}

func TestValidation(t *testing.T) {
	_, err := NewGrid([]float64{0}, []float64{0}, []float64{0, 0.1}, []float64{1., 0.5}, 1.)
	assert.Error(t, err, "decreasing longitude must be rejected")

	_, err = NewGrid([]float64{0}, []float64{0}, []float64{-2., 0.}, []float64{0., 0.5}, 1.)
	assert.Error(t, err, "latitude outside [-pi/2, pi/2] must be rejected")

	// Periodic latitude needs uniform spacing.
	g, err := NewGrid([]float64{0}, []float64{0}, []float64{-0.4, 0., 0.1}, []float64{0., 0.5}, 1.)
	assert.NoError(t, err)
	assert.Error(t, g.SetPeriodic(false, true))
}

func TestIndexRoundTrip(t *testing.T) {
	g := globalGrid(t, 5, 7)
	g.Time = []float64{0, 1, 2}
	g.Depth = []float64{0, 10}
	seen := make(map[int]bool)
	for it := 0; it < 3; it++ {
		for id := 0; id < 2; id++ {
			for i := 0; i < 5; i++ {
				for j := 0; j < 7; j++ {
					idx := g.Index(it, id, i, j)
					assert.False(t, seen[idx])
					seen[idx] = true
				}
			}
		}
	}
	assert.Len(t, seen, 3*2*5*7)
}

func TestPoleMasking(t *testing.T) {
	var (
		lat = []float64{-math.Pi / 2, -0.5, 0., 0.5, math.Pi / 2}
		lon = []float64{0., 1., 2., 3.}
	)
	g, err := NewGrid([]float64{0}, []float64{0}, lat, lon, 6371.e3)
	require.NoError(t, err)
	g.MaskOutPoles()
	for j := range lon {
		assert.False(t, g.IsWater(0, 0, 0, j))
		assert.False(t, g.IsWater(0, 0, 4, j))
		assert.True(t, g.IsWater(0, 0, 2, j))
	}
}

func TestSliceSharesMaskWindow(t *testing.T) {
	g := globalGrid(t, 4, 6)
	g.Time = []float64{0, 1}
	g.Mask = make([]bool, g.Size())
	for i := range g.Mask {
		g.Mask[i] = true
	}
	g.Mask[g.Index(1, 0, 2, 3)] = false

	sub := g.Slice(1, 0)
	assert.Equal(t, 1, sub.Ntime())
	assert.False(t, sub.Mask[sub.IndexSub(2, 3)])
	assert.True(t, sub.Mask[sub.IndexSub(0, 0)])
}

func TestConvertCoordinates(t *testing.T) {
	lon := []float64{0., 90., 180.}
	lat := []float64{-90., 0., 45.}
	ConvertCoordinates(lon, lat)
	assert.InDelta(t, math.Pi/2, lon[1], 1.e-12)
	assert.InDelta(t, -math.Pi/2, lat[0], 1.e-12)
	assert.InDelta(t, math.Pi/4, lat[2], 1.e-12)
}
