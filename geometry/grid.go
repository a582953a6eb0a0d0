// Package geometry holds the immutable lon/lat shell mesh: coordinate
// axes in radians, per-cell areas, the land/water mask, and great-circle
// distances. Everything downstream treats a Grid as read-only.
package geometry

import (
	"fmt"
	"math"
)

// PoleProximityDeg is how close (in degrees) a latitude row must be to
// +/-90 before it is treated as a pole row.
const PoleProximityDeg = 0.01

type Grid struct {
	Time  []float64
	Depth []float64
	Lat   []float64 // radians, within [-pi/2, pi/2]
	Lon   []float64 // radians, strictly increasing

	// Areas has length Nlat*Nlon, in m^2.
	Areas []float64

	// Mask has length Ntime*Ndepth*Nlat*Nlon, true = water.
	Mask []bool

	R float64 // sphere radius, m

	PeriodicX   bool
	PeriodicY   bool
	UniformLat  bool
	UniformLon  bool
	FullLonSpan bool
}

func (g *Grid) Ntime() int  { return len(g.Time) }
func (g *Grid) Ndepth() int { return len(g.Depth) }
func (g *Grid) Nlat() int   { return len(g.Lat) }
func (g *Grid) Nlon() int   { return len(g.Lon) }

// Npts is the number of points in one (time, depth) slice.
func (g *Grid) Npts() int { return len(g.Lat) * len(g.Lon) }

// Size is the number of points in the full 4-D block.
func (g *Grid) Size() int { return len(g.Time) * len(g.Depth) * g.Npts() }

// Index converts the four-point (physical) index into the one-point
// (logical) index used to access the flat field arrays.
func (g *Grid) Index(iTime, iDepth, iLat, iLon int) int {
	var (
		nDepth = len(g.Depth)
		nLat   = len(g.Lat)
		nLon   = len(g.Lon)
	)
	return iTime*(nDepth*nLat*nLon) + iDepth*(nLat*nLon) + iLat*nLon + iLon
}

// IndexSub indexes within a single (time, depth) slice.
func (g *Grid) IndexSub(iLat, iLon int) int { return iLat*len(g.Lon) + iLon }

func (g *Grid) Area(iLat, iLon int) float64 { return g.Areas[g.IndexSub(iLat, iLon)] }

func (g *Grid) IsWater(iTime, iDepth, iLat, iLon int) bool {
	return g.Mask[g.Index(iTime, iDepth, iLat, iLon)]
}

// NewGrid validates the axes and precomputes cell areas. The mask is
// attached afterwards by the data loader (SetMask); until then every
// cell is water.
func NewGrid(time, depth, lat, lon []float64, r float64) (*Grid, error) {
	if len(lat) < 2 || len(lon) < 2 {
		return nil, fmt.Errorf("geometry: need at least 2 points per spatial axis, have %d lat, %d lon",
			len(lat), len(lon))
	}
	for j := 1; j < len(lon); j++ {
		if lon[j] <= lon[j-1] {
			return nil, fmt.Errorf("geometry: longitude must be strictly increasing (lon[%d]=%g, lon[%d]=%g)",
				j-1, lon[j-1], j, lon[j])
		}
	}
	for i, l := range lat {
		if l < -math.Pi/2-1.e-12 || l > math.Pi/2+1.e-12 {
			return nil, fmt.Errorf("geometry: latitude out of range at %d: %g rad", i, l)
		}
	}
	g := &Grid{
		Time:  time,
		Depth: depth,
		Lat:   lat,
		Lon:   lon,
		R:     r,
	}
	g.UniformLat = isUniform(lat)
	g.UniformLon = isUniform(lon)
	g.FullLonSpan = fullSpan(lon)
	g.Areas = make([]float64, len(lat)*len(lon))
	g.computeAreas()
	g.Mask = make([]bool, g.Size())
	for i := range g.Mask {
		g.Mask[i] = true
	}
	return g, nil
}

// SetPeriodic declares the axis periodicities. Latitude periodicity is
// only meaningful on uniform grids.
func (g *Grid) SetPeriodic(x, y bool) error {
	if y && !g.UniformLat {
		return fmt.Errorf("geometry: periodic latitude requires a uniform latitude grid")
	}
	g.PeriodicX = x
	g.PeriodicY = y
	g.computeAreas() // periodic wrap changes the edge cell widths
	return nil
}

func (g *Grid) SetMask(mask []bool) error {
	if len(mask) != g.Size() {
		return fmt.Errorf("geometry: mask length %d does not match grid size %d", len(mask), g.Size())
	}
	g.Mask = mask
	return nil
}

// MaskOutPoles turns any latitude row within PoleProximityDeg of a pole
// into land for all times and depths.
func (g *Grid) MaskOutPoles() {
	for iLat, lat := range g.Lat {
		if !IsPoleRow(lat) {
			continue
		}
		for iTime := 0; iTime < g.Ntime(); iTime++ {
			for iDepth := 0; iDepth < g.Ndepth(); iDepth++ {
				base := g.Index(iTime, iDepth, iLat, 0)
				for iLon := 0; iLon < g.Nlon(); iLon++ {
					g.Mask[base+iLon] = false
				}
			}
		}
	}
}

// Slice returns a view of the grid restricted to one (time, depth)
// pair: axes, areas and the mask window are shared, not copied. The
// flat layout makes the slice mask contiguous.
func (g *Grid) Slice(iTime, iDepth int) *Grid {
	base := g.Index(iTime, iDepth, 0, 0)
	sub := *g
	sub.Time = g.Time[:1]
	sub.Depth = g.Depth[:1]
	sub.Mask = g.Mask[base : base+g.Npts()]
	return &sub
}

// IsPoleRow reports whether a latitude (radians) is within
// PoleProximityDeg of +/-90.
func IsPoleRow(lat float64) bool {
	return math.Abs(math.Abs(lat*180./math.Pi)-90.) < PoleProximityDeg
}

// Distance is the great-circle distance between two (lat, lon) points in
// radians, via the haversine form.
func (g *Grid) Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var (
		sdLat = math.Sin(0.5 * (lat2 - lat1))
		sdLon = math.Sin(0.5 * (lon2 - lon1))
	)
	h := sdLat*sdLat + math.Cos(lat1)*math.Cos(lat2)*sdLon*sdLon
	return g.R * 2. * math.Asin(math.Sqrt(h))
}

// computeAreas fills Areas with R^2 cos(lat) dlon dlat, where the cell
// widths come from midpoint differences along each axis.
func (g *Grid) computeAreas() {
	var (
		nLat = len(g.Lat)
		nLon = len(g.Lon)
		dLat = cellWidths(g.Lat, false)
		dLon = cellWidths(g.Lon, g.PeriodicX && g.FullLonSpan)
	)
	for i := 0; i < nLat; i++ {
		coslat := math.Cos(g.Lat[i])
		for j := 0; j < nLon; j++ {
			g.Areas[i*nLon+j] = g.R * g.R * coslat * dLon[j] * dLat[i]
		}
	}
}

func cellWidths(axis []float64, wrap bool) []float64 {
	n := len(axis)
	w := make([]float64, n)
	for i := range axis {
		switch {
		case i == 0 && wrap:
			w[i] = 0.5 * ((axis[1] - axis[0]) + (axis[0] + 2.*math.Pi - axis[n-1]))
		case i == n-1 && wrap:
			w[i] = 0.5 * ((axis[0] + 2.*math.Pi - axis[n-1]) + (axis[n-1] - axis[n-2]))
		case i == 0:
			w[i] = axis[1] - axis[0]
		case i == n-1:
			w[i] = axis[n-1] - axis[n-2]
		default:
			w[i] = 0.5 * (axis[i+1] - axis[i-1])
		}
	}
	return w
}

func isUniform(axis []float64) bool {
	if len(axis) < 3 {
		return true
	}
	d0 := axis[1] - axis[0]
	for i := 2; i < len(axis); i++ {
		if math.Abs((axis[i]-axis[i-1])-d0) > 1.e-10*math.Abs(d0) {
			return false
		}
	}
	return true
}

func fullSpan(lon []float64) bool {
	if len(lon) < 2 {
		return false
	}
	dlon := lon[1] - lon[0]
	span := lon[len(lon)-1] - lon[0] + dlon
	return math.Abs(span-2.*math.Pi) < 1.e-6
}

// ConvertCoordinates converts degree axes to radians in place.
func ConvertCoordinates(lon, lat []float64) {
	const degToRad = math.Pi / 180.
	for i := range lon {
		lon[i] *= degToRad
	}
	for i := range lat {
		lat[i] *= degToRad
	}
}
