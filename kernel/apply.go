package kernel

import (
	"github.com/notargets/oceansieve/geometry"
)

// Quadratics carries the filtered second-order products of the
// Cartesian velocity and of vorticity times velocity, accumulated
// without ever materialising the product arrays.
type Quadratics struct {
	UxUx, UxUy, UxUz float64
	UyUy, UyUz       float64
	UzUz             float64
	VortUx           float64
	VortUy           float64
	VortUz           float64
}

// Applier evaluates the kernel at one center. The local slice holds the
// raw kernel values from Compute; CenterLon records the longitude index
// the kernel was computed at, so cached kernels can be translated.
type Applier struct {
	Grid      *geometry.Grid
	Local     []float64
	CenterLon int
	LatLB     int
	LatUB     int
}

// weightAt translates the cached kernel column for a center at iLon.
func (a *Applier) weightAt(i, j, iLon int) float64 {
	nLon := a.Grid.Nlon()
	col := j - iLon + a.CenterLon
	col = (col%nLon + nLon) % nLon
	return a.Local[i*nLon+col]
}

// At applies the kernel centred at (iTime, iDepth, iLat, iLon) to every
// field in fields, writing one coarse value per field into results.
// Fields with useMask true average over water only; the rest treat land
// cells as regular area-carrying cells. The weights are renormalised
// per center, so a constant field comes back unchanged.
func (a *Applier) At(results []float64, fields [][]float64, useMask []bool,
	iTime, iDepth, iLat, iLon int) {

	var (
		g       = a.Grid
		nLon    = g.Nlon()
		sumAll  float64
		sumWet  float64
		needAll bool
	)
	for k := range results {
		results[k] = 0
	}
	for _, um := range useMask {
		if !um {
			needAll = true
		}
	}
	for i := a.LatLB; i <= a.LatUB; i++ {
		for j := 0; j < nLon; j++ {
			kv := a.weightAt(i, j, iLon)
			if kv == 0 {
				continue
			}
			var (
				wArea = kv * g.Areas[i*nLon+j]
				flat  = g.Index(iTime, iDepth, i, j)
				water = g.Mask[flat]
			)
			if needAll {
				sumAll += wArea
			}
			if water {
				sumWet += wArea
			}
			for k, f := range fields {
				if useMask[k] && !water {
					continue
				}
				results[k] += wArea * f[flat]
			}
		}
	}
	for k := range results {
		denom := sumAll
		if useMask[k] {
			denom = sumWet
		}
		if denom > 0 {
			results[k] /= denom
		} else {
			results[k] = 0
		}
	}
}

// AtQuadratics applies the kernel to the six symmetric Cartesian
// velocity products and the three vorticity-velocity products in one
// sweep. Quadratics are always water-averaged.
func (a *Applier) AtQuadratics(out *Quadratics, uX, uY, uZ, vortR []float64,
	iTime, iDepth, iLat, iLon int) {

	var (
		g      = a.Grid
		nLon   = g.Nlon()
		sumWet float64
	)
	*out = Quadratics{}
	for i := a.LatLB; i <= a.LatUB; i++ {
		for j := 0; j < nLon; j++ {
			kv := a.weightAt(i, j, iLon)
			if kv == 0 {
				continue
			}
			flat := g.Index(iTime, iDepth, i, j)
			if !g.Mask[flat] {
				continue
			}
			var (
				wArea      = kv * g.Areas[i*nLon+j]
				ux, uy, uz = uX[flat], uY[flat], uZ[flat]
				w          = vortR[flat]
			)
			sumWet += wArea
			out.UxUx += wArea * ux * ux
			out.UxUy += wArea * ux * uy
			out.UxUz += wArea * ux * uz
			out.UyUy += wArea * uy * uy
			out.UyUz += wArea * uy * uz
			out.UzUz += wArea * uz * uz
			out.VortUx += wArea * w * ux
			out.VortUy += wArea * w * uy
			out.VortUz += wArea * w * uz
		}
	}
	if sumWet > 0 {
		inv := 1. / sumWet
		out.UxUx *= inv
		out.UxUy *= inv
		out.UxUz *= inv
		out.UyUy *= inv
		out.UyUz *= inv
		out.UzUz *= inv
		out.VortUx *= inv
		out.VortUy *= inv
		out.VortUz *= inv
	}
}
