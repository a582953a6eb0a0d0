// Package helmholtz decomposes a horizontal velocity field on the
// sphere into its toroidal (stream function) and potential parts by
// solving an overdetermined sparse least-squares problem per
// (time, depth) slice.
package helmholtz

import (
	"math"

	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/stencil"
	"github.com/notargets/oceansieve/utils"
)

// BuildOperator assembles the 4N x 2N block operator mapping
// (Psi, Phi) onto (u_lon, u_lat, lambda*vort, lambda*div):
//
//	[          -ddlat   sec(lat)*ddlon ]   [ Psi ]     [    u_lon    ]
//	[  sec(lat)*ddlon            ddlat ] * [ Phi ]  ~  [    u_lat    ]
//	[  lambda*Laplace                0 ]               [ lambda*vort ]
//	[                0  lambda*Laplace ]               [ lambda*div  ]
//
// with lambda = tikhovLaplace / derivScale. When weightErr is set every
// row is scaled by sqrt(dA) so the least-squares errors are weighted by
// cell area. mask may be nil to treat every cell as water. The operator
// depends only on geometry and mask, so one build serves all slices
// that share a mask.
func BuildOperator(g *geometry.Grid, accOrder int, mask []bool, weightErr bool,
	tikhovLaplace, derivScale float64) utils.CSR {

	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nPts   = g.Npts()
		rInv   = 1. / g.R
		r2Inv  = rInv * rInv
		lambda = tikhovLaplace / derivScale
		lhs    = utils.NewDOK(4*nPts, 2*nPts)
	)

	lonMasked := func(iLat int) stencil.Masked {
		if mask == nil {
			return nil
		}
		return func(i int) bool {
			idx, ok := reduceIdx(i, nLon, g.PeriodicX)
			return !ok || !mask[iLat*nLon+idx]
		}
	}
	latMasked := func(iLon int) stencil.Masked {
		if mask == nil {
			return nil
		}
		return func(i int) bool {
			idx, ok := reduceIdx(i, nLat, g.PeriodicY)
			return !ok || !mask[idx*nLon+iLon]
		}
	}

	// Terms forcing velocity matching.
	for iLat := 0; iLat < nLat; iLat++ {
		var (
			isPole    = geometry.IsPoleRow(g.Lat[iLat])
			cosLatInv = 1. / math.Cos(g.Lat[iLat])
		)
		if isPole {
			continue
		}
		for iLon := 0; iLon < nLon; iLon++ {
			var (
				idx    = iLat*nLon + iLon
				weight = rowWeight(g, iLat, iLon, weightErr)
			)

			// Zonal first derivative.
			if lb, w := stencil.Build(g.Lon, iLon, 1, accOrder, g.PeriodicX, lonMasked(iLat)); lb != stencil.FailedLB(nLon) {
				for j, wj := range w {
					iDiff, ok := reduceIdx(lb+j, nLon, g.PeriodicX)
					if !ok {
						continue
					}
					var (
						diffIdx = iLat*nLon + iDiff
						val     = wj * cosLatInv * rInv * weight
					)
					lhs.Add(1*nPts+idx, 0*nPts+diffIdx, val) // u_lat from Psi
					lhs.Add(0*nPts+idx, 1*nPts+diffIdx, val) // u_lon from Phi
				}
			}

			// Meridional first derivative.
			if lb, w := stencil.Build(g.Lat, iLat, 1, accOrder, g.PeriodicY, latMasked(iLon)); lb != stencil.FailedLB(nLat) {
				for j, wj := range w {
					iDiff, ok := reduceIdx(lb+j, nLat, g.PeriodicY)
					if !ok {
						continue
					}
					var (
						diffIdx = iDiff*nLon + iLon
						val     = wj * rInv * weight
					)
					lhs.Add(0*nPts+idx, 0*nPts+diffIdx, -val) // u_lon from Psi
					lhs.Add(1*nPts+idx, 1*nPts+diffIdx, val)  // u_lat from Phi
				}
			}
		}
	}

	// Laplace terms forcing vorticity / divergence matching, or the
	// zonally-constant constraint pinning the null space when the
	// regularisation is off.
	for iLat := 0; iLat < nLat; iLat++ {
		var (
			isPole     = geometry.IsPoleRow(g.Lat[iLat])
			cosLatInv  = 1. / math.Cos(g.Lat[iLat])
			cos2LatInv = cosLatInv * cosLatInv
			tanLat     = math.Tan(g.Lat[iLat])
		)
		for iLon := 0; iLon < nLon; iLon++ {
			var (
				idx    = iLat*nLon + iLon
				weight = rowWeight(g, iLat, iLon, weightErr)
			)

			if iLat == 0 && tikhovLaplace == 0 {
				// Force the pole-most row to be zonally constant, to
				// damp the constant null space of the Laplacian.
				if lb, w := stencil.Build(g.Lon, iLon, 1, accOrder, g.PeriodicX, lonMasked(iLat)); lb != stencil.FailedLB(nLon) {
					for j, wj := range w {
						iDiff, ok := reduceIdx(lb+j, nLon, g.PeriodicX)
						if !ok {
							continue
						}
						var (
							diffIdx = iLat*nLon + iDiff
							val     = wj * cosLatInv * rInv * weight
						)
						lhs.Add(2*nPts+idx, 1*nPts+diffIdx, val)
						lhs.Add(3*nPts+idx, 0*nPts+diffIdx, val)
					}
				}
				continue
			}
			if isPole || tikhovLaplace <= 0 {
				continue
			}

			// Zonal second derivative.
			if lb, w := stencil.Build(g.Lon, iLon, 2, accOrder, g.PeriodicX, lonMasked(iLat)); lb != stencil.FailedLB(nLon) {
				for j, wj := range w {
					iDiff, ok := reduceIdx(lb+j, nLon, g.PeriodicX)
					if !ok {
						continue
					}
					var (
						diffIdx = iLat*nLon + iDiff
						val     = wj * cos2LatInv * r2Inv * weight * lambda
					)
					lhs.Add(2*nPts+idx, 0*nPts+diffIdx, val)
					lhs.Add(3*nPts+idx, 1*nPts+diffIdx, val)
				}
			}

			// Meridional second derivative.
			if lb, w := stencil.Build(g.Lat, iLat, 2, accOrder, g.PeriodicY, latMasked(iLon)); lb != stencil.FailedLB(nLat) {
				for j, wj := range w {
					iDiff, ok := reduceIdx(lb+j, nLat, g.PeriodicY)
					if !ok {
						continue
					}
					var (
						diffIdx = iDiff*nLon + iLon
						val     = wj * r2Inv * weight * lambda
					)
					lhs.Add(2*nPts+idx, 0*nPts+diffIdx, val)
					lhs.Add(3*nPts+idx, 1*nPts+diffIdx, val)
				}
			}

			// Curvature term of the spherical Laplacian.
			if lb, w := stencil.Build(g.Lat, iLat, 1, accOrder, g.PeriodicY, latMasked(iLon)); lb != stencil.FailedLB(nLat) {
				for j, wj := range w {
					iDiff, ok := reduceIdx(lb+j, nLat, g.PeriodicY)
					if !ok {
						continue
					}
					var (
						diffIdx = iDiff*nLon + iLon
						val     = -wj * tanLat * r2Inv * weight * lambda
					)
					lhs.Add(2*nPts+idx, 0*nPts+diffIdx, val)
					lhs.Add(3*nPts+idx, 1*nPts+diffIdx, val)
				}
			}
		}
	}

	return lhs.ToCSR()
}

// DerivScale is the mean absolute weight of a reference first
// derivative stencil at mid-latitude, used to bring the Laplacian block
// rows to the same order of magnitude as the velocity rows.
func DerivScale(g *geometry.Grid, accOrder int) float64 {
	lb, w := stencil.Build(g.Lat, g.Nlat()/2, 1, accOrder, g.PeriodicY, nil)
	if lb == stencil.FailedLB(g.Nlat()) || len(w) == 0 {
		return 1
	}
	var sum float64
	for _, wj := range w {
		sum += math.Abs(wj)
	}
	return sum / float64(len(w))
}

func rowWeight(g *geometry.Grid, iLat, iLon int, weightErr bool) float64 {
	if !weightErr {
		return 1
	}
	return math.Sqrt(g.Area(iLat, iLon))
}

func reduceIdx(i, n int, periodic bool) (int, bool) {
	if periodic {
		return (i%n + n) % n, true
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
