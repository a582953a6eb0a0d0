package operators

import (
	"math"

	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/parallel"
)

func sin(x float64) float64 { return math.Sin(x) }
func cos(x float64) float64 { return math.Cos(x) }

// VorticityAtPoint computes the radial vorticity, horizontal
// divergence, and Okubo-Weiss parameter of (uR, uLon, uLat) at one
// point. Since the derivatives are shared, all three come out of a
// single stencil pass.
func VorticityAtPoint(g *geometry.Grid, uR, uLon, uLat []float64,
	accOrder, iTime, iDepth, iLat, iLon int, mask []bool) (vortR, div, okuboWeiss float64) {

	var (
		fields  = [][]float64{uLon, uLat, uR}
		dLon    = make([]float64, 3)
		dLat    = make([]float64, 3)
		idx     = g.Index(iTime, iDepth, iLat, iLon)
		lat     = g.Lat[iLat]
		cosLat  = cos(lat)
		tanLat  = math.Tan(lat)
		rInv    = 1. / g.R
		uLonLoc = uLon[idx]
		uLatLoc = uLat[idx]
		uRLoc   = uR[idx]
	)
	DerivAtPoint(dLon, fields, g, AxisLon, 1, accOrder, iTime, iDepth, iLat, iLon, mask)
	DerivAtPoint(dLat, fields, g, AxisLat, 1, accOrder, iTime, iDepth, iLat, iLon, mask)

	var (
		uLonDlon, uLatDlon = dLon[0], dLon[1]
		uLonDlat, uLatDlat = dLat[0], dLat[1]
	)

	vortR = (uLatDlon/cosLat - uLonDlat + tanLat*uLonLoc) * rInv

	div = 2.*uRLoc*rInv +
		uLonDlon/(g.R*cosLat) +
		uLatDlat*rInv -
		uLatLoc*tanLat*rInv

	sn := (cosLat*uLonDlon - uLatDlat) * rInv
	ss := (cosLat*uLatDlon + uLonDlat) * rInv
	okuboWeiss = sn*sn + ss*ss - vortR*vortR
	return
}

// ComputeVorticity fills vortR, div and okuboWeiss (any of which may be
// nil) over the whole 4-D block. Land points receive fillValue.
func ComputeVorticity(vortR, div, okuboWeiss []float64, g *geometry.Grid,
	uR, uLon, uLat []float64, accOrder int, mask []bool, fillValue float64) {

	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nTime  = g.Ntime()
		nDepth = g.Ndepth()
		chunk  = parallel.ChunkSize(nLat, nLon, parallel.NumThreads())
	)
	parallel.For(nLat*nLon, chunk, func(pt int) {
		iLat, iLon := pt/nLon, pt%nLon
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if mask != nil && !mask[idx] {
					if vortR != nil {
						vortR[idx] = fillValue
					}
					if div != nil {
						div[idx] = fillValue
					}
					if okuboWeiss != nil {
						okuboWeiss[idx] = fillValue
					}
					continue
				}
				v, d, ow := VorticityAtPoint(g, uR, uLon, uLat, accOrder, iTime, iDepth, iLat, iLon, mask)
				if vortR != nil {
					vortR[idx] = v
				}
				if div != nil {
					div[idx] = d
				}
				if okuboWeiss != nil {
					okuboWeiss[idx] = ow
				}
			}
		}
	})
}
