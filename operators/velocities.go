package operators

import (
	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/parallel"
)

// ToroidalVel recovers (uLon, uLat) = z-hat x grad_s(Psi):
//
//	u_lon = -(1/R) dPsi/dlat
//	u_lat =  (1/(R cos lat)) dPsi/dlon
func ToroidalVel(uLon, uLat []float64, psi []float64, g *geometry.Grid, accOrder int, mask []bool) {
	velFromScalar(uLon, uLat, psi, g, accOrder, mask, true)
}

// PotentialVel recovers (uLon, uLat) = grad_s(Phi):
//
//	u_lon = (1/(R cos lat)) dPhi/dlon
//	u_lat = (1/R) dPhi/dlat
func PotentialVel(uLon, uLat []float64, phi []float64, g *geometry.Grid, accOrder int, mask []bool) {
	velFromScalar(uLon, uLat, phi, g, accOrder, mask, false)
}

func velFromScalar(uLon, uLat, f []float64, g *geometry.Grid, accOrder int, mask []bool, toroidal bool) {
	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nTime  = g.Ntime()
		nDepth = g.Ndepth()
		chunk  = parallel.ChunkSize(nLat, nLon, parallel.NumThreads())
	)
	parallel.For(nLat*nLon, chunk, func(pt int) {
		var (
			iLat, iLon = pt / nLon, pt % nLon
			fields     = [][]float64{f}
			dLon       = make([]float64, 1)
			dLat       = make([]float64, 1)
			cosLat     = cos(g.Lat[iLat])
			pole       = geometry.IsPoleRow(g.Lat[iLat])
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if pole {
					// The metric blows up; leave the potentials alone here.
					uLon[idx], uLat[idx] = 0, 0
					continue
				}
				DerivAtPoint(dLon, fields, g, AxisLon, 1, accOrder, iTime, iDepth, iLat, iLon, mask)
				DerivAtPoint(dLat, fields, g, AxisLat, 1, accOrder, iTime, iDepth, iLat, iLon, mask)
				if toroidal {
					uLon[idx] = -dLat[0] / g.R
					uLat[idx] = dLon[0] / (g.R * cosLat)
				} else {
					uLon[idx] = dLon[0] / (g.R * cosLat)
					uLat[idx] = dLat[0] / g.R
				}
			}
		}
	})
}

// VelSpherToCart rotates local (uR, uLon, uLat) components into global
// Cartesian (uX, uY, uZ).
func VelSpherToCart(uX, uY, uZ []float64, uR, uLon, uLat []float64, g *geometry.Grid) {
	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nTime  = g.Ntime()
		nDepth = g.Ndepth()
		chunk  = parallel.ChunkSize(nLat, nLon, parallel.NumThreads())
	)
	parallel.For(nLat*nLon, chunk, func(pt int) {
		var (
			iLat, iLon     = pt / nLon, pt % nLon
			sinLon, cosLon = sin(g.Lon[iLon]), cos(g.Lon[iLon])
			sinLat, cosLat = sin(g.Lat[iLat]), cos(g.Lat[iLat])
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				r, lo, la := uR[idx], uLon[idx], uLat[idx]
				uX[idx] = r*cosLat*cosLon - lo*sinLon - la*sinLat*cosLon
				uY[idx] = r*cosLat*sinLon + lo*cosLon - la*sinLat*sinLon
				uZ[idx] = r*sinLat + la*cosLat
			}
		}
	})
}

// VelCartToSpher is the inverse rotation of VelSpherToCart.
func VelCartToSpher(uR, uLon, uLat []float64, uX, uY, uZ []float64, g *geometry.Grid) {
	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nTime  = g.Ntime()
		nDepth = g.Ndepth()
		chunk  = parallel.ChunkSize(nLat, nLon, parallel.NumThreads())
	)
	parallel.For(nLat*nLon, chunk, func(pt int) {
		var (
			iLat, iLon     = pt / nLon, pt % nLon
			sinLon, cosLon = sin(g.Lon[iLon]), cos(g.Lon[iLon])
			sinLat, cosLat = sin(g.Lat[iLat]), cos(g.Lat[iLat])
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				x, y, z := uX[idx], uY[idx], uZ[idx]
				uR[idx] = x*cosLat*cosLon + y*cosLat*sinLon + z*sinLat
				uLon[idx] = -x*sinLon + y*cosLon
				uLat[idx] = -x*sinLat*cosLon - y*sinLat*sinLon + z*cosLat
			}
		}
	})
}
