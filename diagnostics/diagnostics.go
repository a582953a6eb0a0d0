// Package diagnostics computes the scale-transfer quantities that feed
// off the coarse-grained fields: the energy cascade Pi (and its
// shifted-derivative variant Pi2), the enstrophy cascade Z, the energy
// transport divergence, and the kinetic-energy bookkeeping.
package diagnostics

import (
	"math"

	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/kernel"
	"github.com/notargets/oceansieve/operators"
	"github.com/notargets/oceansieve/parallel"
)

// CoarseQuadratics holds the filtered Cartesian products over the full
// 4-D block, one slice per symmetric tensor component plus the
// vorticity-velocity products.
type CoarseQuadratics struct {
	UxUx, UxUy, UxUz []float64
	UyUy, UyUz       []float64
	UzUz             []float64
	VortUx           []float64
	VortUy           []float64
	VortUz           []float64
}

func NewCoarseQuadratics(n int) *CoarseQuadratics {
	return &CoarseQuadratics{
		UxUx: make([]float64, n), UxUy: make([]float64, n), UxUz: make([]float64, n),
		UyUy: make([]float64, n), UyUz: make([]float64, n), UzUz: make([]float64, n),
		VortUx: make([]float64, n), VortUy: make([]float64, n), VortUz: make([]float64, n),
	}
}

func (q *CoarseQuadratics) SetAt(idx int, v *kernel.Quadratics) {
	q.UxUx[idx] = v.UxUx
	q.UxUy[idx] = v.UxUy
	q.UxUz[idx] = v.UxUz
	q.UyUy[idx] = v.UyUy
	q.UyUz[idx] = v.UyUz
	q.UzUz[idx] = v.UzUz
	q.VortUx[idx] = v.VortUx
	q.VortUy[idx] = v.VortUy
	q.VortUz[idx] = v.VortUz
}

// ComputePi evaluates the energy cascade
//
//	Pi = -rho0 * tau_ij * d_j(ubar_i),  tau_ij = bar(ui uj) - ubar_i ubar_j
//
// with the velocity gradients taken in Cartesian components so no
// metric terms appear inside the contraction. Land points get
// fillValue.
func ComputePi(pi []float64, g *geometry.Grid, uXc, uYc, uZc []float64,
	quad *CoarseQuadratics, rho0 float64, accOrder int, mask []bool, fillValue float64) {

	computePi(pi, g, uXc, uYc, uZc, quad, rho0, accOrder, mask, fillValue, false)
}

// ComputePiShiftDeriv is the Pi2 variant: identical contraction, but
// the velocity gradients come from fully one-sided stencils so the
// derivative support is shifted off the filter center.
func ComputePiShiftDeriv(pi []float64, g *geometry.Grid, uXc, uYc, uZc []float64,
	quad *CoarseQuadratics, rho0 float64, accOrder int, mask []bool, fillValue float64) {

	computePi(pi, g, uXc, uYc, uZc, quad, rho0, accOrder, mask, fillValue, true)
}

func computePi(pi []float64, g *geometry.Grid, uXc, uYc, uZc []float64,
	quad *CoarseQuadratics, rho0 float64, accOrder int, mask []bool, fillValue float64, shifted bool) {

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
			fields     = [][]float64{uXc, uYc, uZc}
			dx         = make([]float64, 3)
			dy         = make([]float64, 3)
			dz         = make([]float64, 3)
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if mask != nil && !mask[idx] {
					pi[idx] = fillValue
					continue
				}
				var ok bool
				if shifted {
					ok = operators.CartShiftDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask)
				} else {
					ok = operators.CartDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask)
				}
				if !ok {
					pi[idx] = 0
					continue
				}
				var (
					ux, uy, uz = uXc[idx], uYc[idx], uZc[idx]
					txx        = quad.UxUx[idx] - ux*ux
					txy        = quad.UxUy[idx] - ux*uy
					txz        = quad.UxUz[idx] - ux*uz
					tyy        = quad.UyUy[idx] - uy*uy
					tyz        = quad.UyUz[idx] - uy*uz
					tzz        = quad.UzUz[idx] - uz*uz
				)
				pi[idx] = -rho0 * (txx*dx[0] + txy*(dy[0]+dx[1]) + txz*(dz[0]+dx[2]) +
					tyy*dy[1] + tyz*(dz[1]+dy[2]) + tzz*dz[2])
			}
		}
	})
}

// ComputeZ evaluates the enstrophy cascade: the vorticity analogue of
// Pi, contracting the sub-filter vorticity flux against the gradient of
// the coarse vorticity.
func ComputeZ(z []float64, g *geometry.Grid, uXc, uYc, uZc, vortC []float64,
	quad *CoarseQuadratics, rho0 float64, accOrder int, mask []bool, fillValue float64) {

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
			fields     = [][]float64{vortC}
			dx         = make([]float64, 1)
			dy         = make([]float64, 1)
			dz         = make([]float64, 1)
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if mask != nil && !mask[idx] {
					z[idx] = fillValue
					continue
				}
				if !operators.CartDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask) {
					z[idx] = 0
					continue
				}
				var (
					w  = vortC[idx]
					tx = quad.VortUx[idx] - w*uXc[idx]
					ty = quad.VortUy[idx] - w*uYc[idx]
					tz = quad.VortUz[idx] - w*uZc[idx]
				)
				z[idx] = -rho0 * (tx*dx[0] + ty*dy[0] + tz*dz[0])
			}
		}
	})
}

// ComputeDivTransport evaluates the divergence of the coarse
// kinetic-energy flux
//
//	J_j = rho0 * ( 0.5 |ubar|^2 ubar_j + ubar_i tau_ij )
//
// i.e. transport of coarse KE by the coarse flow plus the sub-filter
// flux.
func ComputeDivTransport(divJ []float64, g *geometry.Grid, uXc, uYc, uZc []float64,
	quad *CoarseQuadratics, rho0 float64, accOrder int, mask []bool, fillValue float64) {

	var (
		size = g.Size()
		jx   = make([]float64, size)
		jy   = make([]float64, size)
		jz   = make([]float64, size)
	)
	chunk := parallel.ChunkSize(g.Nlat(), g.Nlon(), parallel.NumThreads())
	parallel.For(size, chunk, func(idx int) {
		if mask != nil && !mask[idx] {
			return
		}
		var (
			ux, uy, uz = uXc[idx], uYc[idx], uZc[idx]
			ke         = 0.5 * (ux*ux + uy*uy + uz*uz)
			txx        = quad.UxUx[idx] - ux*ux
			txy        = quad.UxUy[idx] - ux*uy
			txz        = quad.UxUz[idx] - ux*uz
			tyy        = quad.UyUy[idx] - uy*uy
			tyz        = quad.UyUz[idx] - uy*uz
			tzz        = quad.UzUz[idx] - uz*uz
		)
		jx[idx] = rho0 * (ke*ux + ux*txx + uy*txy + uz*txz)
		jy[idx] = rho0 * (ke*uy + ux*txy + uy*tyy + uz*tyz)
		jz[idx] = rho0 * (ke*uz + ux*txz + uy*tyz + uz*tzz)
	})

	var (
		nLat   = g.Nlat()
		nLon   = g.Nlon()
		nTime  = g.Ntime()
		nDepth = g.Ndepth()
	)
	parallel.For(nLat*nLon, parallel.ChunkSize(nLat, nLon, parallel.NumThreads()), func(pt int) {
		var (
			iLat, iLon = pt / nLon, pt % nLon
			fields     = [][]float64{jx, jy, jz}
			dx         = make([]float64, 3)
			dy         = make([]float64, 3)
			dz         = make([]float64, 3)
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if mask != nil && !mask[idx] {
					divJ[idx] = fillValue
					continue
				}
				if !operators.CartDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask) {
					divJ[idx] = 0
					continue
				}
				divJ[idx] = dx[0] + dy[1] + dz[2]
			}
		}
	})
}

// ComputePiHelmholtz contracts the coarse spherical quadratics against
// the coarse velocity-gradient tensor in (lon, lat) components.
func ComputePiHelmholtz(pi []float64, g *geometry.Grid, uLonC, uLatC []float64,
	uu, uv, vv []float64, rho0 float64, accOrder int, mask []bool, fillValue float64) {

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
			fields     = [][]float64{uLonC, uLatC}
			dLon       = make([]float64, 2)
			dLat       = make([]float64, 2)
		)
		for iTime := 0; iTime < nTime; iTime++ {
			for iDepth := 0; iDepth < nDepth; iDepth++ {
				idx := g.Index(iTime, iDepth, iLat, iLon)
				if mask != nil && !mask[idx] {
					pi[idx] = fillValue
					continue
				}
				okLon := operators.DerivAtPoint(dLon, fields, g, operators.AxisLon, 1, accOrder, iTime, iDepth, iLat, iLon, mask)
				okLat := operators.DerivAtPoint(dLat, fields, g, operators.AxisLat, 1, accOrder, iTime, iDepth, iLat, iLon, mask)
				if !okLon || !okLat {
					pi[idx] = 0
					continue
				}
				var (
					lat   = g.Lat[iLat]
					secR  = 1. / (g.R * math.Cos(lat))
					tanR  = math.Tan(lat) / g.R
					u, v  = uLonC[idx], uLatC[idx]
					a11   = dLon[0]*secR - v*tanR
					a12   = dLon[1]*secR + u*tanR
					a21   = dLat[0] / g.R
					a22   = dLat[1] / g.R
					tauUU = uu[idx] - u*u
					tauUV = uv[idx] - u*v
					tauVV = vv[idx] - v*v
				)
				pi[idx] = -rho0 * (tauUU*a11 + tauUV*(a12+a21) + tauVV*a22)
			}
		}
	})
}
