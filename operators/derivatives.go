// Package operators implements the differential operators on the
// spherical shell: pointwise derivatives along the coordinate axes,
// vorticity / divergence / Okubo-Weiss, velocities from the Helmholtz
// potentials, and the spherical <-> Cartesian velocity rotations.
package operators

import (
	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/stencil"
)

type Axis uint8

const (
	AxisLon Axis = iota
	AxisLat
)

// DerivAtPoint evaluates the derivOrder-th derivative of each field in
// fields along the given axis at one grid point, writing one value per
// field into out. The same stencil is applied to every field so the
// index arithmetic is paid once. Returns false (and zeroes out) when no
// stencil could be built.
func DerivAtPoint(out []float64, fields [][]float64, g *geometry.Grid, axis Axis,
	derivOrder, accOrder, iTime, iDepth, iLat, iLon int, mask []bool) bool {
	return derivAtPoint(out, fields, g, axis, derivOrder, accOrder, iTime, iDepth, iLat, iLon, mask, false)
}

func derivAtPoint(out []float64, fields [][]float64, g *geometry.Grid, axis Axis,
	derivOrder, accOrder, iTime, iDepth, iLat, iLon int, mask []bool, oneSided bool) bool {

	for k := range out {
		out[k] = 0
	}

	var (
		axisVals []float64
		periodic bool
		center   int
	)
	switch axis {
	case AxisLon:
		axisVals, periodic, center = g.Lon, g.PeriodicX, iLon
	case AxisLat:
		axisVals, periodic, center = g.Lat, g.PeriodicY, iLat
	}
	n := len(axisVals)

	var masked stencil.Masked
	if mask != nil {
		masked = func(i int) bool {
			idx, ok := reduceIndex(i, n, periodic)
			if !ok {
				return true
			}
			if axis == AxisLon {
				return !mask[g.Index(iTime, iDepth, iLat, idx)]
			}
			return !mask[g.Index(iTime, iDepth, idx, iLon)]
		}
	}

	var (
		lb int
		w  []float64
	)
	if oneSided {
		lb, w = stencil.BuildOneSided(axisVals, center, derivOrder, accOrder, periodic, masked)
	} else {
		lb, w = stencil.Build(axisVals, center, derivOrder, accOrder, periodic, masked)
	}
	if lb == stencil.FailedLB(n) {
		return false
	}

	for j, wj := range w {
		idx, ok := reduceIndex(lb+j, n, periodic)
		if !ok {
			return false
		}
		var flat int
		if axis == AxisLon {
			flat = g.Index(iTime, iDepth, iLat, idx)
		} else {
			flat = g.Index(iTime, iDepth, idx, iLon)
		}
		for k, f := range fields {
			out[k] += wj * f[flat]
		}
	}
	return true
}

// reduceIndex maps a signed stencil offset onto the axis: modular
// wrap when periodic, in-range check otherwise.
func reduceIndex(i, n int, periodic bool) (int, bool) {
	if periodic {
		return (i%n + n) % n, true
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// CartDerivAtPoint converts lon/lat derivatives of each field into
// Cartesian x/y/z derivatives on the shell surface (the radial
// derivative is not available and is treated as zero).
func CartDerivAtPoint(dx, dy, dz []float64, fields [][]float64, g *geometry.Grid,
	accOrder, iTime, iDepth, iLat, iLon int, mask []bool) bool {
	return cartDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask, false)
}

// CartShiftDerivAtPoint is CartDerivAtPoint with fully one-sided
// stencils, for the shifted-derivative cascade variant.
func CartShiftDerivAtPoint(dx, dy, dz []float64, fields [][]float64, g *geometry.Grid,
	accOrder, iTime, iDepth, iLat, iLon int, mask []bool) bool {
	return cartDerivAtPoint(dx, dy, dz, fields, g, accOrder, iTime, iDepth, iLat, iLon, mask, true)
}

func cartDerivAtPoint(dx, dy, dz []float64, fields [][]float64, g *geometry.Grid,
	accOrder, iTime, iDepth, iLat, iLon int, mask []bool, shifted bool) bool {

	var (
		nf   = len(fields)
		dLon = make([]float64, nf)
		dLat = make([]float64, nf)
	)
	okLon := derivAtPoint(dLon, fields, g, AxisLon, 1, accOrder, iTime, iDepth, iLat, iLon, mask, shifted)
	okLat := derivAtPoint(dLat, fields, g, AxisLat, 1, accOrder, iTime, iDepth, iLat, iLon, mask, shifted)
	if !okLon || !okLat {
		for k := 0; k < nf; k++ {
			dx[k], dy[k], dz[k] = 0, 0, 0
		}
		return false
	}

	var (
		lat    = g.Lat[iLat]
		lon    = g.Lon[iLon]
		sinLon = sin(lon)
		cosLon = cos(lon)
		sinLat = sin(lat)
		cosLat = cos(lat)
		rInv   = 1. / g.R
	)
	// dlon/dx etc. from the inverse coordinate map at fixed radius.
	var (
		lonX = -sinLon / cosLat * rInv
		lonY = cosLon / cosLat * rInv
		latX = -cosLon * sinLat * rInv
		latY = -sinLon * sinLat * rInv
		latZ = cosLat * rInv
	)
	for k := 0; k < nf; k++ {
		dx[k] = dLon[k]*lonX + dLat[k]*latX
		dy[k] = dLon[k]*lonY + dLat[k]*latY
		dz[k] = dLat[k] * latZ
	}
	return true
}
