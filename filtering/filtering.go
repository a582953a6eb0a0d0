// Package filtering drives the coarse-graining pipeline: for every
// requested filter scale it convolves the Helmholtz scalars and the
// velocity quadratics against the geodesic kernel, reconstructs coarse
// velocities, and derives the cascade and transport diagnostics.
package filtering

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/oceansieve/InputParameters"
	"github.com/notargets/oceansieve/diagnostics"
	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/kernel"
	"github.com/notargets/oceansieve/operators"
	"github.com/notargets/oceansieve/parallel"
	"github.com/notargets/oceansieve/utils"
)

// Field is one output array headed for the I/O collaborator. Summary
// fields hold one value per (time, depth) slice instead of the full
// 4-D block.
type Field struct {
	Name    string
	Data    []float64
	Masked  bool
	Summary bool
}

// Emitter receives the per-scale outputs. Implementations live with the
// I/O collaborator, not here.
type Emitter interface {
	EmitScale(scale float64, fields []Field, attrs map[string]float64, attrOrder []string) error
}

// The three velocity decompositions everything is reported for.
const (
	setTor = iota
	setPot
	setTot
	numSets
)

var setNames = [numSets]string{"tor", "pot", "tot"}

type velSet struct {
	uLon, uLat []float64
	uX, uY, uZ []float64
	vortR      []float64
}

func newVelSet(n int) *velSet {
	return &velSet{
		uLon: make([]float64, n), uLat: make([]float64, n),
		uX: make([]float64, n), uY: make([]float64, n), uZ: make([]float64, n),
		vortR: make([]float64, n),
	}
}

// threadScratch is the per-worker state of the filtering loop: the
// local kernel row and the small result buffers.
type threadScratch struct {
	local   []float64
	applier kernel.Applier
	linear  []float64
	quad    kernel.Quadratics
}

// FilterHelmholtz coarse-grains the decomposed flow (fTor, fPot) at
// every scale in ip.FilterScales and emits the per-scale products.
func FilterHelmholtz(g *geometry.Grid, fTor, fPot []float64,
	ip *InputParameters.Parameters, emit Emitter) error {

	shape, err := kernel.ParseShape(ip.KernelType)
	if err != nil {
		return err
	}

	var (
		size  = g.Size()
		nLat  = g.Nlat()
		nLon  = g.Nlon()
		nPts  = g.Npts()
		mask  = g.Mask
		acc   = ip.DiffOrd
		rho0  = ip.Rho0
		fill  = ip.FillValue
		alpha = shape.Alpha()
		zeroR = make([]float64, size)

		sets [numSets]*velSet
	)
	for s := range sets {
		sets[s] = newVelSet(size)
	}

	log.Debug("extracting velocities from the Helmholtz scalars")
	operators.ToroidalVel(sets[setTor].uLon, sets[setTor].uLat, fTor, g, acc, mask)
	operators.PotentialVel(sets[setPot].uLon, sets[setPot].uLat, fPot, g, acc, mask)
	for i := 0; i < size; i++ {
		sets[setTot].uLon[i] = sets[setTor].uLon[i] + sets[setPot].uLon[i]
		sets[setTot].uLat[i] = sets[setTor].uLat[i] + sets[setPot].uLat[i]
	}

	var keOrig [numSets][]float64
	for s := range keOrig {
		keOrig[s] = make([]float64, size)
		uLon, uLat := sets[s].uLon, sets[s].uLat
		for i := 0; i < size; i++ {
			if mask[i] {
				keOrig[s][i] = 0.5 * rho0 * (uLon[i]*uLon[i] + uLat[i]*uLat[i])
			}
		}
	}

	log.Debug("computing unfiltered vorticities and Cartesian components")
	for s := range sets {
		operators.ComputeVorticity(sets[s].vortR, nil, nil, g, zeroR, sets[s].uLon, sets[s].uLat, acc, mask, 0)
		operators.VelSpherToCart(sets[s].uX, sets[s].uY, sets[s].uZ, zeroR, sets[s].uLon, sets[s].uLat, g)
	}

	// Spherical quadratics of the total flow; their coarse versions
	// feed the Helmholtz form of Pi.
	var uuFine, uvFine, vvFine []float64
	if ip.CompPiHelmholtz {
		uuFine = make([]float64, size)
		uvFine = make([]float64, size)
		vvFine = make([]float64, size)
		u, v := sets[setTot].uLon, sets[setTot].uLat
		for i := 0; i < size; i++ {
			if mask[i] {
				uuFine[i] = u[i] * u[i]
				uvFine[i] = u[i] * v[i]
				vvFine[i] = v[i] * v[i]
			}
		}
	}

	// Linear fields run through the kernel together. The Helmholtz
	// scalars exist over land from the projection, so they are
	// filtered without the mask.
	linFields := [][]float64{fPot, fTor}
	linUseMask := []bool{false, false}
	if ip.CompPiHelmholtz {
		linFields = append(linFields, uuFine, uvFine, vvFine)
		linUseMask = append(linUseMask, true, true, true)
	}

	var (
		coarseFTor = make([]float64, size)
		coarseFPot = make([]float64, size)
		uuC, uvC   []float64
		vvC        []float64

		quads  [numSets]*diagnostics.CoarseQuadratics
		keFilt [numSets][]float64

		coarse  [numSets]*velSet
		vortC   [numSets][]float64
		divC    [numSets][]float64
		owC     [numSets][]float64
		pi      [numSets][]float64
		pi2     [numSets][]float64
		zCasc   [numSets][]float64
		divJ    [numSets][]float64
		keC     [numSets][]float64
		keFine  [numSets][]float64
		keFineM [numSets][]float64
		enst    [numSets][]float64
		piHelm  []float64
	)
	for s := 0; s < numSets; s++ {
		quads[s] = diagnostics.NewCoarseQuadratics(size)
		keFilt[s] = make([]float64, size)
		coarse[s] = newVelSet(size)
		vortC[s] = make([]float64, size)
		divC[s] = make([]float64, size)
		owC[s] = make([]float64, size)
		pi[s] = make([]float64, size)
		pi2[s] = make([]float64, size)
		zCasc[s] = make([]float64, size)
		divJ[s] = make([]float64, size)
		keC[s] = make([]float64, size)
		keFine[s] = make([]float64, size)
		keFineM[s] = make([]float64, size)
		enst[s] = make([]float64, size)
	}
	if ip.CompPiHelmholtz {
		uuC = make([]float64, size)
		uvC = make([]float64, size)
		vvC = make([]float64, size)
		piHelm = make([]float64, size)
	}

	var (
		numThreads = parallel.NumThreads()
		scratch    = make([]*threadScratch, numThreads)
	)
	for t := range scratch {
		scratch[t] = &threadScratch{
			local:  make([]float64, nPts),
			linear: make([]float64, len(linFields)),
		}
		scratch[t].applier = kernel.Applier{Grid: g, Local: scratch[t].local}
	}

	log.Infof("preparing to apply %d filters to data with sizes (%d - %d - %d - %d)",
		len(ip.FilterScales), g.Ntime(), g.Ndepth(), nLat, nLon)

	for iScale, scale := range ip.FilterScales {
		log.Infof("scale %d of %d (%.5g km)", iScale+1, len(ip.FilterScales), scale/1.e3)
		var (
			timing   = utils.NewTimingRecords()
			start    = time.Now()
			cached   = kernel.CanCache(g)
			pad      = shape.PadFactor()
			rowsDone int64
		)

		parallel.ForThreads(nLat, 1, numThreads, func(iLat, tid int) {
			defer func() {
				done := atomic.AddInt64(&rowsDone, 1)
				if (20*done)/int64(nLat) != (20*(done-1))/int64(nLat) {
					log.Infof("  filtering: %d%%", 100*done/int64(nLat))
				}
			}()
			var (
				sc           = scratch[tid]
				latLB, latUB = kernel.LatBounds(g, iLat, scale, pad)
			)
			sc.applier.LatLB, sc.applier.LatUB = latLB, latUB

			// On a uniform periodic full-span grid the kernel only
			// depends on the longitude offset: compute it once per
			// latitude row and translate.
			if cached {
				t0 := time.Now()
				zero(sc.local)
				kernel.Compute(sc.local, g, shape, scale, iLat, 0, latLB, latUB)
				sc.applier.CenterLon = 0
				timing.AddToRecord(time.Since(t0), "kernel_precomputation_outer")
			}

			for iLon := 0; iLon < nLon; iLon++ {
				if !cached {
					t0 := time.Now()
					zero(sc.local)
					kernel.Compute(sc.local, g, shape, scale, iLat, iLon, latLB, latUB)
					sc.applier.CenterLon = iLon
					timing.AddToRecord(time.Since(t0), "kernel_precomputation_inner")
				}

				for iTime := 0; iTime < g.Ntime(); iTime++ {
					for iDepth := 0; iDepth < g.Ndepth(); iDepth++ {
						idx := g.Index(iTime, iDepth, iLat, iLon)

						sc.applier.At(sc.linear, linFields, linUseMask, iTime, iDepth, iLat, iLon)
						coarseFPot[idx] = sc.linear[0]
						coarseFTor[idx] = sc.linear[1]
						if ip.CompPiHelmholtz {
							uuC[idx] = sc.linear[2]
							uvC[idx] = sc.linear[3]
							vvC[idx] = sc.linear[4]
						}

						// Quadratics only make sense on water.
						if !mask[idx] {
							continue
						}
						for s := 0; s < numSets; s++ {
							sc.applier.AtQuadratics(&sc.quad, sets[s].uX, sets[s].uY, sets[s].uZ,
								sets[s].vortR, iTime, iDepth, iLat, iLon)
							quads[s].SetAt(idx, &sc.quad)
							keFilt[s][idx] = 0.5 * rho0 * (sc.quad.UxUx + sc.quad.UyUy + sc.quad.UzUz)
						}
					}
				}
			}
		})
		timing.AddToRecord(time.Since(start), "filtering_loop")

		// Coarse velocities come from the coarse scalars, the same way
		// the fine ones did.
		operators.ToroidalVel(coarse[setTor].uLon, coarse[setTor].uLat, coarseFTor, g, acc, mask)
		operators.PotentialVel(coarse[setPot].uLon, coarse[setPot].uLat, coarseFPot, g, acc, mask)
		for i := 0; i < size; i++ {
			if mask[i] {
				coarse[setTot].uLon[i] = coarse[setTor].uLon[i] + coarse[setPot].uLon[i]
				coarse[setTot].uLat[i] = coarse[setTor].uLat[i] + coarse[setPot].uLat[i]
			}
		}

		t0 := time.Now()
		for s := 0; s < numSets; s++ {
			operators.ComputeVorticity(vortC[s], divC[s], owC[s], g, zeroR,
				coarse[s].uLon, coarse[s].uLat, acc, mask, fill)
		}
		timing.AddToRecord(time.Since(t0), "compute_vorticity")

		t0 = time.Now()
		for s := 0; s < numSets; s++ {
			operators.VelSpherToCart(coarse[s].uX, coarse[s].uY, coarse[s].uZ, zeroR,
				coarse[s].uLon, coarse[s].uLat, g)
			diagnostics.ComputePi(pi[s], g, coarse[s].uX, coarse[s].uY, coarse[s].uZ,
				quads[s], rho0, acc, mask, fill)
			diagnostics.ComputePiShiftDeriv(pi2[s], g, coarse[s].uX, coarse[s].uY, coarse[s].uZ,
				quads[s], rho0, acc, mask, fill)
			diagnostics.ComputeZ(zCasc[s], g, coarse[s].uX, coarse[s].uY, coarse[s].uZ, vortC[s],
				quads[s], rho0, acc, mask, fill)
			diagnostics.ComputeDivTransport(divJ[s], g, coarse[s].uX, coarse[s].uY, coarse[s].uZ,
				quads[s], rho0, acc, mask, fill)
		}
		if ip.CompPiHelmholtz {
			diagnostics.ComputePiHelmholtz(piHelm, g, coarse[setTot].uLon, coarse[setTot].uLat,
				uuC, uvC, vvC, rho0, acc, mask, fill)
		}
		timing.AddToRecord(time.Since(t0), "compute_Pi_and_Z")

		chunk := parallel.ChunkSize(nLat, nLon, numThreads)
		parallel.For(size, chunk, func(i int) {
			if !mask[i] {
				return
			}
			for s := 0; s < numSets; s++ {
				var (
					u = coarse[s].uLon[i]
					v = coarse[s].uLat[i]
					w = vortC[s][i]
				)
				keC[s][i] = 0.5 * rho0 * (u*u + v*v)
				keFine[s][i] = keFilt[s][i] - keC[s][i]
				keFineM[s][i] = keOrig[s][i] - keC[s][i]
				enst[s][i] = 0.5 * rho0 * w * w
			}
		})

		fields := outputFields(ip, g, coarseFTor, coarseFPot, uuC, uvC, vvC, piHelm,
			coarse, vortC, divC, owC, pi, pi2, zCasc, divJ, keFilt, keC, keFine, keFineM, enst)
		attrs := map[string]float64{
			"kernel_alpha": alpha,
			"filter_scale": scale,
		}
		if err := emit.EmitScale(scale, fields, attrs, []string{"filter_scale", "kernel_alpha"}); err != nil {
			return err
		}

		log.Debugf("timing for scale %.5g km:\n%s", scale/1.e3, timing)
	}
	return nil
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
