package helmholtz

import (
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/operators"
	"github.com/notargets/oceansieve/parallel"
)

// velSanityLimit flags corrupt input: no oceanic velocity is anywhere
// near 30 km/s.
const velSanityLimit = 30000.

type Options struct {
	RelTol        float64
	MaxIters      int
	UseMask       bool
	WeightErr     bool
	TikhovLaplace float64
	AccOrder      int
}

// Seed carries the starting iterate. When Single is true Psi/Phi hold
// one slice (Nlat*Nlon) reused everywhere and refreshed from each
// solved slice; otherwise they hold per-slice values in the full 4-D
// layout.
type Seed struct {
	Psi, Phi []float64
	Single   bool
}

// ZeroSeed is the "--seed_file zero" starting point.
func ZeroSeed(nPts int) Seed {
	return Seed{
		Psi:    make([]float64, nPts),
		Phi:    make([]float64, nPts),
		Single: true,
	}
}

// TermCounts tracks LSQR termination causes across all slices.
type TermCounts struct {
	AbsTol   int
	RelTol   int
	MaxIter  int
	Rounding int
	Other    int
}

func (tc *TermCounts) add(t Termination) {
	switch t {
	case TermAbsTol:
		tc.AbsTol++
	case TermRelTol:
		tc.RelTol++
	case TermMaxIter:
		tc.MaxIter++
	case TermRounding:
		tc.Rounding++
	default:
		tc.Other++
	}
}

// Report holds the per-(time, depth) error summary, each array of
// length Ntime*Ndepth.
type Report struct {
	TotalArea          []float64
	Projection2Error   []float64
	ProjectionInfError []float64
	Velocity2Norm      []float64
	VelocityInfNorm    []float64
	ProjectionKE       []float64
	ToroidalKE         []float64
	PotentialKE        []float64
}

type Results struct {
	Psi, Phi           []float64
	ULonTor, ULatTor   []float64
	ULonPot, ULatPot   []float64
	Terminations       TermCounts
	Report             Report
	DerivScale         float64
	IterationsBySlice  []int
}

// Project runs the Helmholtz decomposition over every (time, depth)
// slice owned by the decomposition. uLon and uLat are modified in
// place by the input cleaning pass (land and corrupt values zeroed).
func Project(g *geometry.Grid, uLon, uLat []float64, seed Seed, opts Options,
	dec *parallel.Decomposition) *Results {

	var (
		nPts    = g.Npts()
		nSlices = g.Ntime() * g.Ndepth()
		size    = g.Size()
	)

	cleanVelocities(g, uLon, uLat)

	res := &Results{
		Psi:               make([]float64, size),
		Phi:               make([]float64, size),
		ULonTor:           make([]float64, size),
		ULatTor:           make([]float64, size),
		ULonPot:           make([]float64, size),
		ULatPot:           make([]float64, size),
		IterationsBySlice: make([]int, nSlices),
	}

	// The operator depends only on geometry and the first slice's
	// mask, so one build is amortised over every slice.
	var (
		gRef      = g.Slice(0, 0)
		sliceMask []bool
	)
	if opts.UseMask {
		sliceMask = gRef.Mask
	}
	res.DerivScale = DerivScale(g, opts.AccOrder)
	log.Debugf("deriv_scale_factor = %g", res.DerivScale)

	log.Debug("building the LHS of the least squares problem")
	lhs := BuildOperator(gRef, opts.AccOrder, sliceMask, opts.WeightErr, opts.TikhovLaplace, res.DerivScale)

	var mu sync.Mutex // guards Terminations across ranks

	dec.EachRank(func(rank, t0, t1, d0, d1 int) {
		var (
			psiSeed    = make([]float64, nPts)
			phiSeed    = make([]float64, nPts)
			uLonRem    = make([]float64, nPts)
			uLatRem    = make([]float64, nPts)
			uLonSeedT  = make([]float64, nPts)
			uLatSeedT  = make([]float64, nPts)
			uLonSeedP  = make([]float64, nPts)
			uLatSeedP  = make([]float64, nPts)
			vortTerm   = make([]float64, nPts)
			divTerm    = make([]float64, nPts)
			zeroR      = make([]float64, nPts)
			rhs        = make([]float64, 4*nPts)
			localCount TermCounts
		)
		if seed.Single {
			copy(psiSeed, seed.Psi)
			copy(phiSeed, seed.Phi)
		}

		for iTime := t0; iTime < t1; iTime++ {
			for iDepth := d0; iDepth < d1; iDepth++ {
				var (
					gSub  = g.Slice(iTime, iDepth)
					base  = g.Index(iTime, iDepth, 0, 0)
					slice = iTime*g.Ndepth() + iDepth
					eMask []bool
				)
				if opts.UseMask {
					eMask = gSub.Mask
				}

				if !seed.Single {
					copy(psiSeed, seed.Psi[base:base+nPts])
					copy(phiSeed, seed.Phi[base:base+nPts])
				}

				// Velocity of the seed; the solve is for the residual.
				operators.ToroidalVel(uLonSeedT, uLatSeedT, psiSeed, gSub, opts.AccOrder, eMask)
				operators.PotentialVel(uLonSeedP, uLatSeedP, phiSeed, gSub, opts.AccOrder, eMask)
				for p := 0; p < nPts; p++ {
					uLonRem[p] = uLon[base+p] - uLonSeedT[p] - uLonSeedP[p]
					uLatRem[p] = uLat[base+p] - uLatSeedT[p] - uLatSeedP[p]
				}

				operators.ComputeVorticity(vortTerm, divTerm, nil, gSub, zeroR, uLonRem, uLatRem,
					opts.AccOrder, eMask, 0)

				buildRHS(rhs, gSub, uLonRem, uLatRem, vortTerm, divTerm, opts, res.DerivScale)

				x, term, itn := LSQR(lhs, rhs, opts.RelTol, opts.RelTol, opts.MaxIters)
				localCount.add(term)
				res.IterationsBySlice[slice] = itn
				if term == TermMaxIter {
					log.Warnf("rank %d: slice (%d,%d) hit the LSQR iteration cap (%d)", rank, iTime, iDepth, itn)
				} else {
					log.Debugf("rank %d: slice (%d,%d) done after %d iterations: %s", rank, iTime, iDepth, itn, term)
				}

				for p := 0; p < nPts; p++ {
					psiSeed[p] += x[p]
					phiSeed[p] += x[nPts+p]
					res.Psi[base+p] = psiSeed[p]
					res.Phi[base+p] = phiSeed[p]
				}

				// Velocities of the solved potentials, stored full-size.
				operators.ToroidalVel(uLonSeedT, uLatSeedT, psiSeed, gSub, opts.AccOrder, eMask)
				operators.PotentialVel(uLonSeedP, uLatSeedP, phiSeed, gSub, opts.AccOrder, eMask)
				for p := 0; p < nPts; p++ {
					res.ULonTor[base+p] = uLonSeedT[p]
					res.ULatTor[base+p] = uLatSeedT[p]
					res.ULonPot[base+p] = uLonSeedP[p]
					res.ULatPot[base+p] = uLatSeedP[p]
				}
				// With a single global seed the solution carries
				// forward as the next slice's starting point; psiSeed
				// already holds it. Per-slice seeds reload each pass.
			}
		}
		mu.Lock()
		res.Terminations.AbsTol += localCount.AbsTol
		res.Terminations.RelTol += localCount.RelTol
		res.Terminations.MaxIter += localCount.MaxIter
		res.Terminations.Rounding += localCount.Rounding
		res.Terminations.Other += localCount.Other
		mu.Unlock()
	})

	log.Infof("termination counts: %d from absolute tolerance", res.Terminations.AbsTol)
	log.Infof("                    %d from relative tolerance", res.Terminations.RelTol)
	log.Infof("                    %d from iteration maximum", res.Terminations.MaxIter)
	log.Infof("                    %d from rounding errors", res.Terminations.Rounding)
	log.Infof("                    %d from other causes", res.Terminations.Other)

	res.Report = computeReport(g, uLon, uLat, res, dec)
	return res
}

func cleanVelocities(g *geometry.Grid, uLon, uLat []float64) {
	chunk := parallel.ChunkSize(g.Nlat(), g.Nlon(), parallel.NumThreads())
	parallel.For(g.Size(), chunk, func(i int) {
		switch {
		case !g.Mask[i]:
			uLon[i], uLat[i] = 0, 0
		case math.Abs(uLon[i]) > velSanityLimit || math.Abs(uLat[i]) > velSanityLimit ||
			math.IsNaN(uLon[i]) || math.IsNaN(uLat[i]):
			log.Warnf("bad velocity point at index %d, setting to zero", i)
			uLon[i], uLat[i] = 0, 0
		}
	})
}

func buildRHS(rhs []float64, gSub *geometry.Grid, uLonRem, uLatRem, vortTerm, divTerm []float64,
	opts Options, derivScale float64) {

	var (
		nLon = gSub.Nlon()
		nPts = gSub.Npts()
	)
	for iLat := 0; iLat < gSub.Nlat(); iLat++ {
		isPole := geometry.IsPoleRow(gSub.Lat[iLat])
		for iLon := 0; iLon < nLon; iLon++ {
			idx := iLat*nLon + iLon
			rhs[0*nPts+idx] = uLonRem[idx]
			rhs[1*nPts+idx] = uLatRem[idx]
			if iLat == 0 || isPole {
				rhs[2*nPts+idx] = 0
				rhs[3*nPts+idx] = 0
			} else {
				rhs[2*nPts+idx] = vortTerm[idx] * opts.TikhovLaplace / derivScale
				rhs[3*nPts+idx] = divTerm[idx] * opts.TikhovLaplace / derivScale
			}
			if opts.WeightErr {
				w := math.Sqrt(gSub.Area(iLat, iLon))
				rhs[0*nPts+idx] *= w
				rhs[1*nPts+idx] *= w
				rhs[2*nPts+idx] *= w
				rhs[3*nPts+idx] *= w
			}
		}
	}
}

// computeReport derives the per-slice L2 / Linf errors and KE norms of
// the projection.
func computeReport(g *geometry.Grid, uLon, uLat []float64, res *Results,
	dec *parallel.Decomposition) Report {

	nSlices := g.Ntime() * g.Ndepth()
	rep := Report{
		TotalArea:          make([]float64, nSlices),
		Projection2Error:   make([]float64, nSlices),
		ProjectionInfError: make([]float64, nSlices),
		Velocity2Norm:      make([]float64, nSlices),
		VelocityInfNorm:    make([]float64, nSlices),
		ProjectionKE:       make([]float64, nSlices),
		ToroidalKE:         make([]float64, nSlices),
		PotentialKE:        make([]float64, nSlices),
	}

	dec.EachRank(func(_, t0, t1, d0, d1 int) {
		for iTime := t0; iTime < t1; iTime++ {
			for iDepth := d0; iDepth < d1; iDepth++ {
				var (
					slice                   = iTime*g.Ndepth() + iDepth
					totalArea               float64
					error2, torKE, potKE    float64
					projKE, origKE          float64
					errorInf, velInf        float64
				)
				for iLat := 0; iLat < g.Nlat(); iLat++ {
					for iLon := 0; iLon < g.Nlon(); iLon++ {
						var (
							sub  = g.IndexSub(iLat, iLon)
							idx  = g.Index(iTime, iDepth, iLat, iLon)
							dA   = g.Areas[sub]
							eLon = uLon[idx] - res.ULonTor[idx] - res.ULonPot[idx]
							eLat = uLat[idx] - res.ULatTor[idx] - res.ULatPot[idx]
						)
						totalArea += dA
						error2 += dA * (eLon*eLon + eLat*eLat)
						errorInf = math.Max(errorInf, math.Hypot(eLon, eLat))
						velInf = math.Max(velInf, math.Hypot(uLon[idx], uLat[idx]))
						torKE += dA * (res.ULonTor[idx]*res.ULonTor[idx] + res.ULatTor[idx]*res.ULatTor[idx])
						potKE += dA * (res.ULonPot[idx]*res.ULonPot[idx] + res.ULatPot[idx]*res.ULatPot[idx])
						sLon := res.ULonTor[idx] + res.ULonPot[idx]
						sLat := res.ULatTor[idx] + res.ULatPot[idx]
						projKE += dA * (sLon*sLon + sLat*sLat)
						origKE += dA * (uLon[idx]*uLon[idx] + uLat[idx]*uLat[idx])
					}
				}
				rep.TotalArea[slice] = totalArea
				rep.Projection2Error[slice] = math.Sqrt(error2 / totalArea)
				rep.ProjectionInfError[slice] = errorInf
				rep.Velocity2Norm[slice] = math.Sqrt(origKE / totalArea)
				rep.VelocityInfNorm[slice] = velInf
				rep.ProjectionKE[slice] = math.Sqrt(projKE / totalArea)
				rep.ToroidalKE[slice] = math.Sqrt(torKE / totalArea)
				rep.PotentialKE[slice] = math.Sqrt(potKE / totalArea)
			}
		}
	})
	return rep
}
