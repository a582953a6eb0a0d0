package filtering

import (
	"github.com/notargets/oceansieve/InputParameters"
	"github.com/notargets/oceansieve/geometry"
)

// outputFields assembles the per-scale output list, gated the same way
// the full and minimal output sets always have been.
func outputFields(ip *InputParameters.Parameters, g *geometry.Grid,
	coarseFTor, coarseFPot, uuC, uvC, vvC, piHelm []float64,
	coarse [numSets]*velSet,
	vortC, divC, owC, pi, pi2, zCasc, divJ, keFilt, keC, keFine, keFineM, enst [numSets][]float64,
) []Field {

	var fields []Field
	add := func(name string, data []float64, masked bool) {
		fields = append(fields, Field{Name: name, Data: data, Masked: masked})
	}

	if !ip.NoFullOutputs {
		// The coarse scalars exist over land, so they go out unmasked.
		add("coarse_F_tor", coarseFTor, false)
		add("coarse_F_pot", coarseFPot, false)

		add("u_lon_tor", coarse[setTor].uLon, true)
		add("u_lat_tor", coarse[setTor].uLat, true)
		add("u_lon_pot", coarse[setPot].uLon, true)
		add("u_lat_pot", coarse[setPot].uLat, true)

		for s := 0; s < numSets; s++ {
			add("KE_"+setNames[s]+"_fine", keFine[s], true)
		}
		for s := 0; s < numSets; s++ {
			add("Pi_"+setNames[s], pi[s], true)
		}
		if ip.CompPiHelmholtz {
			add("Pi_Helm", piHelm, true)
		}
		for s := 0; s < numSets; s++ {
			add("Pi2_"+setNames[s], pi2[s], true)
		}
		for s := 0; s < numSets; s++ {
			add("Z_"+setNames[s], zCasc[s], true)
		}
		for s := 0; s < numSets; s++ {
			add("KE_"+setNames[s]+"_filt", keFilt[s], true)
		}
	}

	if !ip.MinimalOutput {
		for s := 0; s < numSets; s++ {
			add("KE_"+setNames[s]+"_fine_mod", keFineM[s], true)
		}
		for s := 0; s < numSets; s++ {
			add("div_"+setNames[s], divC[s], true)
		}
		if ip.DoOkuboWeiss {
			for s := 0; s < numSets; s++ {
				add("OkuboWeiss_"+setNames[s], owC[s], true)
			}
		}
		for s := 0; s < numSets; s++ {
			add("Enstrophy_"+setNames[s], enst[s], true)
		}
		for s := 0; s < numSets; s++ {
			add("vort_r_"+setNames[s], vortC[s], true)
		}
		if ip.CompPiHelmholtz {
			add("coarse_uu", uuC, true)
			add("coarse_uv", uvC, true)
			add("coarse_vv", vvC, true)
		}
	}

	if ip.ApplyPostprocess {
		fields = append(fields, postprocessMeans(g, coarse, pi, pi2, zCasc, divJ, keC, keFine)...)
	}
	return fields
}

// postprocessMeans reduces each diagnostic to its area-weighted mean
// over water, per (time, depth) slice. When full outputs are disabled
// these summaries are the only product of a run.
func postprocessMeans(g *geometry.Grid, coarse [numSets]*velSet,
	pi, pi2, zCasc, divJ, keC, keFine [numSets][]float64) []Field {

	var fields []Field
	for s := 0; s < numSets; s++ {
		named := []struct {
			name string
			data []float64
		}{
			{"coarse_KE", keC[s]},
			{"fine_KE", keFine[s]},
			{"Pi", pi[s]},
			{"Pi2", pi2[s]},
			{"Z", zCasc[s]},
			{"div_J_transport", divJ[s]},
			{"u_lon", coarse[s].uLon},
			{"u_lat", coarse[s].uLat},
		}
		for _, nd := range named {
			fields = append(fields, Field{
				Name:    "avg_" + nd.name + "_" + setNames[s],
				Data:    areaMeans(g, nd.data),
				Summary: true,
			})
		}
	}
	return fields
}

func areaMeans(g *geometry.Grid, data []float64) []float64 {
	var (
		nSlices = g.Ntime() * g.Ndepth()
		out     = make([]float64, nSlices)
	)
	for iTime := 0; iTime < g.Ntime(); iTime++ {
		for iDepth := 0; iDepth < g.Ndepth(); iDepth++ {
			var sum, area float64
			for iLat := 0; iLat < g.Nlat(); iLat++ {
				for iLon := 0; iLon < g.Nlon(); iLon++ {
					idx := g.Index(iTime, iDepth, iLat, iLon)
					if !g.Mask[idx] {
						continue
					}
					dA := g.Area(iLat, iLon)
					sum += dA * data[idx]
					area += dA
				}
			}
			if area > 0 {
				out[iTime*g.Ndepth()+iDepth] = sum / area
			}
		}
	}
	return out
}
