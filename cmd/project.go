/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/oceansieve/InputParameters"
	"github.com/notargets/oceansieve/dataset"
	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/helmholtz"
	"github.com/notargets/oceansieve/netcdfio"
	"github.com/notargets/oceansieve/parallel"
)

type ProjectModel struct {
	InputFile  string
	OutputFile string
	SeedFile   string
	ParamsFile string

	Axes     dataset.AxisNames
	ZonalVel string
	MeridVel string
	TorSeed  string
	PotSeed  string

	NprocsInTime  int
	NprocsInDepth int

	Tolerance     float64
	MaxIterations int
	TikhovLaplace float64
	UseMask       bool
	UseAreaWeight bool
	IsDegrees     bool
}

// ProjectCmd represents the project command
var ProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Helmholtz projection of a horizontal velocity field",
	Long: `
Decomposes (u_lon, u_lat) into a divergence-free part generated by a
stream function Psi and a curl-free part generated by a potential Phi,
solving the overdetermined sparse system per (time, depth) slice.

oceansieve project --input_file vels.nc --output_file projection.nc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &ProjectModel{}
		m.InputFile, _ = cmd.Flags().GetString("input_file")
		m.OutputFile, _ = cmd.Flags().GetString("output_file")
		m.SeedFile, _ = cmd.Flags().GetString("seed_file")
		m.ParamsFile, _ = cmd.Flags().GetString("parameters")
		m.Axes.Time, _ = cmd.Flags().GetString("time")
		m.Axes.Depth, _ = cmd.Flags().GetString("depth")
		m.Axes.Latitude, _ = cmd.Flags().GetString("latitude")
		m.Axes.Longitude, _ = cmd.Flags().GetString("longitude")
		m.ZonalVel, _ = cmd.Flags().GetString("zonal_vel")
		m.MeridVel, _ = cmd.Flags().GetString("merid_vel")
		m.TorSeed, _ = cmd.Flags().GetString("tor_seed")
		m.PotSeed, _ = cmd.Flags().GetString("pot_seed")
		m.NprocsInTime, _ = cmd.Flags().GetInt("Nprocs_in_time")
		m.NprocsInDepth, _ = cmd.Flags().GetInt("Nprocs_in_depth")
		m.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")
		m.MaxIterations, _ = cmd.Flags().GetInt("max_iterations")
		m.TikhovLaplace, _ = cmd.Flags().GetFloat64("Tikhov_Laplace")
		m.UseMask, _ = cmd.Flags().GetBool("use_mask")
		m.UseAreaWeight, _ = cmd.Flags().GetBool("use_area_weight")
		m.IsDegrees, _ = cmd.Flags().GetBool("is_degrees")
		return RunProject(m)
	},
}

func init() {
	ProjectCmd.Flags().String("input_file", "input.nc", "input NetCDF file")
	ProjectCmd.Flags().String("output_file", "output.nc", "output NetCDF file")
	ProjectCmd.Flags().String("seed_file", "zero", "seed file, or the literal string zero")
	ProjectCmd.Flags().String("parameters", "", "YAML parameters file")
	ProjectCmd.Flags().String("time", "time", "name of the time dimension")
	ProjectCmd.Flags().String("depth", "depth", "name of the depth dimension")
	ProjectCmd.Flags().String("latitude", "latitude", "name of the latitude dimension")
	ProjectCmd.Flags().String("longitude", "longitude", "name of the longitude dimension")
	ProjectCmd.Flags().String("zonal_vel", "uo", "name of the zonal velocity variable")
	ProjectCmd.Flags().String("merid_vel", "vo", "name of the meridional velocity variable")
	ProjectCmd.Flags().String("tor_seed", "Psi_seed", "name of the toroidal seed variable")
	ProjectCmd.Flags().String("pot_seed", "Phi_seed", "name of the potential seed variable")
	ProjectCmd.Flags().Int("Nprocs_in_time", 1, "rank split along time")
	ProjectCmd.Flags().Int("Nprocs_in_depth", 1, "rank split along depth")
	ProjectCmd.Flags().Float64("tolerance", 5e-3, "LSQR relative and absolute tolerance")
	ProjectCmd.Flags().Int("max_iterations", 100000, "LSQR iteration cap")
	ProjectCmd.Flags().Float64("Tikhov_Laplace", 1., "Laplacian regularisation strength")
	ProjectCmd.Flags().Bool("use_mask", false, "exclude land from stencils and averages")
	ProjectCmd.Flags().Bool("use_area_weight", true, "weight the least-squares rows by cell area")
	ProjectCmd.Flags().Bool("is_degrees", true, "coordinates are degrees (converted to radians)")
}

func RunProject(m *ProjectModel) error {
	ip, err := loadParameters(m.ParamsFile)
	if err != nil {
		return err
	}

	f, err := netcdfio.Open(m.InputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	ds, err := dataset.Load(f, m.Axes, m.IsDegrees, ip)
	if err != nil {
		return err
	}
	if err := ds.LoadVariable(f, "u_lon", m.ZonalVel, true); err != nil {
		return err
	}
	if err := ds.LoadVariable(f, "u_lat", m.MeridVel, false); err != nil {
		return err
	}
	g := ds.Grid
	g.MaskOutPoles()

	wSize := m.NprocsInTime * m.NprocsInDepth
	nInTime, nInDepth := parallel.CheckProcessorDivisions(
		g.Ntime(), g.Ndepth(), m.NprocsInTime, m.NprocsInDepth, wSize)
	if nInTime*nInDepth != wSize {
		return fmt.Errorf("rank split %d x %d does not match world size %d", nInTime, nInDepth, wSize)
	}
	log.Infof("Nproc(time, depth) = (%d, %d)", nInTime, nInDepth)
	dec := parallel.NewDecomposition(g.Ntime(), g.Ndepth(), nInTime, nInDepth)

	seed, err := loadSeed(m, g.Npts())
	if err != nil {
		return err
	}

	opts := helmholtz.Options{
		RelTol:        m.Tolerance,
		MaxIters:      m.MaxIterations,
		UseMask:       m.UseMask,
		WeightErr:     m.UseAreaWeight,
		TikhovLaplace: m.TikhovLaplace,
		AccOrder:      ip.DiffOrd,
	}
	res := helmholtz.Project(g, ds.Vars["u_lon"], ds.Vars["u_lat"], seed, opts, dec)

	return writeProjection(m.OutputFile, ip, g, res, opts)
}

func loadParameters(fname string) (*InputParameters.Parameters, error) {
	ip := InputParameters.NewDefault()
	if fname == "" {
		return ip, ip.Validate()
	}
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	if err := ip.Parse(data); err != nil {
		return nil, err
	}
	ip.Print()
	return ip, nil
}

func loadSeed(m *ProjectModel, nPts int) (helmholtz.Seed, error) {
	if m.SeedFile == "zero" {
		return helmholtz.ZeroSeed(nPts), nil
	}
	sf, err := netcdfio.Open(m.SeedFile)
	if err != nil {
		return helmholtz.Seed{}, err
	}
	defer sf.Close()
	seedCount, err := sf.ReadAttr("seed_count")
	if err != nil {
		return helmholtz.Seed{}, err
	}
	psi, _, err := sf.ReadVar(m.TorSeed)
	if err != nil {
		return helmholtz.Seed{}, err
	}
	phi, _, err := sf.ReadVar(m.PotSeed)
	if err != nil {
		return helmholtz.Seed{}, err
	}
	return helmholtz.Seed{Psi: psi, Phi: phi, Single: seedCount == 1}, nil
}

func writeProjection(fname string, ip *InputParameters.Parameters, g *geometry.Grid,
	res *helmholtz.Results, opts helmholtz.Options) error {

	vars4D := []string{}
	if !ip.MinimalOutput {
		vars4D = append(vars4D, "u_lon_tor", "u_lat_tor", "u_lon_pot", "u_lat_pot")
	}
	vars4D = append(vars4D, "Psi", "Phi")
	vars2D := []string{
		"total_area",
		"projection_2error", "projection_Inferror",
		"velocity_2norm", "velocity_Infnorm",
		"projection_KE", "toroidal_KE", "potential_KE",
	}
	attrOrder := []string{"rel_tol", "max_iters", "diff_order", "use_mask", "weight_err", "Tikhov_Laplace"}
	attrs := map[string]float64{
		"rel_tol":        opts.RelTol,
		"max_iters":      float64(opts.MaxIters),
		"diff_order":     float64(opts.AccOrder),
		"use_mask":       boolAttr(opts.UseMask),
		"weight_err":     boolAttr(opts.WeightErr),
		"Tikhov_Laplace": opts.TikhovLaplace,
	}

	w, err := netcdfio.CreateOutput(fname, g, vars4D, vars2D, attrs, attrOrder)
	if err != nil {
		return err
	}
	defer w.Close()

	// The potentials and their velocities are defined over land by the
	// projection, so nothing here gets the fill treatment.
	if !ip.MinimalOutput {
		for _, v := range []struct {
			name string
			data []float64
		}{
			{"u_lon_tor", res.ULonTor}, {"u_lat_tor", res.ULatTor},
			{"u_lon_pot", res.ULonPot}, {"u_lat_pot", res.ULatPot},
		} {
			if err := w.WriteField(v.name, v.data, false, ip.FillValue); err != nil {
				return err
			}
		}
	}
	if err := w.WriteField("Psi", res.Psi, false, ip.FillValue); err != nil {
		return err
	}
	if err := w.WriteField("Phi", res.Phi, false, ip.FillValue); err != nil {
		return err
	}

	rep := res.Report
	for _, v := range []struct {
		name string
		data []float64
	}{
		{"total_area", rep.TotalArea},
		{"projection_2error", rep.Projection2Error},
		{"projection_Inferror", rep.ProjectionInfError},
		{"velocity_2norm", rep.Velocity2Norm},
		{"velocity_Infnorm", rep.VelocityInfNorm},
		{"projection_KE", rep.ProjectionKE},
		{"toroidal_KE", rep.ToroidalKE},
		{"potential_KE", rep.PotentialKE},
	} {
		if err := w.WriteSummary(v.name, v.data); err != nil {
			return err
		}
	}
	return nil
}

func boolAttr(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
