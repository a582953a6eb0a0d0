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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notargets/oceansieve/dataset"
	"github.com/notargets/oceansieve/filtering"
	"github.com/notargets/oceansieve/netcdfio"
)

type FilterModel struct {
	InputFile  string
	OutputDir  string
	ParamsFile string

	Axes     dataset.AxisNames
	TorField string
	PotField string

	Scales    string
	IsDegrees bool
}

// FilterCmd represents the filter command
var FilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Coarse-grain a Helmholtz-decomposed velocity field",
	Long: `
Filters the decomposed flow at each requested geodesic scale and derives
the coarse and sub-filter energetics (KE, Pi, Z, transport, vorticity,
Okubo-Weiss), writing one filter_<scale>km.nc file per scale.

oceansieve filter --input_file projection.nc --filter_scales 50e3,100e3,200e3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &FilterModel{}
		m.InputFile, _ = cmd.Flags().GetString("input_file")
		m.OutputDir, _ = cmd.Flags().GetString("output_dir")
		m.ParamsFile, _ = cmd.Flags().GetString("parameters")
		m.Axes.Time, _ = cmd.Flags().GetString("time")
		m.Axes.Depth, _ = cmd.Flags().GetString("depth")
		m.Axes.Latitude, _ = cmd.Flags().GetString("latitude")
		m.Axes.Longitude, _ = cmd.Flags().GetString("longitude")
		m.TorField, _ = cmd.Flags().GetString("tor_field")
		m.PotField, _ = cmd.Flags().GetString("pot_field")
		m.Scales, _ = cmd.Flags().GetString("filter_scales")
		m.IsDegrees, _ = cmd.Flags().GetBool("is_degrees")
		return RunFilter(m)
	},
}

func init() {
	FilterCmd.Flags().String("input_file", "projection.nc", "input NetCDF file holding the Helmholtz scalars")
	FilterCmd.Flags().String("output_dir", ".", "directory for the per-scale output files")
	FilterCmd.Flags().String("parameters", "", "YAML parameters file")
	FilterCmd.Flags().String("time", "time", "name of the time dimension")
	FilterCmd.Flags().String("depth", "depth", "name of the depth dimension")
	FilterCmd.Flags().String("latitude", "latitude", "name of the latitude dimension")
	FilterCmd.Flags().String("longitude", "longitude", "name of the longitude dimension")
	FilterCmd.Flags().String("tor_field", "Psi", "name of the toroidal scalar variable")
	FilterCmd.Flags().String("pot_field", "Phi", "name of the potential scalar variable")
	FilterCmd.Flags().String("filter_scales", "", "comma-separated filter scales in metres (overrides the parameters file)")
	FilterCmd.Flags().Bool("is_degrees", true, "coordinates are degrees (converted to radians)")
}

func RunFilter(m *FilterModel) error {
	ip, err := loadParameters(m.ParamsFile)
	if err != nil {
		return err
	}
	if m.Scales != "" {
		ip.FilterScales = ip.FilterScales[:0]
		for _, s := range strings.Split(m.Scales, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("bad filter scale %q: %v", s, err)
			}
			ip.FilterScales = append(ip.FilterScales, v)
		}
	}
	if err := ip.Validate(); err != nil {
		return err
	}
	if len(ip.FilterScales) == 0 {
		return fmt.Errorf("no filter scales given; use --filter_scales or the parameters file")
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
	if err := ds.LoadVariable(f, "F_toroidal", m.TorField, true); err != nil {
		return err
	}
	if err := ds.LoadVariable(f, "F_potential", m.PotField, false); err != nil {
		return err
	}

	emit := &netcdfio.ScaleEmitter{
		Grid:      ds.Grid,
		FillValue: ip.FillValue,
		Dir:       m.OutputDir,
	}
	return filtering.FilterHelmholtz(ds.Grid, ds.Vars["F_toroidal"], ds.Vars["F_potential"], ip, emit)
}
