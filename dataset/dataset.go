// Package dataset loads the working state of a run: the grid, the land
// mask, and the named field variables, pulled in through the NetCDF
// collaborator.
package dataset

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/oceansieve/InputParameters"
	"github.com/notargets/oceansieve/geometry"
	"github.com/notargets/oceansieve/netcdfio"
)

// AxisNames carries the dimension-variable names in the input file.
type AxisNames struct {
	Time      string
	Depth     string
	Latitude  string
	Longitude string
}

func DefaultAxisNames() AxisNames {
	return AxisNames{Time: "time", Depth: "depth", Latitude: "latitude", Longitude: "longitude"}
}

type Dataset struct {
	Grid *geometry.Grid
	Vars map[string][]float64
}

// Load reads the axes and builds the grid. Velocity variables are
// attached afterwards with LoadVariable so their fill values can define
// the mask.
func Load(f *netcdfio.File, axes AxisNames, isDegrees bool, ip *InputParameters.Parameters) (*Dataset, error) {
	time, err := f.ReadAxis(axes.Time)
	if err != nil {
		return nil, err
	}
	depth, err := f.ReadAxis(axes.Depth)
	if err != nil {
		return nil, err
	}
	lat, err := f.ReadAxis(axes.Latitude)
	if err != nil {
		return nil, err
	}
	lon, err := f.ReadAxis(axes.Longitude)
	if err != nil {
		return nil, err
	}
	if isDegrees {
		geometry.ConvertCoordinates(lon, lat)
	}
	g, err := geometry.NewGrid(time, depth, lat, lon, ip.REarth)
	if err != nil {
		return nil, err
	}
	if err := g.SetPeriodic(ip.PeriodicX, ip.PeriodicY); err != nil {
		return nil, err
	}
	if ip.UniformLonGrid && !g.UniformLon {
		return nil, fmt.Errorf("dataset: UNIFORM_LON_GRID is set but the longitude axis is not uniform")
	}
	if ip.UniformLatGrid && !g.UniformLat {
		return nil, fmt.Errorf("dataset: UNIFORM_LAT_GRID is set but the latitude axis is not uniform")
	}
	if ip.ExtendDomainToPoles {
		log.Warn("EXTEND_DOMAIN_TO_POLES is handled by the preprocessing collaborator; expecting an already-extended grid")
	}
	log.Debugf("loaded grid: %d x %d x %d x %d", g.Ntime(), g.Ndepth(), g.Nlat(), g.Nlon())
	return &Dataset{Grid: g, Vars: make(map[string][]float64)}, nil
}

// LoadVariable reads a 4-D variable under the given key. When
// defineMask is true its fill pattern becomes the grid's land mask.
func (ds *Dataset) LoadVariable(f *netcdfio.File, key, varName string, defineMask bool) error {
	vals, mask, err := f.ReadVar(varName)
	if err != nil {
		return err
	}
	if len(vals) != ds.Grid.Size() {
		return fmt.Errorf("dataset: variable %s has %d values, grid wants %d", varName, len(vals), ds.Grid.Size())
	}
	ds.Vars[key] = vals
	if defineMask {
		if err := ds.Grid.SetMask(mask); err != nil {
			return err
		}
	}
	return nil
}
