package netcdfio

import (
	"fmt"
	"path/filepath"

	"github.com/notargets/oceansieve/filtering"
	"github.com/notargets/oceansieve/geometry"
)

// ScaleEmitter writes one filter_<scale>km.nc file per coarse-graining
// scale.
type ScaleEmitter struct {
	Grid      *geometry.Grid
	FillValue float64
	Dir       string
}

func (e *ScaleEmitter) EmitScale(scale float64, fields []filtering.Field,
	attrs map[string]float64, attrOrder []string) error {

	var vars4D, vars2D []string
	for _, f := range fields {
		if f.Summary {
			vars2D = append(vars2D, f.Name)
		} else {
			vars4D = append(vars4D, f.Name)
		}
	}

	fname := filepath.Join(e.Dir, fmt.Sprintf("filter_%.6gkm.nc", scale/1.e3))
	w, err := CreateOutput(fname, e.Grid, vars4D, vars2D, attrs, attrOrder)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, f := range fields {
		if f.Summary {
			err = w.WriteSummary(f.Name, f.Data)
		} else {
			err = w.WriteField(f.Name, f.Data, f.Masked, e.FillValue)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
