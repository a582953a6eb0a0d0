package netcdfio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/notargets/oceansieve/geometry"
)

// Writer creates one output file with the standard
// time/depth/latitude/longitude layout plus optional per-slice
// (time, depth) summary variables.
type Writer struct {
	f    *cdf.File
	ff   *os.File
	grid *geometry.Grid
}

// CreateOutput defines the file header: coordinate variables, the named
// 4-D field variables, the named 2-D (time, depth) variables, and the
// numeric global attributes.
func CreateOutput(fname string, g *geometry.Grid, vars4D, vars2D []string,
	attrs map[string]float64, attrOrder []string) (*Writer, error) {

	h := cdf.NewHeader(
		[]string{"time", "depth", "latitude", "longitude"},
		[]int{g.Ntime(), g.Ndepth(), g.Nlat(), g.Nlon()})

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddVariable("depth", []string{"depth"}, []float64{0})
	h.AddVariable("latitude", []string{"latitude"}, []float64{0})
	h.AddVariable("longitude", []string{"longitude"}, []float64{0})

	for _, v := range vars4D {
		h.AddVariable(v, []string{"time", "depth", "latitude", "longitude"}, []float64{0})
	}
	for _, v := range vars2D {
		h.AddVariable(v, []string{"time", "depth"}, []float64{0})
	}
	for _, k := range attrOrder {
		h.AddAttribute("", k, []float64{attrs[k]})
	}
	h.Define()

	ff, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("netcdfio: creating %s: %v", fname, err)
	}
	w := &Writer{f: f, ff: ff, grid: g}

	if err := w.write("time", g.Time); err != nil {
		return nil, err
	}
	if err := w.write("depth", g.Depth); err != nil {
		return nil, err
	}
	if err := w.write("latitude", g.Lat); err != nil {
		return nil, err
	}
	if err := w.write("longitude", g.Lon); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) write(name string, data []float64) error {
	r := w.f.Writer(name, nil, nil)
	if _, err := r.Write(data); err != nil {
		return fmt.Errorf("netcdfio: writing %s: %v", name, err)
	}
	return nil
}

// WriteField writes a 4-D field. When masked is true, land points are
// replaced by fillValue on the way out.
func (w *Writer) WriteField(name string, data []float64, masked bool, fillValue float64) error {
	if !masked {
		return w.write(name, data)
	}
	out := make([]float64, len(data))
	for i, v := range data {
		if w.grid.Mask[i] {
			out[i] = v
		} else {
			out[i] = fillValue
		}
	}
	return w.write(name, out)
}

// WriteSummary writes a per-(time, depth) variable.
func (w *Writer) WriteSummary(name string, data []float64) error {
	return w.write(name, data)
}

func (w *Writer) Close() error { return w.ff.Close() }
