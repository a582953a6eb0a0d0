// Package netcdfio is the NetCDF collaborator: it reads velocity
// fields, seeds and coordinate axes, and writes the projection and
// per-scale filtering products. The numerical core only touches it
// through the reader/writer types defined here.
package netcdfio

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

type File struct {
	f  *cdf.File
	ff *os.File
}

func Open(fname string) (*File, error) {
	ff, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("netcdfio: %s: %v", fname, err)
	}
	return &File{f: f, ff: ff}, nil
}

func (f *File) Close() error { return f.ff.Close() }

// HasVariable reports whether the file defines the named variable.
func (f *File) HasVariable(name string) bool {
	return len(f.f.Header.Lengths(name)) != 0 || len(f.f.Header.Dimensions(name)) != 0
}

// ReadAxis reads a 1-D coordinate variable as float64.
func (f *File) ReadAxis(name string) ([]float64, error) {
	d, _, err := f.readAll(name)
	if err != nil {
		return nil, err
	}
	return d.Elements, nil
}

// ReadVar reads a whole variable as float64 plus a water mask derived
// from its fill value: points equal to _FillValue (or non-finite) are
// land.
func (f *File) ReadVar(name string) (vals []float64, mask []bool, err error) {
	d, fill, err := f.readAll(name)
	if err != nil {
		return nil, nil, err
	}
	vals = d.Elements
	mask = make([]bool, len(vals))
	for i, v := range vals {
		water := !math.IsNaN(v) && !math.IsInf(v, 0)
		if fill != nil && v == *fill {
			water = false
		}
		if !water {
			vals[i] = 0
		}
		mask[i] = water
	}
	return vals, mask, nil
}

// ReadDense reads a whole variable keeping its dimensioned shape.
func (f *File) ReadDense(name string) (*sparse.DenseArray, error) {
	d, _, err := f.readAll(name)
	return d, err
}

// ReadAttr reads a numeric global attribute.
func (f *File) ReadAttr(name string) (float64, error) {
	return attrFloat(f.f.Header.GetAttribute("", name), name)
}

func (f *File) readAll(name string) (d *sparse.DenseArray, fill *float64, err error) {
	dims := f.f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, nil, fmt.Errorf("netcdfio: variable %v not in file", name)
	}
	n := 1
	for _, dim := range dims {
		n *= dim
	}
	r := f.f.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err = r.Read(buf); err != nil {
		return nil, nil, fmt.Errorf("netcdfio: reading %s: %v", name, err)
	}
	d = sparse.ZerosDense(dims...)
	vals := d.Elements
	switch b := buf.(type) {
	case []float64:
		copy(vals, b)
	case []float32:
		for i, v := range b {
			vals[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			vals[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			vals[i] = float64(v)
		}
	default:
		return nil, nil, fmt.Errorf("netcdfio: variable %s has unsupported type %T", name, buf)
	}

	if fv, err := attrFloat(f.f.Header.GetAttribute(name, "_FillValue"), "_FillValue"); err == nil {
		fill = &fv
	}
	// CF packed data.
	if scale, err := attrFloat(f.f.Header.GetAttribute(name, "scale_factor"), "scale_factor"); err == nil {
		offset, _ := attrFloat(f.f.Header.GetAttribute(name, "add_offset"), "add_offset")
		for i := range vals {
			if fill != nil && vals[i] == *fill {
				continue
			}
			vals[i] = vals[i]*scale + offset
		}
	}
	return d, fill, nil
}

func attrFloat(attr interface{}, name string) (float64, error) {
	switch a := attr.(type) {
	case []float64:
		if len(a) > 0 {
			return a[0], nil
		}
	case []float32:
		if len(a) > 0 {
			return float64(a[0]), nil
		}
	case []int32:
		if len(a) > 0 {
			return float64(a[0]), nil
		}
	case []int16:
		if len(a) > 0 {
			return float64(a[0]), nil
		}
	case float64:
		return a, nil
	case float32:
		return float64(a), nil
	case int32:
		return float64(a), nil
	}
	return 0, fmt.Errorf("netcdfio: attribute %s not present or not numeric", name)
}
