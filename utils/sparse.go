package utils

import (
	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
)

// DOK wraps the dictionary-of-keys builder used while assembling the
// least-squares operator. Entries accumulate.
type DOK struct {
	M *sparse.DOK
}

func NewDOK(nr, nc int) DOK {
	return DOK{sparse.NewDOK(nr, nc)}
}

func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }

// Add accumulates v into entry (i, j).
func (m DOK) Add(i, j int, v float64) {
	m.M.Set(i, j, m.M.At(i, j)+v)
}

func (m DOK) ToCSR() CSR {
	return CSR{m.M.ToCSR()}
}

// CSR wraps the compressed-row form the solver iterates on. Read-only
// once built.
type CSR struct {
	M *sparse.CSR
}

func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) NNZ() int                      { return m.M.NNZ() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

// MulVecTo computes y = A*x against the raw CSR storage.
func (m CSR) MulVecTo(y, x []float64) {
	raw := m.RawMatrix()
	for r := 0; r < raw.I; r++ {
		var sum float64
		for p := raw.Indptr[r]; p < raw.Indptr[r+1]; p++ {
			sum += raw.Data[p] * x[raw.Ind[p]]
		}
		y[r] = sum
	}
}

// MulTransVecAdd computes y += A^T * x without forming the transpose.
func (m CSR) MulTransVecAdd(y, x []float64) {
	raw := m.RawMatrix()
	for r := 0; r < raw.I; r++ {
		xr := x[r]
		if xr == 0 {
			continue
		}
		for p := raw.Indptr[r]; p < raw.Indptr[r+1]; p++ {
			y[raw.Ind[p]] += raw.Data[p] * xr
		}
	}
}
