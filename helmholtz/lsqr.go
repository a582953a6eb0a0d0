package helmholtz

import (
	"math"

	"github.com/notargets/oceansieve/utils"
)

// Termination reports why LSQR stopped.
type Termination int

const (
	TermAbsTol Termination = iota // residual below absolute tolerance
	TermRelTol                    // least-squares optimality below relative tolerance
	TermMaxIter
	TermRounding // rounding errors prevent further progress
	TermOther
)

func (t Termination) String() string {
	switch t {
	case TermAbsTol:
		return "absolute tolerance reached"
	case TermRelTol:
		return "relative tolerance reached"
	case TermMaxIter:
		return "maximum number of iterations reached"
	case TermRounding:
		return "round-off errors prevent further progress"
	}
	return "unknown"
}

const lsqrCondLim = 1.e12

// LSQR solves min ||A x - b||_2 for sparse A by the Paige-Saunders
// bidiagonalisation. atol and btol play the usual roles; the best
// iterate found is always returned, whatever the termination cause.
func LSQR(a utils.CSR, b []float64, atol, btol float64, itnLim int) (x []float64, term Termination, itn int) {
	var (
		m, n = a.Dims()
		u    = make([]float64, m)
		v    = make([]float64, n)
		w    = make([]float64, n)
		eps  = math.Nextafter(1, 2) - 1
	)
	x = make([]float64, n)
	copy(u, b)

	beta := norm2(u)
	bnorm := beta
	if beta == 0 {
		return x, TermAbsTol, 0
	}
	scale(u, 1/beta)

	a.MulTransVecAdd(v, u)
	alpha := norm2(v)
	if alpha == 0 {
		return x, TermRelTol, 0
	}
	scale(v, 1/alpha)
	copy(w, v)

	var (
		phibar = beta
		rhobar = alpha
		anorm  = 0.
		ddnorm = 0.
		rnorm  = beta
		arnorm = alpha * beta
		tmpM   = make([]float64, m)
	)

	for itn = 1; itn <= itnLim; itn++ {
		// u = A v - alpha u
		a.MulVecTo(tmpM, v)
		for i := range u {
			u[i] = tmpM[i] - alpha*u[i]
		}
		beta = norm2(u)
		if beta > 0 {
			scale(u, 1/beta)
		}
		anorm = math.Sqrt(anorm*anorm + alpha*alpha + beta*beta)

		// v = A^T u - beta v
		for i := range v {
			v[i] *= -beta
		}
		a.MulTransVecAdd(v, u)
		alpha = norm2(v)
		if alpha > 0 {
			scale(v, 1/alpha)
		}

		// Plane rotation to eliminate the subdiagonal.
		var (
			rho   = math.Hypot(rhobar, beta)
			c     = rhobar / rho
			s     = beta / rho
			theta = s * alpha
			phi   = c * phibar
		)
		rhobar = -c * alpha
		phibar = s * phibar

		var (
			t1 = phi / rho
			t2 = -theta / rho
		)
		for i := range x {
			wi := w[i]
			x[i] += t1 * wi
			ddnorm += (wi / rho) * (wi / rho)
			w[i] = v[i] + t2*wi
		}

		rnorm = phibar
		arnorm = alpha * math.Abs(c) * phibar
		var (
			acond = anorm * math.Sqrt(ddnorm)
			xnorm = norm2(x)
			test1 = rnorm / bnorm
			test2 = arnorm / (anorm*rnorm + eps)
			test3 = 1. / (acond + eps)
			rtol  = btol + atol*anorm*xnorm/bnorm
			t1rel = test1 / (1. + anorm*xnorm/bnorm)
		)
		switch {
		case 1+test3 <= 1 || 1+test2 <= 1 || 1+t1rel <= 1:
			return x, TermRounding, itn
		case test3 <= 1/lsqrCondLim:
			return x, TermRounding, itn
		case test2 <= atol:
			return x, TermRelTol, itn
		case test1 <= rtol:
			return x, TermAbsTol, itn
		}
	}
	return x, TermMaxIter, itnLim
}

func norm2(x []float64) float64 {
	var (
		scaleV = 0.
		ssq    = 1.
	)
	for _, v := range x {
		if v == 0 {
			continue
		}
		av := math.Abs(v)
		if scaleV < av {
			ssq = 1 + ssq*(scaleV/av)*(scaleV/av)
			scaleV = av
		} else {
			ssq += (av / scaleV) * (av / scaleV)
		}
	}
	return scaleV * math.Sqrt(ssq)
}

func scale(x []float64, a float64) {
	for i := range x {
		x[i] *= a
	}
}
