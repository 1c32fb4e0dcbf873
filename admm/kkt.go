// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import (
	"errors"
	"math"

	"github.com/curioloop/conic/sparse"
)

// ErrFactor indicates a numerically failed KKT factorization.
var ErrFactor = errors.New("admm: KKT factorization failed")

// KKTSolver factors and solves the symmetric quasi-definite system
//
//	K = ⎡ P + σI      Aᵀ      ⎤
//	    ⎣ A        −diag(1/ρ) ⎦
//
// Assembly is symbolic once; only the −1/ρ diagonal changes on a penalty
// update, which triggers a refactorization. The solver consumes this as a
// capability so a direct or indirect backend can be swapped in.
type KKTSolver interface {
	// Factor assembles and factors K for the given data.
	Factor(p, a *sparse.CSC, sigma float64, rho []float64) error
	// Solve computes sol = K⁻¹·rhs for an (n+m)-vector.
	Solve(rhs, sol []float64)
	// UpdateRho refreshes the penalty diagonal and refactors.
	UpdateRho(rho []float64) error
}

// ldlKKT is the default backend: a dense LDLᵀ factorization without
// pivoting, which is stable for quasi-definite K.
type ldlKKT struct {
	n, m int
	kd   []float64 // assembled K, row-major (n+m)²
	lf   []float64 // L factor (strict lower) over the same layout
	d    []float64
	y    []float64
}

// NewLDLKKT returns the built-in dense LDLᵀ backend.
func NewLDLKKT() KKTSolver { return &ldlKKT{} }

func (k *ldlKKT) Factor(p, a *sparse.CSC, sigma float64, rho []float64) error {
	n, m := a.Cols, a.Rows
	nm := n + m
	k.n, k.m = n, m
	if len(k.kd) != nm*nm {
		k.kd = make([]float64, nm*nm)
		k.lf = make([]float64, nm*nm)
		k.d = make([]float64, nm)
		k.y = make([]float64, nm)
	} else {
		dzero(k.kd)
	}
	kd := k.kd
	// P block (full symmetric storage) plus σ on the diagonal
	for j := 0; j < p.Cols; j++ {
		for t := p.P[j]; t < p.P[j+1]; t++ {
			kd[p.I[t]*nm+j] = p.X[t]
		}
	}
	for i := 0; i < n; i++ {
		kd[i*nm+i] += sigma
	}
	// A and Aᵀ blocks
	for j := 0; j < a.Cols; j++ {
		for t := a.P[j]; t < a.P[j+1]; t++ {
			r := a.I[t]
			kd[(n+r)*nm+j] = a.X[t]
			kd[j*nm+n+r] = a.X[t]
		}
	}
	for r := 0; r < m; r++ {
		kd[(n+r)*nm+n+r] = -1 / rho[r]
	}
	return k.factorize()
}

func (k *ldlKKT) UpdateRho(rho []float64) error {
	n, nm := k.n, k.n+k.m
	for r := 0; r < k.m; r++ {
		k.kd[(n+r)*nm+n+r] = -1 / rho[r]
	}
	return k.factorize()
}

// factorize computes K = L·D·Lᵀ over the lower triangle.
func (k *ldlKKT) factorize() error {
	nm := k.n + k.m
	kd, lf, d := k.kd, k.lf, k.d
	floor := 0.0
	for i := 0; i < nm; i++ {
		if a := math.Abs(kd[i*nm+i]); a > floor {
			floor = a
		}
	}
	floor = math.Max(floor, 1) * 1e-15
	for j := 0; j < nm; j++ {
		dj := kd[j*nm+j]
		for t := 0; t < j; t++ {
			ljt := lf[j*nm+t]
			dj -= ljt * ljt * d[t]
		}
		if math.Abs(dj) < floor {
			return ErrFactor
		}
		d[j] = dj
		for i := j + 1; i < nm; i++ {
			v := kd[i*nm+j]
			li := lf[i*nm:]
			lj := lf[j*nm:]
			for t := 0; t < j; t++ {
				v -= li[t] * lj[t] * d[t]
			}
			lf[i*nm+j] = v / dj
		}
	}
	return nil
}

func (k *ldlKKT) Solve(rhs, sol []float64) {
	nm := k.n + k.m
	lf, d, y := k.lf, k.d, k.y
	// forward: L·y = rhs
	for i := 0; i < nm; i++ {
		v := rhs[i]
		li := lf[i*nm:]
		for t := 0; t < i; t++ {
			v -= li[t] * y[t]
		}
		y[i] = v
	}
	for i := 0; i < nm; i++ {
		y[i] /= d[i]
	}
	// backward: Lᵀ·sol = y
	for i := nm - 1; i >= 0; i-- {
		v := y[i]
		for t := i + 1; t < nm; t++ {
			v -= lf[t*nm+i] * sol[t]
		}
		sol[i] = v
	}
}
