// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"gonum.org/v1/gonum/mat"
)

// Projection onto the PSD cone clips the negative eigenvalues:
//
//	Π(S) = Q·diag(max(λ,0))·Qᵀ   with   S = Q·diag(λ)·Qᵀ
//
// The triangle variant converts between the √2-scaled packed upper
// triangle and full symmetric storage around the same eigenstep.

// projectPSDFull projects full column-major n×n symmetric storage.
func projectPSDFull(v []float64, n int) {
	// Symmetrize first: the iterate drifts slightly off-symmetric.
	for j := 0; j < n; j++ {
		for i := 0; i < j; i++ {
			m := (v[i*n+j] + v[j*n+i]) / 2
			v[i*n+j], v[j*n+i] = m, m
		}
	}
	clipEigenvalues(v, n)
}

// projectPSDTriangle projects √2-scaled packed upper triangle storage.
func projectPSDTriangle(v []float64, n int) {
	full := make([]float64, n*n)
	triToFull(full, v, n)
	clipEigenvalues(full, n)
	fullToTri(v, full, n)
}

// clipEigenvalues overwrites full n×n symmetric storage with its
// projection onto the PSD cone.
func clipEigenvalues(full []float64, n int) {
	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(n, full), true) {
		// The eigensolver failing on finite symmetric input does not
		// happen in practice; leave the block unchanged rather than
		// corrupt the iterate.
		return
	}
	vals := es.Values(nil)
	var q mat.Dense
	es.VectorsTo(&q)

	for i := range full {
		full[i] = 0
	}
	for k := 0; k < n; k++ {
		lk := vals[k]
		if lk <= 0 {
			continue
		}
		for i := 0; i < n; i++ {
			qik := q.At(i, k)
			if qik == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				full[i*n+j] += lk * qik * q.At(j, k)
			}
		}
	}
}

// minEigFull returns the smallest eigenvalue of full symmetric storage.
func minEigFull(v []float64, n int) float64 {
	full := make([]float64, n*n)
	copy(full, v)
	for j := 0; j < n; j++ {
		for i := 0; i < j; i++ {
			m := (full[i*n+j] + full[j*n+i]) / 2
			full[i*n+j], full[j*n+i] = m, m
		}
	}
	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(n, full), false) {
		return 0
	}
	return es.Values(nil)[0]
}

// minEigTriangle returns the smallest eigenvalue of packed triangle storage.
func minEigTriangle(v []float64, n int) float64 {
	full := make([]float64, n*n)
	triToFull(full, v, n)
	var es mat.EigenSym
	if !es.Factorize(mat.NewSymDense(n, full), false) {
		return 0
	}
	return es.Values(nil)[0]
}

// triToFull expands the √2-scaled packed upper triangle into full
// row-major n×n storage.
func triToFull(full, tri []float64, n int) {
	k := 0
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			if i == j {
				full[i*n+i] = tri[k]
			} else {
				x := tri[k] / sqrt2
				full[i*n+j], full[j*n+i] = x, x
			}
			k++
		}
	}
}

// fullToTri packs full n×n storage back into the √2-scaled upper triangle.
func fullToTri(tri, full []float64, n int) {
	k := 0
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			if i == j {
				tri[k] = full[i*n+i]
			} else {
				tri[k] = full[i*n+j] * sqrt2
			}
			k++
		}
	}
}
