// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import "math"

// Unit-stride BLAS1 kernels for the hot loop. The 4/5-way unrolling with
// explicit three-index slicing hoists the bounds checks out of the body.

// daxpy performs y += da·x.
func daxpy(da float64, x, y []float64) {
	if da == 0 {
		return
	}
	n := uint(len(x))
	m := n % 4
	if m > uint(len(y)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		y[i] += da * x[i]
	}
	for i := m; i < n; i += 4 {
		xs := x[i : i+4 : i+4]
		ys := y[i : i+4 : i+4]
		ys[0] += da * xs[0]
		ys[1] += da * xs[1]
		ys[2] += da * xs[2]
		ys[3] += da * xs[3]
	}
}

// ddot computes ⟨x, y⟩.
func ddot(x, y []float64) (dot float64) {
	n := uint(len(x))
	m := n % 5
	if m > uint(len(y)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dot += x[i] * y[i]
	}
	for i := m; i < n; i += 5 {
		xs := x[i : i+5 : i+5]
		ys := y[i : i+5 : i+5]
		dot += xs[0]*ys[0] + xs[1]*ys[1] + xs[2]*ys[2] + xs[3]*ys[3] + xs[4]*ys[4]
	}
	return dot
}

// dscal scales x by da.
func dscal(da float64, x []float64) {
	n := uint(len(x))
	m := n % 5
	for i := uint(0); i < m; i++ {
		x[i] *= da
	}
	for i := m; i < n; i += 5 {
		xs := x[i : i+5 : i+5]
		xs[0] *= da
		xs[1] *= da
		xs[2] *= da
		xs[3] *= da
		xs[4] *= da
	}
}

// dinfnorm computes ‖x‖∞.
func dinfnorm(x []float64) (nrm float64) {
	for _, v := range x {
		if a := math.Abs(v); a > nrm {
			nrm = a
		}
	}
	return nrm
}

// dzero fills x with zero.
func dzero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// dfill fills x with the constant v.
func dfill(v float64, x []float64) {
	for i := range x {
		x[i] = v
	}
}
