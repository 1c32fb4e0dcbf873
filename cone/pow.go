// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"math"
)

// Projection onto the power cone 𝒦ₐ = {(x,y,z) : xᵅ·y¹⁻ᵅ ≥ |z|, x,y ≥ 0}.
//
// Outside the analytical cases the projection follows the one-parameter
// characterization of Hien: for r ∈ (0,|z|) let
//
//	x̄(r) = ½(x + √(x² + 4αr(|z|−r)))
//	ȳ(r) = ½(y + √(y² + 4(1−α)r(|z|−r)))
//
// then the projection is (x̄(r*), ȳ(r*), sign(z)·r*) at the root r* of
//
//	f(r) = x̄(r)ᵅ·ȳ(r)¹⁻ᵅ − r
//
// which is found by bisection: f(0⁺) ≥ 0 and f(|z|) < 0 whenever v is in
// neither the cone nor its polar.

const powProjTol = 1e-10

// inPow tests membership in 𝒦ₐ up to tol.
func inPow(v []float64, alpha, tol float64) bool {
	x, y, z := v[0], v[1], v[2]
	if x < -tol || y < -tol {
		return false
	}
	x, y = math.Max(x, 0), math.Max(y, 0)
	return math.Pow(x, alpha)*math.Pow(y, 1-alpha) >= math.Abs(z)-tol
}

// inPowDual tests membership in the dual cone
// 𝒦ₐ* = {(u,v,w) : (u/α)ᵅ·(v/(1−α))¹⁻ᵅ ≥ |w|, u,v ≥ 0}.
func inPowDual(p []float64, alpha, tol float64) bool {
	u, v, w := p[0], p[1], p[2]
	if u < -tol || v < -tol {
		return false
	}
	u, v = math.Max(u, 0), math.Max(v, 0)
	return math.Pow(u/alpha, alpha)*math.Pow(v/(1-alpha), 1-alpha) >= math.Abs(w)-tol
}

// projectPow projects v onto 𝒦ₐ in place.
func projectPow(v []float64, alpha float64) {
	x, y, z := v[0], v[1], v[2]

	if inPow(v, alpha, powProjTol) {
		return
	}
	neg := [3]float64{-x, -y, -z}
	if inPowDual(neg[:], alpha, powProjTol) {
		v[0], v[1], v[2] = 0, 0, 0
		return
	}
	az := math.Abs(z)
	if az <= powProjTol {
		v[0] = math.Max(x, 0)
		v[1] = math.Max(y, 0)
		v[2] = 0
		return
	}

	point := func(r float64) (xb, yb float64) {
		g := r * (az - r)
		xb = (x + math.Sqrt(x*x+4*alpha*g)) / 2
		yb = (y + math.Sqrt(y*y+4*(1-alpha)*g)) / 2
		return
	}
	f := func(r float64) float64 {
		xb, yb := point(r)
		return math.Pow(xb, alpha)*math.Pow(yb, 1-alpha) - r
	}

	lo, hi := 0.0, az
	for it := 0; it < 200; it++ {
		mid := (lo + hi) / 2
		if f(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	r := (lo + hi) / 2
	xb, yb := point(r)
	v[0], v[1] = xb, yb
	v[2] = math.Copysign(r, z)
}
