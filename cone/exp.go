// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"math"
)

// Projection onto the exponential cone 𝒦ₑ = cl{(x,y,z) : y·eˣᐟʸ ≤ z, y > 0}.
//
// Away from the analytical cases the projection p = (x̄,ȳ,z̄) sits on the
// boundary z̄ = ȳ·e^ρ with ρ = x̄/ȳ, and v−p is normal to the boundary:
//
//	r − x̄ = λ·e^ρ,   s − ȳ = λ·e^ρ(1−ρ),   t − z̄ = −λ,   λ ≥ 0
//
// Eliminating λ and ȳ leaves a univariate root-finding problem in ρ:
//
//	h(ρ) = (r + t·e^ρ)(1 + (1−ρ)e²ᵖ) − (s + t(1−ρ)e^ρ)(ρ + e²ᵖ)
//
// solved by bracketing and bisection; the candidate with the smallest
// distance to v among the valid roots is the projection.

const expProjTol = 1e-10

// inExp tests membership in 𝒦ₑ up to tol.
func inExp(v []float64, tol float64) bool {
	x, y, z := v[0], v[1], v[2]
	if y <= tol {
		// boundary face y = 0
		return y >= -tol && x <= tol && z >= -tol
	}
	if z+tol <= 0 {
		return false
	}
	// compare in the log domain to dodge overflow of e^{x/y}
	return x <= y*math.Log((z+tol)/y)+tol
}

// inExpDual tests membership in 𝒦ₑ* = cl{(u,v,w) : −u·e^(v/u) ≤ e·w, u < 0}.
func inExpDual(p []float64, tol float64) bool {
	u, v, w := p[0], p[1], p[2]
	if u >= -tol {
		// boundary face u = 0
		return u <= tol && v >= -tol && w >= -tol
	}
	if w+tol <= 0 {
		return false
	}
	return v/u <= math.Log(math.E*(w+tol)/-u)+tol
}

// expRoot evaluates h(ρ) in an overflow-safe form: for ρ ≥ 0 the function
// is divided by e³ᵖ, which preserves the sign.
func expRoot(rho, r, s, t float64) float64 {
	if rho >= 0 {
		ei := math.Exp(-rho)
		ei2 := ei * ei
		return (r*ei+t)*(ei2+1-rho) - (s*ei+t*(1-rho))*(rho*ei2+1)
	}
	e := math.Exp(rho)
	e2 := e * e
	return (r+t*e)*(1+(1-rho)*e2) - (s+t*(1-rho)*e)*(rho+e2)
}

// expPoint reconstructs the boundary point for a root ρ, choosing the
// denominator that is guaranteed positive on its side of ρ = 1.
func expPoint(rho, r, s, t float64) (x, y, z float64, ok bool) {
	e := math.Exp(rho)
	var yb float64
	if rho <= 1 {
		yb = (s + t*(1-rho)*e) / (1 + (1-rho)*e*e)
	} else {
		yb = (r + t*e) / (rho + e*e)
	}
	if yb <= 0 || math.IsNaN(yb) || math.IsInf(yb, 0) {
		return 0, 0, 0, false
	}
	z = yb * e
	if z-t < -expProjTol { // λ = z̄ − t must stay nonnegative
		return 0, 0, 0, false
	}
	return rho * yb, yb, z, true
}

// projectExp projects v onto 𝒦ₑ in place.
func projectExp(v []float64) {
	r, s, t := v[0], v[1], v[2]

	if inExp(v, expProjTol) {
		return
	}
	neg := [3]float64{-r, -s, -t}
	if inExpDual(neg[:], expProjTol) {
		// v lies in the polar cone
		v[0], v[1], v[2] = 0, 0, 0
		return
	}
	if r <= 0 && s <= 0 {
		v[1] = 0
		v[2] = math.Max(t, 0)
		return
	}

	const lo, hi, step = -60.0, 60.0, 0.25
	bestD := math.Inf(1)
	var bx, by, bz float64
	found := false

	try := func(rho float64) {
		x, y, z, ok := expPoint(rho, r, s, t)
		if !ok {
			return
		}
		d := (r-x)*(r-x) + (s-y)*(s-y) + (t-z)*(t-z)
		if d < bestD {
			bestD, bx, by, bz = d, x, y, z
			found = true
		}
	}

	prev := expRoot(lo, r, s, t)
	for a := lo; a < hi; a += step {
		b := a + step
		cur := expRoot(b, r, s, t)
		if prev == 0 {
			try(a)
		} else if (prev < 0) != (cur < 0) {
			// bisect inside [a, b]
			la, lb := a, b
			fa := prev
			for it := 0; it < 120; it++ {
				mid := (la + lb) / 2
				fm := expRoot(mid, r, s, t)
				if fm == 0 {
					la, lb = mid, mid
					break
				}
				if (fa < 0) == (fm < 0) {
					la, fa = mid, fm
				} else {
					lb = mid
				}
			}
			try((la + lb) / 2)
		}
		prev = cur
	}

	if !found {
		// No admissible boundary root: fall back to the nearest face point.
		v[0] = math.Min(r, 0)
		v[1] = 0
		v[2] = math.Max(t, 0)
		return
	}
	v[0], v[1], v[2] = bx, by, bz
}
