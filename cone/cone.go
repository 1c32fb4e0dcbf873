// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cone implements the convex cones a conic solver projects onto:
// the zero cone, the nonnegative orthant, box sets, second-order cones,
// dense and triangle-packed positive semidefinite cones, and the
// exponential and power cones together with their duals.
//
// A cone is a tagged variant rather than an interface so that composite
// projection is a flat traversal with a single dispatch per block:
//
//	𝒦 = 𝒦₁ × 𝒦₂ × ··· × 𝒦ₖ    Π_𝒦(s) = (Π_𝒦₁(s₁), ···, Π_𝒦ₖ(sₖ))
//
// Every projection is total on ℝⁿ and idempotent.
package cone

import (
	"errors"
	"math"
)

// Kind tags the cone variant.
type Kind int

const (
	// Zero is the zero set {0}, the conic form of an equality constraint.
	Zero Kind = iota
	// Nonneg is the nonnegative orthant ℝ₊ⁿ.
	Nonneg
	// Box is the interval set {s : l ≤ s ≤ u}.
	Box
	// SOC is the second-order cone {(t,x) : ‖x‖₂ ≤ t}.
	SOC
	// PSD is the cone of positive semidefinite matrices, stored as a full
	// column-major n×n symmetric matrix.
	PSD
	// PSDTriangle is the PSD cone over the packed upper triangle with
	// off-diagonal entries scaled by √2 so that inner products agree.
	PSDTriangle
	// Exp is the exponential cone cl{(x,y,z) : y·eˣᐟʸ ≤ z, y > 0}.
	Exp
	// DualExp is the dual of the exponential cone.
	DualExp
	// Pow is the power cone {(x,y,z) : xᵅy¹⁻ᵅ ≥ |z|, x,y ≥ 0}.
	Pow
	// DualPow is the dual of the power cone.
	DualPow
)

// ErrCone indicates an invalid cone descriptor.
var ErrCone = errors.New("cone: invalid cone descriptor")

// ErrPartition indicates that the cone dimensions do not partition the
// constraint rows exactly.
var ErrPartition = errors.New("cone: cones do not partition the constraint rows")

const sqrt2 = math.Sqrt2

// Cone is a tagged cone variant operating on a contiguous slice of the
// composite slack vector.
type Cone struct {
	Kind  Kind
	dim   int
	L, U  []float64 // Box bounds
	Order int       // PSD matrix order
	Alpha float64   // Pow exponent α ∈ (0,1)
}

// NewZero returns the zero set of the given dimension.
func NewZero(dim int) Cone { return Cone{Kind: Zero, dim: dim} }

// NewNonneg returns the nonnegative orthant of the given dimension.
func NewNonneg(dim int) Cone { return Cone{Kind: Nonneg, dim: dim} }

// NewBox returns the interval set [l, u]. The bound slices are retained
// and rescaled in place by the equilibration hook.
func NewBox(l, u []float64) Cone { return Cone{Kind: Box, dim: len(l), L: l, U: u} }

// NewSOC returns a second-order cone of the given dimension (t plus dim-1
// vector entries).
func NewSOC(dim int) Cone { return Cone{Kind: SOC, dim: dim} }

// NewPSD returns the PSD cone over full column-major n×n storage.
func NewPSD(n int) Cone { return Cone{Kind: PSD, dim: n * n, Order: n} }

// NewPSDTriangle returns the PSD cone over √2-scaled packed upper
// triangle storage of length n(n+1)/2.
func NewPSDTriangle(n int) Cone { return Cone{Kind: PSDTriangle, dim: n * (n + 1) / 2, Order: n} }

// NewExp returns the exponential cone.
func NewExp() Cone { return Cone{Kind: Exp, dim: 3} }

// NewDualExp returns the dual exponential cone.
func NewDualExp() Cone { return Cone{Kind: DualExp, dim: 3} }

// NewPow returns the power cone with exponent alpha.
func NewPow(alpha float64) Cone { return Cone{Kind: Pow, dim: 3, Alpha: alpha} }

// NewDualPow returns the dual power cone with exponent alpha.
func NewDualPow(alpha float64) Cone { return Cone{Kind: DualPow, dim: 3, Alpha: alpha} }

// Dim reports the number of slack rows the cone occupies.
func (c *Cone) Dim() int { return c.dim }

// Validate checks the descriptor for structural consistency.
func (c *Cone) Validate() error {
	switch c.Kind {
	case Zero, Nonneg:
		if c.dim < 0 {
			return ErrCone
		}
	case Box:
		if len(c.L) != c.dim || len(c.U) != c.dim {
			return ErrCone
		}
		for i := range c.L {
			if c.L[i] > c.U[i] {
				return ErrCone
			}
		}
	case SOC:
		if c.dim < 1 {
			return ErrCone
		}
	case PSD:
		if c.Order < 1 || c.dim != c.Order*c.Order {
			return ErrCone
		}
	case PSDTriangle:
		if c.Order < 1 || c.dim != c.Order*(c.Order+1)/2 {
			return ErrCone
		}
	case Exp, DualExp:
		if c.dim != 3 {
			return ErrCone
		}
	case Pow, DualPow:
		if c.dim != 3 || c.Alpha <= 0 || c.Alpha >= 1 {
			return ErrCone
		}
	default:
		return ErrCone
	}
	return nil
}

// Project replaces v by its orthogonal projection onto the cone.
func (c *Cone) Project(v []float64) {
	switch c.Kind {
	case Zero:
		for i := range v {
			v[i] = 0
		}
	case Nonneg:
		for i := range v {
			if v[i] < 0 {
				v[i] = 0
			}
		}
	case Box:
		for i := range v {
			if v[i] < c.L[i] {
				v[i] = c.L[i]
			} else if v[i] > c.U[i] {
				v[i] = c.U[i]
			}
		}
	case SOC:
		projectSOC(v)
	case PSD:
		projectPSDFull(v, c.Order)
	case PSDTriangle:
		projectPSDTriangle(v, c.Order)
	case Exp:
		projectExp(v)
	case DualExp:
		projectDual(v, projectExp)
	case Pow:
		projectPow(v, c.Alpha)
	case DualPow:
		projectDual(v, func(w []float64) { projectPow(w, c.Alpha) })
	}
}

// projectSOC projects (t, x) onto {‖x‖₂ ≤ t}.
func projectSOC(v []float64) {
	t := v[0]
	var nx float64
	for _, xi := range v[1:] {
		nx += xi * xi
	}
	nx = math.Sqrt(nx)
	switch {
	case nx <= t:
		// already inside
	case nx <= -t:
		for i := range v {
			v[i] = 0
		}
	default:
		a := (t + nx) / 2
		v[0] = a
		scale := a / nx
		for i := 1; i < len(v); i++ {
			v[i] *= scale
		}
	}
}

// projectDual projects onto the dual cone through the Moreau identity
// Π_𝒦*(v) = v + Π_𝒦(−v).
func projectDual(v []float64, primal func([]float64)) {
	var w [3]float64
	for i := range v {
		w[i] = -v[i]
	}
	primal(w[:len(v)])
	for i := range v {
		v[i] += w[i]
	}
}

// Contains reports membership of v in the cone, up to tol.
func (c *Cone) Contains(v []float64, tol float64) bool {
	switch c.Kind {
	case Zero:
		return maxAbs(v) <= tol
	case Nonneg:
		return minOf(v) >= -tol
	case Box:
		for i := range v {
			if v[i] < c.L[i]-tol || v[i] > c.U[i]+tol {
				return false
			}
		}
		return true
	case SOC:
		var nx float64
		for _, xi := range v[1:] {
			nx += xi * xi
		}
		return math.Sqrt(nx) <= v[0]+tol
	case PSD:
		return minEigFull(v, c.Order) >= -tol
	case PSDTriangle:
		return minEigTriangle(v, c.Order) >= -tol
	case Exp:
		return inExp(v, tol)
	case DualExp:
		return inExpDual(v, tol)
	case Pow:
		return inPow(v, c.Alpha, tol)
	case DualPow:
		return inPowDual(v, c.Alpha, tol)
	}
	return false
}

// InDual reports membership of y in the dual cone, up to tol. The box is
// not a cone; its support function is finite everywhere, so every y is
// admissible and SupportInf supplies the certificate correction instead.
func (c *Cone) InDual(y []float64, tol float64) bool {
	switch c.Kind {
	case Zero, Box:
		return true
	case Nonneg:
		return minOf(y) >= -tol
	case SOC, PSD, PSDTriangle:
		return c.Contains(y, tol) // self-dual
	case Exp:
		return inExpDual(y, tol)
	case DualExp:
		return inExp(y, tol)
	case Pow:
		return inPowDual(y, c.Alpha, tol)
	case DualPow:
		return inPow(y, c.Alpha, tol)
	}
	return false
}

// InRecc reports membership of x in the recession cone, up to tol.
// Every variant except the box is its own recession cone; a bounded box
// recedes only to {0}.
func (c *Cone) InRecc(x []float64, tol float64) bool {
	switch c.Kind {
	case Zero:
		return maxAbs(x) <= tol
	case Box:
		for i := range x {
			lo := math.IsInf(c.L[i], -1)
			up := math.IsInf(c.U[i], 1)
			switch {
			case lo && up:
			case lo:
				if x[i] > tol {
					return false
				}
			case up:
				if x[i] < -tol {
					return false
				}
			default:
				if math.Abs(x[i]) > tol {
					return false
				}
			}
		}
		return true
	default:
		return c.Contains(x, tol)
	}
}

// SupportInf evaluates inf{⟨y,s⟩ : s in the cone} assuming the infimum is
// finite. Only the box contributes; proper cones return 0 once InDual holds.
func (c *Cone) SupportInf(y []float64) float64 {
	if c.Kind != Box {
		return 0
	}
	var s float64
	for i, yi := range y {
		switch {
		case yi > 0:
			s += c.L[i] * yi
		case yi < 0:
			s += c.U[i] * yi
		}
	}
	return s
}

// ScalarScaling reports whether equilibration must collapse the E block on
// this cone's rows to a single repeated value.
func (c *Cone) ScalarScaling() bool {
	switch c.Kind {
	case SOC, PSD, PSDTriangle, Exp, DualExp, Pow, DualPow:
		return true
	}
	return false
}

// ScaleHook lets a cone absorb the row equilibration applied to its slack
// slice. Only the box carries data that must follow the scaling.
func (c *Cone) ScaleHook(e []float64) {
	if c.Kind != Box {
		return
	}
	for i := range c.L {
		c.L[i] *= e[i]
		c.U[i] *= e[i]
	}
}

// Dims sums the row span of a cone list.
func Dims(cones []Cone) int {
	d := 0
	for i := range cones {
		d += cones[i].dim
	}
	return d
}

// ValidateAll checks every descriptor and that the cones partition rows
// 0..m exactly.
func ValidateAll(cones []Cone, m int) error {
	for i := range cones {
		if err := cones[i].Validate(); err != nil {
			return err
		}
	}
	if Dims(cones) != m {
		return ErrPartition
	}
	return nil
}

// ProjectAll projects the composite slack in place, one block at a time.
func ProjectAll(cones []Cone, s []float64) {
	off := 0
	for i := range cones {
		d := cones[i].dim
		cones[i].Project(s[off : off+d])
		off += d
	}
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func minOf(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		if x < m {
			m = x
		}
	}
	if len(v) == 0 {
		return 0
	}
	return m
}
