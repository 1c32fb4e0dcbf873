// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCones() []Cone {
	return []Cone{
		NewZero(3),
		NewNonneg(4),
		NewBox([]float64{-1, 0, 2}, []float64{1, 0.5, 3}),
		NewSOC(4),
		NewPSD(3),
		NewPSDTriangle(3),
		NewExp(),
		NewDualExp(),
		NewPow(0.3),
		NewPow(0.7),
		NewDualPow(0.4),
	}
}

func testPoints(dim int) [][]float64 {
	seeds := [][]float64{
		{1.3, -0.7, 2.1, -3.3, 0.4, 1.1, -0.2, 0.9, -1.5, 2.2},
		{-2.0, -2.0, -2.0, -2.0, -2.0, -2.0, -2.0, -2.0, -2.0, -2.0},
		{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
		{3.0, -0.1, 0.0, 1.7, -2.4, 0.3, 2.8, -1.9, 0.6, -0.8},
	}
	pts := make([][]float64, 0, len(seeds))
	for _, s := range seeds {
		v := make([]float64, dim)
		for i := range v {
			v[i] = s[i%len(s)]
		}
		pts = append(pts, v)
	}
	return pts
}

// Projection must be idempotent for every variant.
func TestProjectionIdempotent(t *testing.T) {
	for _, c := range testCones() {
		for _, v := range testPoints(c.Dim()) {
			p := append([]float64(nil), v...)
			c.Project(p)
			pp := append([]float64(nil), p...)
			c.Project(pp)
			for i := range p {
				require.InDelta(t, p[i], pp[i], 1e-8,
					"cone kind %d not idempotent at %d", c.Kind, i)
			}
		}
	}
}

// The projected point must be a member of its cone.
func TestProjectionMembership(t *testing.T) {
	for _, c := range testCones() {
		for _, v := range testPoints(c.Dim()) {
			p := append([]float64(nil), v...)
			c.Project(p)
			require.True(t, c.Contains(p, 1e-7),
				"cone kind %d: projection not inside", c.Kind)
		}
	}
}

// Moreau: v = Π_𝒦(v) + Π_𝒦°(v) with the two parts orthogonal. Checks the
// iterative exponential and power projections against first principles.
func TestProjectionOptimality(t *testing.T) {
	cones := []Cone{NewExp(), NewDualExp(), NewPow(0.4), NewDualPow(0.6), NewSOC(4)}
	for _, c := range cones {
		for _, v := range testPoints(c.Dim()) {
			p := append([]float64(nil), v...)
			c.Project(p)
			q := make([]float64, len(v)) // residual v − p, expected in 𝒦°
			var dot float64
			for i := range v {
				q[i] = v[i] - p[i]
				dot += p[i] * q[i]
			}
			require.InDelta(t, 0, dot, 1e-6, "cone kind %d: ⟨p, v−p⟩ ≠ 0", c.Kind)
			for i := range q {
				q[i] = -q[i]
			}
			require.True(t, c.InDual(q, 1e-6), "cone kind %d: v−p not polar", c.Kind)
		}
	}
}

func TestBoxClamp(t *testing.T) {
	c := NewBox([]float64{0, 0}, []float64{1, 1})
	v := []float64{-0.5, 2.0}
	c.Project(v)
	require.Equal(t, []float64{0, 1}, v)
}

func TestSOCBranches(t *testing.T) {
	inside := []float64{2, 1, 1}
	c := NewSOC(3)
	got := append([]float64(nil), inside...)
	c.Project(got)
	require.Equal(t, inside, got)

	opposite := []float64{-2, 1, 1}
	c.Project(opposite)
	require.Equal(t, []float64{0, 0, 0}, opposite)

	boundary := []float64{0, 1, 0}
	c.Project(boundary)
	require.InDelta(t, 0.5, boundary[0], 1e-12)
	require.InDelta(t, 0.5, boundary[1], 1e-12)
	require.InDelta(t, 0.0, boundary[2], 1e-12)
}

func TestPSDTriangleKnown(t *testing.T) {
	// diag(1, -1) projects to diag(1, 0)
	v := []float64{1, 0, -1}
	c := NewPSDTriangle(2)
	c.Project(v)
	require.InDelta(t, 1, v[0], 1e-10)
	require.InDelta(t, 0, v[1], 1e-10)
	require.InDelta(t, 0, v[2], 1e-10)
}

func TestPSDFullKnown(t *testing.T) {
	// [[0,1],[1,0]] has eigenvalues ±1; projection is ½[[1,1],[1,1]]
	v := []float64{0, 1, 1, 0}
	c := NewPSD(2)
	c.Project(v)
	for _, x := range v {
		require.InDelta(t, 0.5, x, 1e-10)
	}
}

func TestTriangleRoundTrip(t *testing.T) {
	tri := []float64{1, 2, 3, 4, 5, 6}
	full := make([]float64, 9)
	triToFull(full, tri, 3)
	back := make([]float64, 6)
	fullToTri(back, full, 3)
	for i := range tri {
		require.InDelta(t, tri[i], back[i], 1e-12)
	}
}

func TestZeroConeMembership(t *testing.T) {
	c := NewZero(2)
	require.True(t, c.InDual([]float64{5, -3}, 0))       // dual of {0} is everything
	require.True(t, c.InRecc([]float64{0, 0}, 1e-12))    // recession is {0}
	require.False(t, c.InRecc([]float64{0.1, 0}, 1e-12))
}

func TestExpSpecialCases(t *testing.T) {
	c := NewExp()
	// third-quadrant case (x ≤ 0, y ≤ 0) maps to (x, 0, max(z, 0))
	v := []float64{-1, -2, -3}
	c.Project(v)
	require.Equal(t, []float64{-1, 0, 0}, v)

	// interior point is untouched
	in := []float64{0, 1, 2}
	c.Project(in)
	require.Equal(t, []float64{0, 1, 2}, in)
}

func TestValidateAll(t *testing.T) {
	cones := []Cone{NewZero(2), NewNonneg(3)}
	require.NoError(t, ValidateAll(cones, 5))
	require.ErrorIs(t, ValidateAll(cones, 6), ErrPartition)
	bad := []Cone{NewPow(1.5)}
	require.ErrorIs(t, ValidateAll(bad, 3), ErrCone)
}

func TestSupportInf(t *testing.T) {
	c := NewBox([]float64{0, -1}, []float64{2, 1})
	// inf over the box of ⟨y, s⟩ picks l on positive and u on negative entries
	require.InDelta(t, 0*1+1*-1, c.SupportInf([]float64{1, -1}), 1e-15)
	c2 := NewBox([]float64{math.Inf(-1)}, []float64{1})
	require.False(t, math.IsNaN(c2.SupportInf([]float64{0})))
}
