// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conic/cone"
	"github.com/curioloop/conic/sparse"
)

// tridiag5 assembles the S4 scenario: a 5×5 PSD triangle cone whose
// aggregate pattern is tridiagonal, so the clique tree is the chain
// {0,1},{1,2},{2,3},{3,4}.
func tridiag5() (*sparse.CSC, []float64, []cone.Cone) {
	const n = 5
	dim := n * (n + 1) / 2
	b := make([]float64, dim)
	for j := 0; j < n; j++ {
		b[triIndex(j, j)] = 2
		if j > 0 {
			b[triIndex(j-1, j)] = math.Sqrt2 // scaled off-diagonal 1
		}
	}
	// single decision column touching the diagonal rows
	bld := sparse.NewBuilder(dim, 1)
	for j := 0; j < n; j++ {
		bld.Add(triIndex(j, j), 0, -1)
	}
	a, _ := bld.Build()
	return a, b, []cone.Cone{cone.NewPSDTriangle(n)}
}

// S4: the decomposition must produce four 2-blocks glued by one auxiliary
// per shared diagonal entry.
func TestDecomposeChain(t *testing.T) {
	a, b, cones := tridiag5()
	d, err := Decompose(a, b, cones, Options{})
	require.NoError(t, err)
	require.True(t, d.Decomposed())

	require.Len(t, d.Cones, 4)
	for _, c := range d.Cones {
		require.Equal(t, cone.PSDTriangle, c.Kind)
		require.Equal(t, 2, c.Order)
	}
	// 4 blocks of 3 rows, 3 shared diagonal entries → 3 auxiliaries
	require.Equal(t, 12, d.NewM)
	require.Equal(t, 1, d.OrigN)
	require.Equal(t, 4, d.NewN)
	require.Equal(t, d.NewM, d.A.Rows)
	require.Equal(t, d.NewN, d.A.Cols)

	// every original pattern row has an owner, the off-pattern rows drop
	owned := 0
	for _, nr := range d.rowMap {
		if nr >= 0 {
			owned++
		}
	}
	require.Equal(t, 9, owned) // 5 diagonal + 4 off-diagonal entries
}

// The slack reversal sums the clique blocks back onto the pattern.
func TestDecomposeReverseSlack(t *testing.T) {
	a, b, cones := tridiag5()
	d, err := Decompose(a, b, cones, Options{})
	require.NoError(t, err)

	// per-clique slacks holding each clique's submatrix of tridiag(2,1),
	// with shared diagonals split evenly between their two cliques
	src := make([]float64, d.NewM)
	blk := d.blocks[0]
	for l, cl := range blk.cliques {
		k := 0
		for lj := 0; lj < len(cl); lj++ {
			for li := 0; li <= lj; li++ {
				i, j := cl[li], cl[lj]
				switch {
				case i == j && i > 0 && i < 4:
					src[blk.rowStart[l]+k] = 1 // half of the diagonal 2
				case i == j:
					src[blk.rowStart[l]+k] = 2
				default:
					src[blk.rowStart[l]+k] = math.Sqrt2
				}
				k++
			}
		}
	}
	dst := make([]float64, d.OrigM)
	d.ReverseSlack(dst, src)
	for j := 0; j < 5; j++ {
		require.InDelta(t, 2, dst[triIndex(j, j)], 1e-12)
		if j > 0 {
			require.InDelta(t, math.Sqrt2, dst[triIndex(j-1, j)], 1e-12)
		}
	}
	// off-pattern entries stay zero
	require.Zero(t, dst[triIndex(0, 2)])
	require.Zero(t, dst[triIndex(0, 4)])
}

// S4, completion half: duals agreeing on the clique entries must complete
// to a PSD 5×5 matrix that keeps those entries.
func TestDecomposeCompleteDual(t *testing.T) {
	a, b, cones := tridiag5()
	d, err := Decompose(a, b, cones, Options{})
	require.NoError(t, err)

	// per-clique duals: each clique holds [[2,1],[1,2]] (PSD), so the
	// values agree on the shared diagonals
	src := make([]float64, d.NewM)
	blk := d.blocks[0]
	for l, cl := range blk.cliques {
		k := 0
		for lj := 0; lj < len(cl); lj++ {
			for li := 0; li <= lj; li++ {
				if cl[li] == cl[lj] {
					src[blk.rowStart[l]+k] = 2
				} else {
					src[blk.rowStart[l]+k] = math.Sqrt2
				}
				k++
			}
		}
	}
	dst := make([]float64, d.OrigM)
	d.ReverseDual(dst, src)

	// clique entries preserved
	for j := 0; j < 5; j++ {
		require.InDelta(t, 2, dst[triIndex(j, j)], 1e-9)
		if j > 0 {
			require.InDelta(t, math.Sqrt2, dst[triIndex(j-1, j)], 1e-9)
		}
	}

	// the completed matrix is PSD
	full := mat.NewSymDense(5, nil)
	for j := 0; j < 5; j++ {
		for i := 0; i <= j; i++ {
			v := dst[triIndex(i, j)]
			if i != j {
				v /= math.Sqrt2
			}
			full.SetSym(i, j, v)
		}
	}
	var es mat.EigenSym
	require.True(t, es.Factorize(full, false))
	require.GreaterOrEqual(t, es.Values(nil)[0], -1e-9)
}

// A dense pattern must pass through untouched.
func TestDecomposeDenseNoop(t *testing.T) {
	const n = 3
	dim := n * (n + 1) / 2
	b := make([]float64, dim)
	for k := range b {
		b[k] = 1
	}
	bld := sparse.NewBuilder(dim, 1)
	bld.Add(0, 0, 1)
	a, _ := bld.Build()
	d, err := Decompose(a, b, []cone.Cone{cone.NewPSDTriangle(n)}, Options{})
	require.NoError(t, err)
	require.False(t, d.Decomposed())
	require.Equal(t, a, d.A)
}

// Small orders and foreign cones are never decomposed.
func TestDecomposeSkipsSmall(t *testing.T) {
	bld := sparse.NewBuilder(5, 2)
	bld.Add(0, 0, 1)
	bld.Add(3, 1, 1)
	a, _ := bld.Build()
	b := []float64{1, 0, 1, 0, 0}
	cones := []cone.Cone{cone.NewPSDTriangle(2), cone.NewNonneg(2)}
	d, err := Decompose(a, b, cones, Options{})
	require.NoError(t, err)
	require.False(t, d.Decomposed())
}
