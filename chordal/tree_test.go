// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// A path pattern 0–1–2–3–4 must yield the chain cliques
// {0,1},{1,2},{2,3},{3,4}.
func TestSuperNodeTreeChain(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	cols := []int{0, 1, 2, 3}
	tr, err := NewSuperNodeTree(5, rows, cols)
	require.NoError(t, err)
	require.Equal(t, 4, tr.NumCliques())

	var cliques [][]int
	for _, c := range tr.PostOrder() {
		cliques = append(cliques, tr.Clique(c))
	}
	require.ElementsMatch(t, [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}, cliques)

	// supernodes partition the vertices
	seen := map[int]int{}
	for c := range tr.snd {
		for _, v := range tr.snd[c] {
			seen[v]++
		}
	}
	require.Len(t, seen, 5)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}
}

// A complete pattern collapses into a single clique.
func TestSuperNodeTreeDense(t *testing.T) {
	var rows, cols []int
	for j := 0; j < 4; j++ {
		for i := j + 1; i < 4; i++ {
			rows = append(rows, i)
			cols = append(cols, j)
		}
	}
	tr, err := NewSuperNodeTree(4, rows, cols)
	require.NoError(t, err)
	require.Equal(t, 1, tr.NumCliques())
	require.Equal(t, []int{0, 1, 2, 3}, tr.Clique(tr.PostOrder()[0]))
}

// A non-chordal cycle gains fill through the symbolic factorization and
// still produces a valid clique tree.
func TestSuperNodeTreeCycleFill(t *testing.T) {
	// 4-cycle 0-1-2-3-0
	rows := []int{1, 2, 3, 3}
	cols := []int{0, 1, 2, 0}
	tr, err := NewSuperNodeTree(4, rows, cols)
	require.NoError(t, err)
	// fill edge (1,3) splits the square into two triangles
	require.Equal(t, 2, tr.NumCliques())
	for _, c := range tr.PostOrder() {
		require.Len(t, tr.Clique(c), 3)
	}
}

func TestSuperNodeTreeRejectsBadPattern(t *testing.T) {
	_, err := NewSuperNodeTree(0, nil, nil)
	require.ErrorIs(t, err, ErrPattern)
	_, err = NewSuperNodeTree(3, []int{5}, []int{0})
	require.ErrorIs(t, err, ErrPattern)
}

// ParentChildMerge folds small cliques into their parents.
func TestParentChildMerge(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	cols := []int{0, 1, 2, 3}
	tr, err := NewSuperNodeTree(5, rows, cols)
	require.NoError(t, err)

	tr.Merge(NewParentChildMerge(4, 4))
	require.Equal(t, 1, tr.num)

	var full []int
	for c := range tr.snd {
		full = append(full, tr.snd[c]...)
	}
	require.ElementsMatch(t, []int{0, 1, 2, 3, 4}, full)
}

// NoMerge leaves the tree untouched.
func TestNoMerge(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	cols := []int{0, 1, 2, 3}
	tr, err := NewSuperNodeTree(5, rows, cols)
	require.NoError(t, err)
	tr.Merge(NewNoMerge())
	require.Equal(t, 4, tr.num)
	require.Empty(t, tr.MergeLog())
}
