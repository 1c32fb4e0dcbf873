// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// The chordal graph of Habib & Stacho, Fig. 1: eleven vertices, nine
// maximal cliques and seven minimal separators. Vertices keep their
// 1-based names; clique indices are 0-based.
func habibStacho() (*SuperNodeTree, *CliqueGraphMerge) {
	cliques := [][]int{
		{4, 5},
		{1, 4, 6},
		{1, 7},
		{1, 8},
		{1, 3, 4},
		{1, 2, 3},
		{2, 3, 9},
		{3, 4, 11},
		{3, 10},
	}
	seps := [][]int{
		{1, 3}, {1, 4}, {2, 3}, {3, 4}, {1}, {3}, {4},
	}
	nc := len(cliques)
	tr := &SuperNodeTree{
		n:        12,
		snd:      make([][]int, nc),
		sep:      make([][]int, nc),
		sndPar:   make([]int, nc),
		sndChild: make([][]int, nc),
		num:      nc,
	}
	for c := range cliques {
		tr.snd[c] = append([]int(nil), cliques[c]...)
		tr.sndPar[c] = -1
	}
	for v := 1; v <= 11; v++ {
		tr.post = append(tr.post, v)
	}
	st := NewGraphMerge(nil)
	st.seps = seps
	st.initialise(tr)
	return tr, st
}

// expected reduced clique graph, 0-based clique indices
func habibStachoEdges() []edgePair {
	oneBased := [][2]int{
		{2, 1}, {5, 1}, {8, 1}, {9, 8}, {9, 5}, {9, 7}, {7, 6}, {6, 4}, {5, 4},
		{4, 2}, {4, 3}, {3, 2}, {5, 3}, {6, 3}, {9, 6}, {8, 5}, {5, 2}, {6, 5},
	}
	out := make([]edgePair, len(oneBased))
	for k, e := range oneBased {
		out[k] = edgePair{e[0] - 1, e[1] - 1}
	}
	return out
}

func edgeSet(edges []edgePair) map[edgePair]bool {
	s := make(map[edgePair]bool, len(edges))
	for _, e := range edges {
		s[e] = true
	}
	return s
}

// Property: the reduced clique graph of the example must match exactly.
func TestReducedCliqueGraph(t *testing.T) {
	_, st := habibStacho()
	require.Equal(t, edgeSet(habibStachoEdges()), edgeSet(st.edges))
	require.Len(t, st.edges, 18)
	// every edge knows its representative separator
	require.Len(t, st.inter, 18)
	for _, k := range st.inter {
		require.GreaterOrEqual(t, k, 0)
		require.Less(t, k, len(st.seps))
	}
}

// Property: the permissible subset must be exactly
// {(7,6),(4,3),(8,5),(5,2),(6,5)} in 1-based clique indexing.
func TestPermissibleEdges(t *testing.T) {
	tr, st := habibStacho()
	want := edgeSet([]edgePair{{6, 5}, {3, 2}, {7, 4}, {4, 1}, {5, 4}})
	got := make(map[edgePair]bool)
	for _, e := range st.edges {
		if st.permissible(tr, e.u, e.v) {
			got[e] = true
		}
	}
	require.Equal(t, want, got)
}

// Property: merging cliques (5,2) (1-based) leaves snd[2] empty,
// snd[5] = {1,3,4,6}, and removes 2 from the adjacency table entirely.
func TestMergeTwoCliques(t *testing.T) {
	tr, st := habibStacho()
	cand := [2]int{4, 1} // (5,2) 1-based
	st.merge(tr, cand)
	st.update(tr, cand, true)

	require.Empty(t, tr.snd[1])
	require.Equal(t, []int{1, 3, 4, 6}, tr.snd[4])
	require.Equal(t, 8, tr.num)

	_, ok := st.adj[1]
	require.False(t, ok)
	for c, nbrs := range st.adj {
		_, has := nbrs[1]
		require.False(t, has, "clique %d still lists the merged clique", c)
	}
}

// Property: merging cliques (7,6) (1-based) similarly.
func TestMergeTwoCliquesSecond(t *testing.T) {
	tr, st := habibStacho()
	cand := [2]int{6, 5} // (7,6) 1-based
	st.merge(tr, cand)
	st.update(tr, cand, true)

	require.Empty(t, tr.snd[5])
	require.Equal(t, []int{1, 2, 3, 9}, tr.snd[6])

	_, ok := st.adj[5]
	require.False(t, ok)
	for _, nbrs := range st.adj {
		_, has := nbrs[5]
		require.False(t, has)
	}
}

// Property: Kruskal must select exactly num−1 in-tree edges connecting
// every live clique; with ComplexityWeight the example admits no merges,
// and the first traversed candidate must be permissible.
func TestMergeRunAndCliqueTree(t *testing.T) {
	tr, st := habibStacho()

	cand, weight, ok := st.traverse(tr)
	require.True(t, ok)
	require.True(t, st.permissible(tr, cand[0], cand[1]))
	permissible := edgeSet([]edgePair{{6, 5}, {3, 2}, {7, 4}, {4, 1}, {5, 4}})
	require.True(t, permissible[edgePair{cand[0], cand[1]}])
	require.Negative(t, weight) // all example cliques are too small to pay off

	// run the full scheduler on a fresh instance
	tr, st = habibStacho()
	doMerge := false
	for !st.done() && tr.num > 1 {
		c, w, ok := st.traverse(tr)
		if !ok {
			break
		}
		doMerge = st.evaluate(tr, c, w)
		if doMerge {
			st.merge(tr, c)
		}
		tr.logMerge(c, doMerge)
		st.update(tr, c, doMerge)
	}
	st.finish(tr)

	require.Equal(t, 9, tr.num) // no merge paid off
	require.False(t, tr.mergeLog[0].Merged)

	inTree := 0
	for _, w := range st.weights {
		if w == inTreeWeight {
			inTree++
		}
	}
	require.Equal(t, tr.num-1, inTree)

	// the in-tree edges connect all cliques: every non-root has a parent
	roots := 0
	for c := range tr.snd {
		if len(tr.snd[c]) == 0 {
			continue
		}
		if tr.sndPar[c] < 0 {
			roots++
		}
	}
	require.Equal(t, 1, roots)
	require.Len(t, tr.sndPost, tr.num)

	// after the snd/sep split every vertex lives in exactly one supernode
	seen := make(map[int]int)
	for c := range tr.snd {
		for _, v := range tr.snd[c] {
			seen[v]++
		}
	}
	require.Len(t, seen, 11)
	for v, n := range seen {
		require.Equal(t, 1, n, "vertex %d covered %d times", v, n)
	}

	// separators agree with the parent cliques
	for _, c := range tr.sndPost {
		if p := tr.sndPar[c]; p >= 0 {
			for _, v := range tr.sep[c] {
				require.True(t, containsVertex(sortedUnion(tr.snd[p], tr.sep[p]), v))
			}
		}
	}
}

// ComplexityWeight itself: merging two 4-cliques sharing three vertices
// wins (64+64−125 = 3), two disjoint big cliques lose.
func TestComplexityWeight(t *testing.T) {
	require.Positive(t, ComplexityWeight([]int{1, 2, 3, 4}, []int{1, 2, 3, 5}))
	require.Negative(t, ComplexityWeight([]int{1, 2, 3}, []int{4, 5, 6}))
	require.True(t, math.Signbit(ComplexityWeight([]int{1, 2}, []int{3, 4})))
}

// The scheduler honors the strategy contract end to end via Merge.
func TestSchedulerStopsOnNegativeWeight(t *testing.T) {
	tr, st := habibStacho()
	// rebuild through the public entry: strategy is already initialised,
	// so drive a fresh one
	tr2 := &SuperNodeTree{
		n: tr.n, num: 9,
		snd:      make([][]int, 9),
		sep:      make([][]int, 9),
		sndPar:   make([]int, 9),
		sndChild: make([][]int, 9),
		post:     append([]int(nil), tr.post...),
	}
	for c := range tr.snd {
		tr2.snd[c] = append([]int(nil), tr.snd[c]...)
		tr2.sndPar[c] = -1
	}
	st2 := NewGraphMerge(nil)
	st2.seps = st.seps
	tr2.Merge(st2)
	require.Equal(t, 9, tr2.num)
	require.True(t, st2.done())
	require.True(t, st2.recomputed)
}
