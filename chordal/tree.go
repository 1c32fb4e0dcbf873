// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chordal decomposes large positive semidefinite constraints along
// a chordal sparsity pattern: it builds the supernodal elimination tree of
// the pattern, constructs the reduced clique graph, merges cliques to trade
// subproblem count against per-projection cost, and completes the recovered
// dual to a full PSD matrix over the final clique tree.
package chordal

import (
	"errors"
	"sort"
)

// ErrPattern indicates an invalid sparsity pattern description.
var ErrPattern = errors.New("chordal: invalid sparsity pattern")

// MergeRecord captures one scheduler decision for inspection.
type MergeRecord struct {
	Cand   [2]int
	Merged bool
}

// SuperNodeTree holds the supernodal decomposition of a chordal (or
// chordally extended) sparsity pattern and, after merging, the final
// clique tree used for decomposition and completion.
//
// Invariants: snd[i] ∩ sep[i] = ∅; the union of all snd covers every
// vertex exactly once; a clique whose snd is empty has been merged away
// and appears in neither sndPost nor the adjacency structures.
type SuperNodeTree struct {
	n        int
	snd      [][]int // supernode (residual) vertex sets, sorted
	sep      [][]int // separator vertex sets, sorted
	sndPar   []int   // parent clique index, -1 at a root
	sndChild [][]int // child clique indices
	post     []int   // vertex postorder sequence
	sndPost  []int   // live clique indices in postorder
	num      int     // live clique count
	mergeLog []MergeRecord
}

// NumCliques reports the number of live cliques.
func (t *SuperNodeTree) NumCliques() int { return t.num }

// MergeLog returns the scheduler decisions taken so far.
func (t *SuperNodeTree) MergeLog() []MergeRecord { return t.mergeLog }

// Clique returns the full vertex set snd[c] ∪ sep[c].
func (t *SuperNodeTree) Clique(c int) []int { return sortedUnion(t.snd[c], t.sep[c]) }

// PostOrder returns the live clique indices in postorder.
func (t *SuperNodeTree) PostOrder() []int { return t.sndPost }

// Parent returns the parent clique of c, or -1 at a root.
func (t *SuperNodeTree) Parent(c int) int { return t.sndPar[c] }

// NewSuperNodeTree builds the supernodal elimination tree of the pattern
// given by the off-diagonal entries (rows[k], cols[k]) of an n×n symmetric
// matrix. The pattern is chordally extended by the symbolic factorization
// fill-in of the natural ordering.
func NewSuperNodeTree(n int, rows, cols []int) (*SuperNodeTree, error) {
	if n <= 0 || len(rows) != len(cols) {
		return nil, ErrPattern
	}

	// Lower-triangular adjacency: lower[j] = {i > j : (i,j) nonzero}.
	lowerSet := make([]map[int]struct{}, n)
	for j := range lowerSet {
		lowerSet[j] = make(map[int]struct{})
	}
	for k := range rows {
		i, j := rows[k], cols[k]
		if i < 0 || i >= n || j < 0 || j >= n {
			return nil, ErrPattern
		}
		if i == j {
			continue
		}
		if i < j {
			i, j = j, i
		}
		lowerSet[j][i] = struct{}{}
	}
	lower := make([][]int, n)
	for j := range lower {
		s := make([]int, 0, len(lowerSet[j]))
		for v := range lowerSet[j] {
			s = append(s, v)
		}
		sort.Ints(s)
		lower[j] = s
	}

	t := &SuperNodeTree{n: n}
	parent := etree(n, lower)
	t.post = postOrderVertices(n, parent)
	higher := symbolicFill(n, lower, parent, t.post)
	t.buildSupernodes(parent, higher)
	return t, nil
}

// etree computes the elimination tree by Liu's path-compression
// algorithm, processing columns in ascending order.
func etree(n int, lower [][]int) []int {
	upper := make([][]int, n)
	for j := range lower {
		for _, i := range lower[j] {
			upper[i] = append(upper[i], j)
		}
	}
	parent := make([]int, n)
	ancestor := make([]int, n)
	for i := range parent {
		parent[i] = -1
		ancestor[i] = -1
	}
	for k := 0; k < n; k++ {
		for _, i := range upper[k] {
			// walk the ancestor chain of i up to k
			r := i
			for ancestor[r] != -1 && ancestor[r] != k {
				next := ancestor[r]
				ancestor[r] = k
				r = next
			}
			if ancestor[r] == -1 {
				ancestor[r] = k
				parent[r] = k
			}
		}
	}
	return parent
}

// postOrderVertices returns the vertices in postorder of the elimination
// forest, children visited in ascending order, roots in ascending order.
// The DFS keeps an explicit stack.
func postOrderVertices(n int, parent []int) []int {
	child := make([][]int, n)
	for v := 0; v < n; v++ {
		if p := parent[v]; p >= 0 {
			child[p] = append(child[p], v)
		}
	}
	post := make([]int, 0, n)
	type frame struct{ v, next int }
	var stack []frame
	for r := 0; r < n; r++ {
		if parent[r] != -1 {
			continue
		}
		stack = append(stack[:0], frame{r, 0})
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(child[f.v]) {
				c := child[f.v][f.next]
				f.next++
				stack = append(stack, frame{c, 0})
				continue
			}
			post = append(post, f.v)
			stack = stack[:len(stack)-1]
		}
	}
	return post
}

// symbolicFill computes the filled column structures
// higher[j] = {i > j : Lᵢⱼ ≠ 0} of the symbolic Cholesky factor.
func symbolicFill(n int, lower [][]int, parent []int, post []int) [][]int {
	child := make([][]int, n)
	for v := 0; v < n; v++ {
		if p := parent[v]; p >= 0 {
			child[p] = append(child[p], v)
		}
	}
	higher := make([][]int, n)
	mark := make([]int, n)
	for i := range mark {
		mark[i] = -1
	}
	for _, j := range post { // children appear before parents
		var s []int
		for _, i := range lower[j] {
			if mark[i] != j {
				mark[i] = j
				s = append(s, i)
			}
		}
		for _, c := range child[j] {
			for _, i := range higher[c] {
				if i != j && mark[i] != j {
					mark[i] = j
					s = append(s, i)
				}
			}
		}
		sort.Ints(s)
		higher[j] = s
	}
	return higher
}

// buildSupernodes detects supernodes with the Pothen–Sun criterion, splits
// each clique into its supernode and separator, and assembles the
// supernodal tree with its postorder.
func (t *SuperNodeTree) buildSupernodes(parent []int, higher [][]int) {
	n := t.n
	child := make([][]int, n)
	for v := 0; v < n; v++ {
		if p := parent[v]; p >= 0 {
			child[p] = append(child[p], v)
		}
	}

	// A vertex joins the supernode of a child whose higher degree exceeds
	// its own by exactly one; otherwise it starts a new supernode.
	rep := make([]int, n)
	for _, v := range t.post {
		rep[v] = v
		for _, c := range child[v] {
			if len(higher[c]) == len(higher[v])+1 {
				rep[v] = rep[c]
				break
			}
		}
	}

	// Representatives in ascending vertex order define the clique indexing.
	var reps []int
	cliqueOf := make(map[int]int)
	for v := 0; v < n; v++ {
		if rep[v] == v {
			cliqueOf[v] = len(reps)
			reps = append(reps, v)
		}
	}
	nc := len(reps)
	t.num = nc
	t.snd = make([][]int, nc)
	t.sep = make([][]int, nc)
	t.sndPar = make([]int, nc)
	t.sndChild = make([][]int, nc)

	for v := 0; v < n; v++ {
		c := cliqueOf[rep[v]]
		t.snd[c] = append(t.snd[c], v)
	}
	for c, r := range reps {
		sort.Ints(t.snd[c])
		clique := sortedUnion([]int{r}, higher[r])
		t.sep[c] = sortedSubtract(clique, t.snd[c])
	}

	// The clique's parent is the clique owning the elimination-tree parent
	// of its top vertex.
	for c := range reps {
		top := t.snd[c][len(t.snd[c])-1]
		pv := parent[top]
		if pv < 0 {
			t.sndPar[c] = -1
			continue
		}
		pc := cliqueOf[rep[pv]]
		t.sndPar[c] = pc
		t.sndChild[pc] = append(t.sndChild[pc], c)
	}
	t.recomputePostOrder()
}

// recomputePostOrder rebuilds sndPost over the live cliques by iterative
// DFS, children in ascending index order.
func (t *SuperNodeTree) recomputePostOrder() {
	nc := len(t.snd)
	t.sndPost = t.sndPost[:0]
	type frame struct{ c, next int }
	var stack []frame
	for r := 0; r < nc; r++ {
		if len(t.snd[r]) == 0 || t.sndPar[r] != -1 {
			continue
		}
		stack = append(stack[:0], frame{r, 0})
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(t.sndChild[f.c]) {
				c := t.sndChild[f.c][f.next]
				f.next++
				if len(t.snd[c]) == 0 {
					continue
				}
				stack = append(stack, frame{c, 0})
				continue
			}
			t.sndPost = append(t.sndPost, f.c)
			stack = stack[:len(stack)-1]
		}
	}
}

func (t *SuperNodeTree) logMerge(cand [2]int, merged bool) {
	t.mergeLog = append(t.mergeLog, MergeRecord{Cand: cand, Merged: merged})
}
