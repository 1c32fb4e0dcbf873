// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"math"
	"sort"
)

// The reduced clique graph is the union of all clique trees of a chordal
// graph. Its edges are found separator by separator: for a separator S the
// cliques containing S are split into components of the separator graph H
// (cliques joined when their intersection strictly exceeds S), and every
// cross-component pair becomes an edge represented by S.

// edgePair is an undirected clique-graph edge stored as (u, v) with u > v.
type edgePair struct{ u, v int }

// EdgeWeightFunc scores a candidate merge of two cliques given their full
// vertex sets. Larger is more attractive; a negative score predicts the
// merge does not pay.
type EdgeWeightFunc func(ci, cj []int) float64

// ComplexityWeight is the default edge metric
//
//	w(Cᵢ,Cⱼ) = |Cᵢ|³ + |Cⱼ|³ − |Cᵢ ∪ Cⱼ|³
//
// estimating the cubic eigendecomposition cost saved (or added) by
// projecting one merged block instead of two.
func ComplexityWeight(ci, cj []int) float64 {
	a, b := float64(len(ci)), float64(len(cj))
	u := float64(len(ci) + len(cj) - intersectLen(ci, cj))
	return a*a*a + b*b*b - u*u*u
}

// CliqueGraphMerge merges cliques on the reduced clique graph. Edge
// bookkeeping uses stable indices: a removed edge is tombstoned with −∞
// weight instead of deleted so the permutation workspace stays valid
// across rounds; Kruskal later marks spanning-tree edges with weight −1.
type CliqueGraphMerge struct {
	// EdgeWeight scores candidate merges; nil selects ComplexityWeight.
	EdgeWeight EdgeWeightFunc

	seps    [][]int // minimal separators, descending cardinality, strategy-owned
	edges   []edgePair
	inter   []int // separator index per edge, into seps
	weights []float64
	adj     map[int]map[int]struct{}
	p       []int // permutation workspace over edges
	stop    bool
	recomputed bool
}

// NewGraphMerge returns the graph-based merge strategy with the given
// edge metric (nil for ComplexityWeight).
func NewGraphMerge(weight EdgeWeightFunc) *CliqueGraphMerge {
	return &CliqueGraphMerge{EdgeWeight: weight}
}

func (s *CliqueGraphMerge) weightOf(t *SuperNodeTree, u, v int) float64 {
	if s.EdgeWeight != nil {
		return s.EdgeWeight(t.snd[u], t.snd[v])
	}
	return ComplexityWeight(t.snd[u], t.snd[v])
}

// initialise flattens each clique into snd (the graph strategy works on
// full cliques), collects the minimal separators, and builds the reduced
// clique graph with its adjacency table.
func (s *CliqueGraphMerge) initialise(t *SuperNodeTree) {
	if s.seps == nil {
		seen := make(map[string]bool)
		for c := range t.snd {
			if len(t.snd[c]) == 0 || t.sndPar[c] < 0 || len(t.sep[c]) == 0 {
				continue
			}
			key := setKey(t.sep[c])
			if !seen[key] {
				seen[key] = true
				s.seps = append(s.seps, append([]int(nil), t.sep[c]...))
			}
		}
	} else {
		// caller-supplied separators are copied, never mutated
		cp := make([][]int, len(s.seps))
		for k := range s.seps {
			cp[k] = append([]int(nil), s.seps[k]...)
		}
		s.seps = cp
	}
	for c := range t.snd {
		if len(t.snd[c]) == 0 {
			continue
		}
		t.snd[c] = sortedUnion(t.snd[c], t.sep[c])
		t.sep[c] = nil
	}
	s.buildGraph(t)
}

// buildGraph computes the reduced clique graph edges, their representative
// separators, weights and the adjacency table.
func (s *CliqueGraphMerge) buildGraph(t *SuperNodeTree) {
	// Sort separators by descending cardinality into strategy-owned storage.
	sort.SliceStable(s.seps, func(a, b int) bool { return len(s.seps[a]) > len(s.seps[b]) })

	for k, sep := range s.seps {
		// cliques containing the separator
		var cs []int
		for c := range t.snd {
			if len(t.snd[c]) > 0 && isSubset(sep, t.snd[c]) {
				cs = append(cs, c)
			}
		}
		if len(cs) < 2 {
			continue
		}
		// separator graph H: an edge when the intersection strictly
		// exceeds the separator (tested without materializing it)
		adjH := make([][]int, len(cs))
		for a := 0; a < len(cs); a++ {
			for b := a + 1; b < len(cs); b++ {
				if intersectLen(t.snd[cs[a]], t.snd[cs[b]]) > len(sep) {
					adjH[a] = append(adjH[a], b)
					adjH[b] = append(adjH[b], a)
				}
			}
		}
		comp := components(len(cs), adjH)
		// cross-component pairs become reduced-graph edges
		for a := 0; a < len(cs); a++ {
			for b := a + 1; b < len(cs); b++ {
				if comp[a] == comp[b] {
					continue
				}
				u, v := cs[a], cs[b]
				if u < v {
					u, v = v, u
				}
				s.edges = append(s.edges, edgePair{u, v})
				s.inter = append(s.inter, k)
			}
		}
	}

	s.weights = make([]float64, len(s.edges))
	s.p = make([]int, len(s.edges))
	s.adj = make(map[int]map[int]struct{})
	for k, e := range s.edges {
		s.weights[k] = s.weightOf(t, e.u, e.v)
		s.p[k] = k
		addNeighbor(s.adj, e.u, e.v)
		addNeighbor(s.adj, e.v, e.u)
	}
}

// components labels the connected components of an adjacency-list graph
// by depth-first search with an explicit stack.
func components(n int, adj [][]int) []int {
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	var stack []int
	next := 0
	for r := 0; r < n; r++ {
		if comp[r] != -1 {
			continue
		}
		comp[r] = next
		stack = append(stack[:0], r)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range adj[v] {
				if comp[w] == -1 {
					comp[w] = next
					stack = append(stack, w)
				}
			}
		}
		next++
	}
	return comp
}

func addNeighbor(adj map[int]map[int]struct{}, u, v int) {
	m, ok := adj[u]
	if !ok {
		m = make(map[int]struct{})
		adj[u] = m
	}
	m[v] = struct{}{}
}

// permissible reports whether merging the edge keeps the running
// intersection property: every common neighbor must see the same
// intersection with both endpoints.
func (s *CliqueGraphMerge) permissible(t *SuperNodeTree, u, v int) bool {
	for n := range s.adj[u] {
		if n == v {
			continue
		}
		if _, common := s.adj[v][n]; !common {
			continue
		}
		if !equalSets(sortedIntersect(t.snd[u], t.snd[n]), sortedIntersect(t.snd[v], t.snd[n])) {
			return false
		}
	}
	return true
}

// traverse re-sorts the permutation workspace by descending weight
// (insertion sort: the order is nearly unchanged between rounds) and
// returns the heaviest permissible edge.
func (s *CliqueGraphMerge) traverse(t *SuperNodeTree) ([2]int, float64, bool) {
	p, w := s.p, s.weights
	for a := 1; a < len(p); a++ {
		k := p[a]
		wk := w[k]
		b := a - 1
		for b >= 0 && w[p[b]] < wk {
			p[b+1] = p[b]
			b--
		}
		p[b+1] = k
	}
	for _, k := range p {
		if math.IsInf(w[k], -1) {
			break // tombstones sort last
		}
		e := s.edges[k]
		if s.permissible(t, e.u, e.v) {
			return [2]int{e.u, e.v}, w[k], true
		}
	}
	return [2]int{}, 0, false
}

// evaluate accepts a merge while its weight predicts a saving; the first
// negative-weight candidate stops the strategy.
func (s *CliqueGraphMerge) evaluate(_ *SuperNodeTree, _ [2]int, weight float64) bool {
	if weight < 0 {
		s.stop = true
		return false
	}
	return true
}

// merge absorbs the lower-index clique of the candidate into the higher.
func (s *CliqueGraphMerge) merge(t *SuperNodeTree, cand [2]int) {
	c1, c2 := cand[0], cand[1]
	t.snd[c1] = sortedUnion(t.snd[c1], t.snd[c2])
	t.snd[c2] = nil
	t.num--
}

// update repairs edges and the adjacency table after a merge: edges to
// exclusive neighbors of the absorbed clique are rewired to the survivor,
// every other edge touching it is tombstoned, and weights of all edges at
// the survivor are recomputed.
func (s *CliqueGraphMerge) update(t *SuperNodeTree, cand [2]int, merged bool) {
	if !merged {
		return
	}
	c1, c2 := cand[0], cand[1]
	n1 := s.adj[c1]
	negInf := math.Inf(-1)
	for k := range s.edges {
		if math.IsInf(s.weights[k], -1) {
			continue
		}
		e := &s.edges[k]
		switch {
		case (e.u == c1 && e.v == c2) || (e.u == c2 && e.v == c1):
			s.weights[k] = negInf
		case e.u == c2 || e.v == c2:
			other := e.u
			if other == c2 {
				other = e.v
			}
			if _, common := n1[other]; common {
				s.weights[k] = negInf // parallel edge after rewiring
				continue
			}
			u, v := c1, other
			if u < v {
				u, v = v, u
			}
			e.u, e.v = u, v
			s.weights[k] = s.weightOf(t, u, v)
		case e.u == c1 || e.v == c1:
			s.weights[k] = s.weightOf(t, e.u, e.v)
		}
	}
	// adjacency: the absorbed key disappears from the table and from
	// every neighbor set
	n2 := s.adj[c2]
	delete(n1, c2)
	delete(n2, c1)
	for v := range n2 {
		n1[v] = struct{}{}
		delete(s.adj[v], c2)
		s.adj[v][c1] = struct{}{}
	}
	delete(s.adj, c2)
}

func (s *CliqueGraphMerge) done() bool { return s.stop }

// finish turns the merged clique graph back into a clique tree.
func (s *CliqueGraphMerge) finish(t *SuperNodeTree) {
	s.recomputeCliqueTree(t)
	s.recomputed = true
}

func setKey(s []int) string {
	b := make([]byte, 0, len(s)*3)
	for _, v := range s {
		b = append(b, byte(v), byte(v>>8), byte(v>>16))
	}
	return string(b)
}
