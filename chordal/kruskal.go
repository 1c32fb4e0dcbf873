// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"math"
	"sort"
)

// After merging, the surviving structure is a clique graph rather than a
// tree. A valid clique tree is recovered as a maximum-weight spanning tree
// under intersection-cardinality weights (Kruskal over the live edges,
// disjoint sets indexed by the initial clique numbering so tombstoned
// indices never shift live ones), rooted at the clique holding the
// highest-postorder vertex.

// inTreeWeight marks an edge selected into the spanning tree.
const inTreeWeight = -1.0

// dsu is a disjoint-set forest with path compression and union by rank.
type dsu struct {
	parent, rank []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *dsu) find(u int) int {
	for d.parent[u] != u {
		d.parent[u] = d.parent[d.parent[u]]
		u = d.parent[u]
	}
	return u
}

func (d *dsu) union(u, v int) bool {
	ru, rv := d.find(u), d.find(v)
	if ru == rv {
		return false
	}
	if d.rank[ru] < d.rank[rv] {
		ru, rv = rv, ru
	}
	d.parent[rv] = ru
	if d.rank[ru] == d.rank[rv] {
		d.rank[ru]++
	}
	return true
}

// recomputeCliqueTree rebuilds parents, postorder and separators of the
// merged graph: intersection weights, max-weight Kruskal, re-rooting and a
// parent-assignment DFS, then the snd/sep split in postorder.
func (s *CliqueGraphMerge) recomputeCliqueTree(t *SuperNodeTree) {
	// 1. replace weights by |Cᵢ ∩ Cⱼ| on live edges
	live := make([]int, 0, len(s.edges))
	for k, e := range s.edges {
		if math.IsInf(s.weights[k], -1) {
			continue
		}
		s.weights[k] = float64(intersectLen(t.snd[e.u], t.snd[e.v]))
		live = append(live, k)
	}

	// 2. Kruskal, maximum weight
	sort.SliceStable(live, func(a, b int) bool { return s.weights[live[a]] > s.weights[live[b]] })
	sets := newDSU(len(t.snd))
	picked := 0
	for _, k := range live {
		e := s.edges[k]
		if sets.union(e.u, e.v) {
			s.weights[k] = inTreeWeight
			picked++
			if picked == t.num-1 {
				break
			}
		}
	}

	// in-tree adjacency
	treeAdj := make([][]int, len(t.snd))
	for _, k := range live {
		if s.weights[k] != inTreeWeight {
			continue
		}
		e := s.edges[k]
		treeAdj[e.u] = append(treeAdj[e.u], e.v)
		treeAdj[e.v] = append(treeAdj[e.v], e.u)
	}
	for c := range treeAdj {
		sort.Ints(treeAdj[c])
	}

	// 3. root at the clique containing the highest-postorder vertex
	root := -1
	for i := len(t.post) - 1; i >= 0 && root < 0; i-- {
		v := t.post[i]
		for c := range t.snd {
			if len(t.snd[c]) > 0 && containsVertex(t.snd[c], v) {
				root = c
				break
			}
		}
	}
	if root < 0 { // no vertex postorder available: lowest live index
		for c := range t.snd {
			if len(t.snd[c]) > 0 {
				root = c
				break
			}
		}
	}

	// 4. parents by iterative DFS along in-tree edges; a forest gets one
	// root per component
	for c := range t.sndPar {
		t.sndPar[c] = -1
		t.sndChild[c] = t.sndChild[c][:0]
	}
	visited := make([]bool, len(t.snd))
	var stack []int
	assign := func(r int) {
		visited[r] = true
		stack = append(stack[:0], r)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range treeAdj[v] {
				if visited[w] {
					continue
				}
				visited[w] = true
				t.sndPar[w] = v
				t.sndChild[v] = append(t.sndChild[v], w)
				stack = append(stack, w)
			}
		}
	}
	if root >= 0 {
		assign(root)
	}
	for c := range t.snd {
		if len(t.snd[c]) > 0 && !visited[c] {
			assign(c)
		}
	}

	// 5. clique postorder
	t.recomputePostOrder()

	// 6. split cliques back into supernode and separator; children are
	// processed before their parents so intersections see full cliques
	for _, c := range t.sndPost {
		if p := t.sndPar[c]; p >= 0 {
			t.sep[c] = sortedIntersect(t.snd[c], t.snd[p])
			t.snd[c] = sortedSubtract(t.snd[c], t.sep[c])
		} else {
			t.sep[c] = nil
		}
	}
}
