// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conic/cone"
	"github.com/curioloop/conic/sparse"
)

// A triangle-packed PSD constraint with a sparse aggregate pattern is
// replaced by one smaller PSD block per clique of the (chordally extended,
// merged) pattern. By Agler's theorem the original slack decomposes as a
// sum of clique-supported PSD blocks, so each pattern entry row becomes an
// owner row carrying the original data plus one auxiliary column per extra
// clique sharing the entry, and each extra clique gets a row tying its
// entry to that auxiliary variable. The duals of the blocks agree on
// overlaps; the original dual is recovered by PSD completion of the
// clique-entry values along the final clique tree.

// Options configures the decomposition pass.
type Options struct {
	// Strategy builds a fresh merge strategy per decomposed cone;
	// nil selects the graph-based strategy with ComplexityWeight.
	Strategy func() MergeStrategy
	// MinOrder is the smallest PSD order considered worth decomposing.
	// Zero means 3.
	MinOrder int
}

// decBlock records how one PSD triangle cone was split.
type decBlock struct {
	off      int // original row offset of the cone block
	order    int
	tree     *SuperNodeTree
	cliques  [][]int // full clique vertex sets, postorder
	rowStart []int   // new row offset per clique block
}

// Decomposition is the transformed problem plus the bookkeeping needed to
// map slacks and duals back to the original cones.
type Decomposition struct {
	A     *sparse.CSC
	B     []float64
	Cones []cone.Cone

	OrigN, NewN int // decision columns before/after auxiliaries
	OrigM, NewM int

	blocks []*decBlock
	rowMap []int // original row → owner new row, -1 when dropped
}

// Decomposed reports whether any cone was actually split.
func (d *Decomposition) Decomposed() bool { return len(d.blocks) > 0 }

// triIndex maps matrix entry (i, j), i ≤ j, to its packed upper-triangle
// position in column-major order.
func triIndex(i, j int) int { return j*(j+1)/2 + i }

// Decompose splits every decomposable PSD triangle cone of the problem
// Ax + s = b, s ∈ 𝒦 and returns the transformed data. Cones other than
// sparse PSD triangles pass through untouched.
func Decompose(a *sparse.CSC, b []float64, cones []cone.Cone, opt Options) (*Decomposition, error) {
	n, m := a.Cols, a.Rows
	d := &Decomposition{OrigN: n, OrigM: m}
	minOrder := opt.MinOrder
	if minOrder == 0 {
		minOrder = 3
	}

	// occupied rows: any A entry or b entry
	occupied := make([]bool, m)
	for _, r := range a.I {
		occupied[r] = true
	}
	for r, v := range b {
		if v != 0 {
			occupied[r] = true
		}
	}

	d.rowMap = make([]int, m)
	newCones := make([]cone.Cone, 0, len(cones))
	type auxLink struct{ ownerRow, extraRow, col int }
	var links []auxLink
	naux := 0
	noff := 0
	off := 0

	for ci := range cones {
		c := &cones[ci]
		dim := c.Dim()
		if c.Kind != cone.PSDTriangle || c.Order < minOrder {
			for k := 0; k < dim; k++ {
				d.rowMap[off+k] = noff + k
			}
			newCones = append(newCones, *c)
			noff += dim
			off += dim
			continue
		}

		order := c.Order
		var rows, cols []int
		dense := true
		for j := 0; j < order; j++ {
			for i := 0; i < j; i++ {
				if occupied[off+triIndex(i, j)] {
					rows = append(rows, i)
					cols = append(cols, j)
				} else {
					dense = false
				}
			}
		}
		if dense {
			for k := 0; k < dim; k++ {
				d.rowMap[off+k] = noff + k
			}
			newCones = append(newCones, *c)
			noff += dim
			off += dim
			continue
		}

		tree, err := NewSuperNodeTree(order, rows, cols)
		if err != nil {
			return nil, err
		}
		var strat MergeStrategy
		if opt.Strategy != nil {
			strat = opt.Strategy()
		} else {
			strat = NewGraphMerge(nil)
		}
		tree.Merge(strat)
		if tree.num <= 1 {
			for k := 0; k < dim; k++ {
				d.rowMap[off+k] = noff + k
			}
			newCones = append(newCones, *c)
			noff += dim
			off += dim
			continue
		}

		blk := &decBlock{off: off, order: order, tree: tree}
		for _, cl := range tree.sndPost {
			blk.cliques = append(blk.cliques, tree.Clique(cl))
		}
		blk.rowStart = make([]int, len(blk.cliques))
		for l, cl := range blk.cliques {
			blk.rowStart[l] = noff
			nl := len(cl)
			noff += nl * (nl + 1) / 2
			newCones = append(newCones, cone.NewPSDTriangle(nl))
		}

		// assign owners and auxiliary links per entry
		for k := 0; k < dim; k++ {
			d.rowMap[off+k] = -1
		}
		for j := 0; j < order; j++ {
			for i := 0; i <= j; i++ {
				owner := -1
				ownerRow := 0
				for l, cl := range blk.cliques {
					li := vertexPos(cl, i)
					lj := vertexPos(cl, j)
					if li < 0 || lj < 0 {
						continue
					}
					if li > lj {
						li, lj = lj, li
					}
					row := blk.rowStart[l] + triIndex(li, lj)
					if owner < 0 {
						owner, ownerRow = l, row
						d.rowMap[off+triIndex(i, j)] = row
						continue
					}
					links = append(links, auxLink{ownerRow: ownerRow, extraRow: row, col: n + naux})
					naux++
				}
			}
		}
		d.blocks = append(d.blocks, blk)
		off += dim
	}

	if len(d.blocks) == 0 {
		d.A, d.B, d.Cones = a, b, cones
		d.NewN, d.NewM = n, m
		return d, nil
	}

	d.NewN = n + naux
	d.NewM = noff
	bld := sparse.NewBuilder(d.NewM, d.NewN)
	for j := 0; j < a.Cols; j++ {
		for k := a.P[j]; k < a.P[j+1]; k++ {
			if nr := d.rowMap[a.I[k]]; nr >= 0 {
				bld.Add(nr, j, a.X[k])
			}
		}
	}
	for _, lk := range links {
		bld.Add(lk.ownerRow, lk.col, 1)
		bld.Add(lk.extraRow, lk.col, -1)
	}
	na, err := bld.Build()
	if err != nil {
		return nil, err
	}
	nb := make([]float64, d.NewM)
	for r, v := range b {
		if nr := d.rowMap[r]; nr >= 0 && v != 0 {
			nb[nr] = v
		}
	}
	d.A, d.B, d.Cones = na, nb, newCones
	return d, nil
}

// vertexPos returns the position of v inside the sorted clique, or -1.
func vertexPos(cl []int, v int) int {
	lo, hi := 0, len(cl)
	for lo < hi {
		mid := (lo + hi) / 2
		if cl[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(cl) && cl[lo] == v {
		return lo
	}
	return -1
}

// ReverseSlack maps the transformed slack back onto the original cones:
// clique block entries of a decomposed cone sum back into the pattern.
func (d *Decomposition) ReverseSlack(dst, src []float64) {
	if !d.Decomposed() {
		copy(dst, src)
		return
	}
	for i := range dst {
		dst[i] = 0
	}
	for r, nr := range d.rowMap {
		if nr >= 0 {
			dst[r] = src[nr]
		}
	}
	for _, blk := range d.blocks {
		d.sumBlock(dst, src, blk)
	}
}

// sumBlock overwrites the original block rows with the clique-entry sums.
func (d *Decomposition) sumBlock(dst, src []float64, blk *decBlock) {
	for k := 0; k < blk.order*(blk.order+1)/2; k++ {
		dst[blk.off+k] = 0
	}
	for l, cl := range blk.cliques {
		k := 0
		for lj := 0; lj < len(cl); lj++ {
			for li := 0; li <= lj; li++ {
				i, j := cl[li], cl[lj]
				dst[blk.off+triIndex(i, j)] += src[blk.rowStart[l]+k]
				k++
			}
		}
	}
}

// ReverseDual maps the transformed dual back: clique duals agree on
// overlaps, and the unknown entries are filled by PSD completion along
// the clique tree so that the reconstructed matrix is PSD.
func (d *Decomposition) ReverseDual(dst, src []float64) {
	if !d.Decomposed() {
		copy(dst, src)
		return
	}
	for i := range dst {
		dst[i] = 0
	}
	for r, nr := range d.rowMap {
		if nr >= 0 {
			dst[r] = src[nr]
		}
	}
	for _, blk := range d.blocks {
		n := blk.order
		y := make([]float64, n*n)
		cnt := make([]float64, n*n)
		for l, cl := range blk.cliques {
			k := 0
			for lj := 0; lj < len(cl); lj++ {
				for li := 0; li <= lj; li++ {
					i, j := cl[li], cl[lj]
					v := src[blk.rowStart[l]+k]
					if i != j {
						v /= math.Sqrt2
					}
					y[i*n+j] += v
					cnt[i*n+j]++
					k++
				}
			}
		}
		for idx := range y {
			if cnt[idx] > 0 {
				y[idx] /= cnt[idx]
			}
		}
		for j := 0; j < n; j++ {
			for i := 0; i < j; i++ {
				y[j*n+i] = y[i*n+j]
			}
		}
		completePSD(y, n, blk.tree)
		for j := 0; j < n; j++ {
			for i := 0; i <= j; i++ {
				v := y[i*n+j]
				if i != j {
					v *= math.Sqrt2
				}
				dst[blk.off+triIndex(i, j)] = v
			}
		}
	}
}

// CompleteDual exposes the completion step on a block-sized triangle
// vector holding the accumulated clique duals of the given tree.
func CompleteDual(tri []float64, order int, t *SuperNodeTree) {
	n := order
	y := make([]float64, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			v := tri[triIndex(i, j)]
			if i != j {
				v /= math.Sqrt2
			}
			y[i*n+j], y[j*n+i] = v, v
		}
	}
	completePSD(y, n, t)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			v := y[i*n+j]
			if i != j {
				v *= math.Sqrt2
			}
			tri[triIndex(i, j)] = v
		}
	}
}

// completePSD fills the unknown entries of y (known on clique entries of
// the tree) so the result is PSD: traversing cliques root-first, each new
// residual η is linked to the already-placed vertices F through the
// separator ν by Y[η,F] = Y[η,ν]·Y[ν,ν]⁺·Y[ν,F].
func completePSD(y []float64, n int, t *SuperNodeTree) {
	var filled []int
	for idx := len(t.sndPost) - 1; idx >= 0; idx-- {
		c := t.sndPost[idx]
		eta := t.snd[c]
		sep := t.sep[c]
		if t.sndPar[c] < 0 {
			filled = sortedUnion(filled, sortedUnion(eta, sep))
			continue
		}
		free := sortedSubtract(filled, sep)
		free = sortedSubtract(free, eta)
		if len(free) > 0 && len(sep) > 0 {
			fillBlock(y, n, eta, sep, free)
		}
		filled = sortedUnion(filled, eta)
	}
}

// fillBlock computes Y[η,F] = Y[η,ν]·Y[ν,ν]⁺·Y[ν,F] and mirrors it.
func fillBlock(y []float64, n int, eta, sep, free []int) {
	ne, ns, nf := len(eta), len(sep), len(free)
	yen := mat.NewDense(ne, ns, nil)
	for a, i := range eta {
		for b, j := range sep {
			yen.Set(a, b, y[i*n+j])
		}
	}
	yss := mat.NewDense(ns, ns, nil)
	for a, i := range sep {
		for b, j := range sep {
			yss.Set(a, b, y[i*n+j])
		}
	}
	ysf := mat.NewDense(ns, nf, nil)
	for a, i := range sep {
		for b, j := range free {
			ysf.Set(a, b, y[i*n+j])
		}
	}

	pinv := pseudoInverse(yss, ns)
	var tmp, out mat.Dense
	tmp.Mul(pinv, ysf)
	out.Mul(yen, &tmp)
	for a, i := range eta {
		for b, j := range free {
			v := out.At(a, b)
			y[i*n+j] = v
			y[j*n+i] = v
		}
	}
}

// pseudoInverse inverts a small symmetric matrix through its
// eigendecomposition, dropping near-null directions.
func pseudoInverse(a *mat.Dense, n int) *mat.Dense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return mat.NewDense(n, n, nil)
	}
	vals := es.Values(nil)
	var q mat.Dense
	es.VectorsTo(&q)
	inv := mat.NewDense(n, n, nil)
	maxAbs := 0.0
	for _, v := range vals {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	floor := 1e-12 * math.Max(maxAbs, 1)
	for k := 0; k < n; k++ {
		if math.Abs(vals[k]) <= floor {
			continue
		}
		lk := 1 / vals[k]
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				inv.Set(i, j, inv.At(i, j)+lk*q.At(i, k)*q.At(j, k))
			}
		}
	}
	return inv
}
