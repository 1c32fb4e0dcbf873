// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/conic/cone"
)

// Ruiz equilibration: iterated diagonal scaling that drives the row and
// column ∞-norms of the stacked [P; A] data towards one, plus a scalar
// cost normalization. The scaled problem is
//
//	P̂ = c·D·P·D    q̂ = c·D·q    Â = E·A·D    b̂ = E·b
//
// with the iterates related by x̂ = D⁻¹x, ŝ = E·s, μ̂ = c·E⁻¹μ.
// Cones that admit only a single scaling factor on their rows (SOC, PSD,
// exponential, power) have their E block rectified to its mean, with the
// correction re-applied to A and b inside the rectification branch only.

type scaleMatrices struct {
	d, dinv []float64
	e, einv []float64
	c, cinv float64
}

func (sc *scaleMatrices) init(n, m int) {
	sc.d = make([]float64, n)
	sc.dinv = make([]float64, n)
	sc.e = make([]float64, m)
	sc.einv = make([]float64, m)
	dfill(1, sc.d)
	dfill(1, sc.dinv)
	dfill(1, sc.e)
	dfill(1, sc.einv)
	sc.c, sc.cinv = 1, 1
}

// limitScaling maps a norm into the admissible factor range: zeros become
// one so empty rows and columns stay unscaled.
func limitScaling(v, lo, hi float64) float64 {
	if v < lo {
		return 1
	}
	if v > hi {
		return hi
	}
	return v
}

// scaleRuiz equilibrates the workspace clones of (P, q, A, b) in place
// and accumulates the scaling into w.scale.
func (w *Workspace) scaleRuiz(set *Settings, cones []cone.Cone) {
	n, m := w.n, w.m
	sc := &w.scale
	dwork := w.wn
	ework := w.wm
	cwork := make([]float64, n)

	for it := 0; it < set.Scaling; it++ {
		// column ∞-norms of [P; A], row ∞-norms of A
		w.p.ColInfNorms(dwork)
		w.a.ColInfNorms(cwork)
		for j := 0; j < n; j++ {
			v := math.Max(dwork[j], cwork[j])
			dwork[j] = 1 / math.Sqrt(limitScaling(v, set.MinScaling, set.MaxScaling))
		}
		dzero(ework)
		w.a.RowInfNorms(ework)
		for r := 0; r < m; r++ {
			ework[r] = 1 / math.Sqrt(limitScaling(ework[r], set.MinScaling, set.MaxScaling))
		}

		w.p.ScaleCols(dwork)
		w.p.ScaleRows(dwork)
		w.a.ScaleCols(dwork)
		w.a.ScaleRows(ework)
		floats.Mul(w.q, dwork)
		floats.Mul(w.b, ework)
		floats.Mul(sc.d, dwork)
		floats.Mul(sc.e, ework)

		// cost normalization: mean column norm of the rescaled P vs ‖q‖∞
		w.p.ColInfNorms(cwork)
		gamma := floats.Sum(cwork) / float64(n)
		eta := dinfnorm(w.q)
		if gamma != 0 && eta != 0 {
			ctmp := 1 / math.Max(gamma, limitScaling(eta, set.MinScaling, set.MaxScaling))
			w.p.Scale(ctmp)
			dscal(ctmp, w.q)
			sc.c *= ctmp
		}
	}

	// rectify scalar-scaled cone blocks
	rectified := false
	dfill(1, ework)
	off := 0
	for i := range cones {
		dim := cones[i].Dim()
		if cones[i].ScalarScaling() && dim > 0 {
			blk := sc.e[off : off+dim]
			mean := floats.Sum(blk) / float64(dim)
			for r := range blk {
				ework[off+r] = mean / blk[r]
				blk[r] = mean
			}
			rectified = true
		}
		off += dim
	}
	if rectified {
		// re-apply only the E-part correction
		w.a.ScaleRows(ework)
		floats.Mul(w.b, ework)
	}

	// per-cone scale hooks (box bounds track their E block)
	off = 0
	for i := range cones {
		dim := cones[i].Dim()
		cones[i].ScaleHook(sc.e[off : off+dim])
		off += dim
	}

	for j := range sc.d {
		sc.dinv[j] = 1 / sc.d[j]
	}
	for r := range sc.e {
		sc.einv[r] = 1 / sc.e[r]
	}
	sc.cinv = 1 / sc.c
}
