// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package admm solves conic quadratic programs
//
//	minimize ½·xᵀPx + qᵀx  subject to  Ax + s = b,  s ∈ 𝒦
//
// with the Alternating Direction Method of Multipliers: a quasi-definite
// KKT solve, a projection onto 𝒦, and a dual ascent step per iteration,
// with over-relaxation, Ruiz equilibration, adaptive penalty updates,
// residual-based termination and infeasibility detection. Sparse PSD
// constraints are optionally decomposed along their chordal structure
// through the chordal package.
package admm

import (
	"errors"
	"math"
	"os"
	"time"

	"github.com/curioloop/conic/chordal"
	"github.com/curioloop/conic/cone"
	"github.com/curioloop/conic/sparse"
)

const (
	rhoMin    = 1e-6
	rhoMax    = 1e6
	rhoChange = 5.0 // update ρ when it moves by more than this ratio
	costLimit = 1e20
	deltaTiny = 1e-10
)

// Problem specifies a conic QP for the solver.
type Problem struct {
	P     *sparse.CSC // quadratic cost, n×n symmetric, full storage
	Q     []float64   // linear cost
	A     *sparse.CSC // constraint matrix, m×n
	B     []float64   // constraint offset
	Cones []cone.Cone // 𝒦, partitioning the m rows in order

	Settings Settings
	// NewKKT builds the linear-system backend per workspace;
	// nil selects the dense LDLᵀ backend.
	NewKKT func() KKTSolver
}

type iterSpec struct {
	n, m         int // transformed dimensions
	origN, origM int
	set          Settings
	p, a         *sparse.CSC
	q, b         []float64
	cones        []cone.Cone
	dec          *chordal.Decomposition
	newKKT       func() KKTSolver
	logger       Logger
	decTime      time.Duration
}

// Optimizer holds the validated, possibly decomposed problem. One
// optimizer may be shared by several workspaces.
type Optimizer struct {
	iterSpec
}

// New validates the problem and settings, runs the chordal decomposition
// pass when enabled, and returns the optimizer. Configuration and
// dimension errors abort here; no solve is attempted.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}

	set := p.Settings.withDefaults()
	if set.Verbose {
		if logger.Level < LogEval {
			logger.Level = LogEval
		}
		if logger.Msg == nil {
			logger.Msg = os.Stdout
		}
	}

	var n, m int
	switch {
	case p.P == nil || p.A == nil:
		err = errors.New("problem matrices are required")
	case p.P.Rows != p.P.Cols || p.P.Cols == 0:
		err = errors.New("quadratic cost must be square and non-empty")
	case len(p.Q) != p.P.Cols:
		err = errors.New("linear cost dimension not match P")
	case p.A.Cols != p.P.Cols:
		err = errors.New("constraint matrix columns not match P")
	case len(p.B) != p.A.Rows:
		err = errors.New("constraint offset dimension not match A")
	default:
		n, m = p.A.Cols, p.A.Rows
	}
	if err == nil {
		if msg := set.validate(); msg != "" {
			err = errors.New(msg)
		}
	}
	if err == nil {
		err = cone.ValidateAll(p.Cones, m)
	}
	if err != nil {
		return
	}

	spec := iterSpec{
		n: n, m: m, origN: n, origM: m,
		set:    set,
		p:      p.P,
		q:      p.Q,
		a:      p.A,
		b:      p.B,
		cones:  p.Cones,
		newKKT: p.NewKKT,
		logger: *logger,
	}
	if spec.newKKT == nil {
		spec.newKKT = NewLDLKKT
	}

	if set.Decompose {
		t0 := time.Now()
		dec, derr := chordal.Decompose(p.A, p.B, p.Cones, chordal.Options{
			Strategy: mergeFactory(&set),
		})
		if derr != nil {
			return nil, derr
		}
		if dec.Decomposed() {
			spec.dec = dec
			spec.n, spec.m = dec.NewN, dec.NewM
			spec.a, spec.b, spec.cones = dec.A, dec.B, dec.Cones
			spec.p = padSquare(p.P, dec.NewN)
			spec.q = append(append([]float64(nil), p.Q...), make([]float64, dec.NewN-n)...)
		}
		spec.decTime = time.Since(t0)
	}

	optimizer = &Optimizer{spec}
	return
}

func mergeFactory(set *Settings) func() chordal.MergeStrategy {
	switch set.Merge {
	case MergeParentChild:
		return func() chordal.MergeStrategy {
			return chordal.NewParentChildMerge(set.MergeFill, set.MergeSize)
		}
	case MergeNone:
		return func() chordal.MergeStrategy { return chordal.NewNoMerge() }
	default:
		return func() chordal.MergeStrategy { return chordal.NewGraphMerge(nil) }
	}
}

// padSquare widens an n×n matrix to nn×nn with empty trailing columns.
func padSquare(p *sparse.CSC, nn int) *sparse.CSC {
	cp := make([]int, nn+1)
	copy(cp, p.P)
	for j := p.Cols; j < nn; j++ {
		cp[j+1] = cp[p.Cols]
	}
	return &sparse.CSC{Rows: nn, Cols: nn, P: cp, I: p.I, X: p.X}
}

// Workspace contains the iterate and every pre-allocated scratch vector
// of one solve. The hot loop allocates nothing. To avoid race conditions,
// separate workspaces need to be created for each goroutine.
type Workspace struct {
	n, m int

	p, a  *sparse.CSC
	q, b  []float64
	cones []cone.Cone
	scale scaleMatrices
	kkt   KKTSolver

	rhoBase float64
	rho     []float64

	x, s, mu, nu []float64
	st           []float64 // s̃ after relaxation
	ls, sol      []float64 // KKT right-hand side and solution
	xPrev, muPrev []float64
	dx, dy       []float64
	wn, wn2, wm  []float64

	iter    int
	refacts int
}

// Init allocates a workspace sized for the optimizer's (transformed)
// problem.
func (o *Optimizer) Init() *Workspace {
	n, m := o.n, o.m
	w := &Workspace{
		n: n, m: m,
		kkt:    o.newKKT(),
		rho:    make([]float64, m),
		x:      make([]float64, n),
		s:      make([]float64, m),
		mu:     make([]float64, m),
		nu:     make([]float64, m),
		st:     make([]float64, m),
		ls:     make([]float64, n+m),
		sol:    make([]float64, n+m),
		xPrev:  make([]float64, n),
		muPrev: make([]float64, m),
		dx:     make([]float64, n),
		dy:     make([]float64, m),
		wn:     make([]float64, n),
		wn2:    make([]float64, n),
		wm:     make([]float64, m),
	}
	w.scale.init(n, m)
	return w
}

// reset reloads fresh problem data into the workspace: the scaler and the
// box scale hooks mutate their inputs, so every solve starts from clones.
func (w *Workspace) reset(o *Optimizer) {
	w.p = o.p.Clone()
	w.a = o.a.Clone()
	w.q = append(w.q[:0], o.q...)
	w.b = append(w.b[:0], o.b...)
	w.cones = cloneCones(o.cones)
	w.scale.init(w.n, w.m)
	dzero(w.x)
	dzero(w.s)
	dzero(w.mu)
	dzero(w.nu)
	w.iter = 0
	w.refacts = 0
}

func cloneCones(cones []cone.Cone) []cone.Cone {
	out := make([]cone.Cone, len(cones))
	copy(out, cones)
	for i := range out {
		if out[i].Kind == cone.Box {
			out[i].L = append([]float64(nil), out[i].L...)
			out[i].U = append([]float64(nil), out[i].U...)
		}
	}
	return out
}

// Solve runs the ADMM loop from a cold start.
func (o *Optimizer) Solve(w *Workspace) *Result {
	return o.solve(w, nil, nil)
}

// SolveWarm runs the ADMM loop from the given primal/dual guess of the
// original problem. The dual guess is ignored for decomposed problems.
func (o *Optimizer) SolveWarm(w *Workspace, x0, y0 []float64) *Result {
	return o.solve(w, x0, y0)
}

func (o *Optimizer) solve(w *Workspace, x0, y0 []float64) *Result {

	if w.n != o.n || w.m != o.m {
		panic("workspace dimension not match spec")
	}
	if x0 != nil && len(x0) != o.origN {
		panic("warm start dimension not match spec")
	}

	start := time.Now()
	set := &o.set
	w.reset(o)

	if x0 != nil {
		copy(w.x[:o.origN], x0)
	}
	if y0 != nil && o.dec == nil {
		for r := 0; r < w.m; r++ {
			w.mu[r] = -y0[r]
		}
	}

	if set.Scaling > 0 {
		w.scaleRuiz(set, w.cones)
	}
	// warm-started iterates move into the scaled space
	sc := &w.scale
	for j := 0; j < w.n; j++ {
		w.x[j] *= sc.dinv[j]
	}
	for r := 0; r < w.m; r++ {
		w.mu[r] *= sc.einv[r] * sc.c
	}

	w.rhoBase = set.Rho
	w.buildRho(set)
	if err := w.kkt.Factor(w.p, w.a, set.Sigma, w.rho); err != nil {
		return o.finish(w, Unsolved, start, time.Since(start), 0, 0)
	}
	setupTime := time.Since(start)

	copy(w.xPrev, w.x)
	copy(w.muPrev, w.mu)

	status := Max_iter_reached
	var rp, rd float64

loop:
	for w.iter = 1; w.iter <= set.MaxIter; w.iter++ {
		w.step(set)

		if set.TimeLimit > 0 && time.Since(start).Seconds() > set.TimeLimit {
			status = Time_limit_reached
			break
		}

		if w.iter%set.CheckInfeasibility == 0 {
			cert := w.certificates(set)
			if o.logger.enable(LogTrace) {
				found := "none"
				if cert != Unsolved {
					found = cert.String()
				}
				o.logger.log("iter %5d  certificate check: %s\n", w.iter, found)
			}
			switch cert {
			case Primal_infeasible:
				status = Primal_infeasible
				break loop
			case Dual_infeasible:
				status = Dual_infeasible
				break loop
			}
			copy(w.xPrev, w.x)
			copy(w.muPrev, w.mu)
		}

		if w.iter%set.CheckTermination == 0 {
			var cost, refP, refD float64
			rp, rd, cost, refP, refD = w.residuals(set)
			if o.logger.enable(LogEval) {
				o.logger.log("iter %5d  cost %+.4e  r_prim %.3e  r_dual %.3e  rho %.2e\n",
					w.iter, cost, rp, rd, w.rhoBase)
			}
			if math.Abs(cost) > costLimit {
				status = Unsolved
				break
			}
			if rp <= set.EpsAbs+set.EpsRel*refP && rd <= set.EpsAbs+set.EpsRel*refD {
				status = Solved
				break
			}
		}

		if set.AdaptiveRho && w.iter%set.AdaptiveRhoInterval == 0 {
			refacts := w.refacts
			if err := w.adaptRho(set); err != nil {
				status = Unsolved
				break
			}
			if w.refacts != refacts && o.logger.enable(LogTrace) {
				o.logger.log("iter %5d  rho updated to %.2e\n", w.iter, w.rhoBase)
			}
		}
	}
	if w.iter > set.MaxIter {
		w.iter = set.MaxIter
	}

	res := o.finish(w, status, start, setupTime, rp, rd)
	if o.logger.enable(LogLast) {
		o.logger.log("status %s  iter %d  cost %+.6e  r_prim %.3e  r_dual %.3e\n",
			res.Status, res.Iter, res.Cost, res.RPrim, res.RDual)
	}
	return res
}

// buildRho assigns the per-row penalty: equality rows carry the base ρ
// amplified by RhoEq so the zero cone is enforced more strictly.
func (w *Workspace) buildRho(set *Settings) {
	off := 0
	for i := range w.cones {
		dim := w.cones[i].Dim()
		v := w.rhoBase
		if w.cones[i].Kind == cone.Zero {
			v *= set.RhoEq
		}
		v = math.Min(math.Max(v, rhoMin), rhoMax)
		for r := off; r < off+dim; r++ {
			w.rho[r] = v
		}
		off += dim
	}
}

// step performs one scaled ADMM iteration.
func (w *Workspace) step(set *Settings) {
	n, m := w.n, w.m
	alpha := set.Alpha

	for j := 0; j < n; j++ {
		w.ls[j] = set.Sigma*w.x[j] - w.q[j]
	}
	for r := 0; r < m; r++ {
		w.ls[n+r] = w.b[r] - w.s[r] + w.mu[r]/w.rho[r]
	}
	w.kkt.Solve(w.ls, w.sol)
	copy(w.nu, w.sol[n:])

	// over-relaxed primal update
	for j := 0; j < n; j++ {
		w.x[j] = alpha*w.sol[j] + (1-alpha)*w.x[j]
	}
	// relaxed intermediate slack
	for r := 0; r < m; r++ {
		w.st[r] = w.s[r] - alpha*(w.nu[r]+w.mu[r])/w.rho[r]
	}
	// projection
	for r := 0; r < m; r++ {
		w.s[r] = w.st[r] + w.mu[r]/w.rho[r]
	}
	cone.ProjectAll(w.cones, w.s)
	// dual update
	for r := 0; r < m; r++ {
		w.mu[r] += w.rho[r] * (w.st[r] - w.s[r])
	}
}

// scaledInf computes ‖diag(d)·v‖∞.
func scaledInf(v, d []float64) float64 {
	var nrm float64
	for i := range v {
		if a := math.Abs(v[i] * d[i]); a > nrm {
			nrm = a
		}
	}
	return nrm
}

// residuals computes the unscaled primal and dual residuals, the cost and
// the convergence reference norms.
func (w *Workspace) residuals(_ *Settings) (rp, rd, cost, refP, refD float64) {
	n, m := w.n, w.m
	sc := &w.scale

	// primal: E⁻¹(Âx̂ + ŝ − b̂)
	dzero(w.wm)
	w.a.MulVecAdd(w.wm, w.x)
	refAx := scaledInf(w.wm, sc.einv)
	for r := 0; r < m; r++ {
		if a := math.Abs((w.wm[r] + w.s[r] - w.b[r]) * sc.einv[r]); a > rp {
			rp = a
		}
	}
	refP = math.Max(refAx, math.Max(scaledInf(w.s, sc.einv), scaledInf(w.b, sc.einv)))

	// dual: c⁻¹D⁻¹(P̂x̂ + q̂ − Âᵀμ̂)
	dzero(w.wn)
	w.p.MulVecAdd(w.wn, w.x)
	refPx := sc.cinv * scaledInf(w.wn, sc.dinv)
	dzero(w.wn2)
	w.a.MulTVecAdd(w.wn2, w.mu)
	refAty := sc.cinv * scaledInf(w.wn2, sc.dinv)
	for j := 0; j < n; j++ {
		if a := math.Abs((w.wn[j] + w.q[j] - w.wn2[j]) * sc.dinv[j] * sc.cinv); a > rd {
			rd = a
		}
	}
	refD = math.Max(refPx, math.Max(sc.cinv*scaledInf(w.q, sc.dinv), refAty))

	cost = sc.cinv * (0.5*ddot(w.wn, w.x) + ddot(w.q, w.x))
	return
}

// certificates applies the primal and dual infeasibility tests to the
// iterate deltas since the last aligned check.
func (w *Workspace) certificates(set *Settings) Status {
	n, m := w.n, w.m
	sc := &w.scale

	// unscaled certificate directions: δx = D·δx̂, δy = −c⁻¹E·δμ̂
	for j := 0; j < n; j++ {
		w.dx[j] = sc.d[j] * (w.x[j] - w.xPrev[j])
	}
	for r := 0; r < m; r++ {
		w.dy[r] = -sc.cinv * sc.e[r] * (w.mu[r] - w.muPrev[r])
	}

	if ny := dinfnorm(w.dy); ny > deltaTiny {
		dscal(1/ny, w.dy)
		if w.primalCertificate(set) {
			return Primal_infeasible
		}
	}
	if nx := dinfnorm(w.dx); nx > deltaTiny {
		dscal(1/nx, w.dx)
		if w.dualCertificate(set) {
			return Dual_infeasible
		}
	}
	return Unsolved
}

// primalCertificate tests δy for Aᵀδy ≈ 0, blockwise dual-cone
// membership and ⟨b, δy⟩ below the box support.
func (w *Workspace) primalCertificate(set *Settings) bool {
	m := w.m
	sc := &w.scale
	eps := set.EpsPrimInf

	// Aᵀδy = D⁻¹·Âᵀ·E⁻¹·δy
	for r := 0; r < m; r++ {
		w.wm[r] = sc.einv[r] * w.dy[r]
	}
	dzero(w.wn)
	w.a.MulTVecAdd(w.wn, w.wm)
	if scaledInf(w.wn, sc.dinv) > eps {
		return false
	}

	var bdy, sup float64
	for r := 0; r < m; r++ {
		bdy += sc.einv[r] * w.b[r] * w.dy[r]
	}
	off := 0
	for i := range w.cones {
		c := &w.cones[i]
		dim := c.Dim()
		blk := w.dy[off : off+dim]
		if !c.InDual(blk, eps) {
			return false
		}
		if c.Kind == cone.Box {
			// bounds are stored scaled; the certificate is unscaled
			for r := 0; r < dim; r++ {
				if blk[r] == 0 {
					continue
				}
				if blk[r] > 0 {
					sup += c.L[r] * sc.einv[off+r] * blk[r]
				} else {
					sup += c.U[r] * sc.einv[off+r] * blk[r]
				}
			}
		}
		off += dim
	}
	return bdy-sup < -eps
}

// dualCertificate tests δx for Pδx ≈ 0, ⟨q, δx⟩ < 0 and Aδx in the
// recession cone of 𝒦.
func (w *Workspace) dualCertificate(set *Settings) bool {
	n, m := w.n, w.m
	sc := &w.scale
	eps := set.EpsDualInf

	for j := 0; j < n; j++ {
		w.wn[j] = sc.dinv[j] * w.dx[j]
	}
	// Pδx = c⁻¹D⁻¹·P̂·D⁻¹·δx
	dzero(w.wn2)
	w.p.MulVecAdd(w.wn2, w.wn)
	var pdx float64
	for j := 0; j < n; j++ {
		if a := math.Abs(sc.cinv * sc.dinv[j] * w.wn2[j]); a > pdx {
			pdx = a
		}
	}
	if pdx > eps {
		return false
	}

	var qdx float64
	for j := 0; j < n; j++ {
		qdx += sc.cinv * sc.dinv[j] * w.q[j] * w.dx[j]
	}
	if qdx >= -eps {
		return false
	}

	// Aδx = E⁻¹·Â·D⁻¹·δx
	dzero(w.wm)
	w.a.MulVecAdd(w.wm, w.wn)
	for r := 0; r < m; r++ {
		w.wm[r] *= sc.einv[r]
	}
	off := 0
	for i := range w.cones {
		dim := w.cones[i].Dim()
		if !w.cones[i].InRecc(w.wm[off:off+dim], eps) {
			return false
		}
		off += dim
	}
	return true
}

// adaptRho rebalances the penalty towards equal primal and dual progress
// and refactors the KKT system when the change is large enough.
func (w *Workspace) adaptRho(set *Settings) error {
	rp, rd, _, refP, refD := w.residuals(set)
	rpRel := rp / math.Max(refP, deltaTiny)
	rdRel := rd / math.Max(refD, deltaTiny)
	if rdRel == 0 {
		return nil
	}
	rhoNew := w.rhoBase * math.Sqrt(rpRel/rdRel)
	rhoNew = math.Min(math.Max(rhoNew, rhoMin), rhoMax)
	if rhoNew <= w.rhoBase*rhoChange && rhoNew >= w.rhoBase/rhoChange {
		return nil
	}
	w.rhoBase = rhoNew
	w.buildRho(set)
	w.refacts++
	return w.kkt.UpdateRho(w.rho)
}

// finish unscales the iterate, reverses the chordal decomposition and
// assembles the result.
func (o *Optimizer) finish(w *Workspace, status Status, start time.Time, setup time.Duration, rp, rd float64) *Result {
	sc := &w.scale
	n, m := w.n, w.m

	xs := make([]float64, n)
	ss := make([]float64, m)
	ys := make([]float64, m)
	nus := make([]float64, m)
	for j := 0; j < n; j++ {
		xs[j] = sc.d[j] * w.x[j]
	}
	for r := 0; r < m; r++ {
		ss[r] = sc.einv[r] * w.s[r]
		ys[r] = -sc.cinv * sc.e[r] * w.mu[r]
		nus[r] = sc.cinv * sc.e[r] * w.nu[r]
	}

	switch status {
	case Primal_infeasible:
		dfill(math.NaN(), xs)
		dfill(math.NaN(), ss)
		dfill(math.NaN(), nus)
		copy(ys, w.dy) // the certificate direction
	case Dual_infeasible:
		copy(xs, w.dx)
		dfill(math.NaN(), ss)
		dfill(math.NaN(), ys)
		dfill(math.NaN(), nus)
	}

	res := &Result{
		Cost:      0,
		Iter:      w.iter,
		Status:    status,
		SetupTime: o.decTime + setup,
		RPrim:     rp,
		RDual:     rd,
		Summary:   Summary{NumIter: w.iter, NumRefacts: w.refacts},
	}
	if status == Solved || status == Max_iter_reached || status == Time_limit_reached {
		_, _, cost, _, _ := w.residuals(&o.set)
		res.Cost = cost
	}

	if o.dec != nil {
		res.X = append([]float64(nil), xs[:o.origN]...)
		res.S = make([]float64, o.origM)
		res.Nu = make([]float64, o.origM)
		res.Mu = make([]float64, o.origM)
		if status == Solved || status == Max_iter_reached || status == Time_limit_reached {
			o.dec.ReverseSlack(res.S, ss)
			o.dec.ReverseDual(res.Mu, ys)
			o.dec.ReverseDual(res.Nu, nus)
		} else {
			o.dec.ReverseSlack(res.S, ss)
			o.dec.ReverseSlack(res.Mu, ys)
			o.dec.ReverseSlack(res.Nu, nus)
		}
	} else {
		res.X, res.S, res.Mu, res.Nu = xs, ss, ys, nus
	}
	res.RunTime = time.Since(start)
	res.IterTime = res.RunTime - setup - o.decTime
	return res
}
