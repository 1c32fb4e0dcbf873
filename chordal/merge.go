// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

// MergeStrategy drives the clique-merge scheduler. Implementations live in
// this package; the scheduler itself is strategy-agnostic:
//
//	initialise
//	while !stop:
//	    (cand, weight) = traverse
//	    doMerge        = evaluate(cand, weight)
//	    if doMerge: merge(cand)
//	    log(cand, doMerge)
//	    update(cand, doMerge)
//
// Merging never fails; a pathological graph simply yields no merges.
type MergeStrategy interface {
	initialise(t *SuperNodeTree)
	traverse(t *SuperNodeTree) (cand [2]int, weight float64, ok bool)
	evaluate(t *SuperNodeTree, cand [2]int, weight float64) bool
	merge(t *SuperNodeTree, cand [2]int)
	update(t *SuperNodeTree, cand [2]int, merged bool)
	done() bool
	finish(t *SuperNodeTree)
}

// Merge runs the scheduler with the given strategy and leaves the tree in
// final clique-tree form (parents, postorder and separators valid).
func (t *SuperNodeTree) Merge(s MergeStrategy) {
	s.initialise(t)
	for !s.done() && t.num > 1 {
		cand, weight, ok := s.traverse(t)
		if !ok {
			break
		}
		doMerge := s.evaluate(t, cand, weight)
		if doMerge {
			s.merge(t, cand)
		}
		t.logMerge(cand, doMerge)
		s.update(t, cand, doMerge)
		if t.num == 1 {
			break
		}
	}
	s.finish(t)
}

// ParentChildMerge walks the clique tree in descending topological order
// and folds a clique into its parent when the estimated fill-in or the
// block sizes stay below the thresholds.
type ParentChildMerge struct {
	// TFill bounds (|snd_par|−|sep_ℓ|)·(|snd_ℓ|−|sep_ℓ|), the fill-in a
	// merge introduces.
	TFill int
	// TSize merges any pair whose supernodes are both at most this large.
	TSize int

	order  []int
	cursor int
	stop   bool
}

// NewParentChildMerge returns the tree-based strategy with the given
// fill-in and size thresholds.
func NewParentChildMerge(tFill, tSize int) *ParentChildMerge {
	return &ParentChildMerge{TFill: tFill, TSize: tSize}
}

func (s *ParentChildMerge) initialise(t *SuperNodeTree) {
	s.order = append(s.order[:0], t.sndPost...)
	s.cursor = len(s.order) - 1
}

func (s *ParentChildMerge) traverse(t *SuperNodeTree) ([2]int, float64, bool) {
	for s.cursor >= 0 {
		c := s.order[s.cursor]
		s.cursor--
		if len(t.snd[c]) == 0 || t.sndPar[c] < 0 {
			continue
		}
		if s.cursor < 0 {
			s.stop = true
		}
		return [2]int{t.sndPar[c], c}, 0, true
	}
	s.stop = true
	return [2]int{}, 0, false
}

func (s *ParentChildMerge) evaluate(t *SuperNodeTree, cand [2]int, _ float64) bool {
	par, c := cand[0], cand[1]
	fill := (len(t.snd[par]) - len(t.sep[c])) * (len(t.snd[c]) - len(t.sep[c]))
	size := max(len(t.snd[c]), len(t.snd[par]))
	return fill <= s.TFill || size <= s.TSize
}

func (s *ParentChildMerge) merge(t *SuperNodeTree, cand [2]int) {
	par, c := cand[0], cand[1]
	t.snd[par] = sortedUnion(t.snd[par], t.snd[c])
	t.snd[c] = nil
	t.sep[c] = nil
	// reattach the absorbed clique's children
	for _, ch := range t.sndChild[c] {
		t.sndPar[ch] = par
		t.sndChild[par] = append(t.sndChild[par], ch)
	}
	t.sndChild[c] = nil
	kids := t.sndChild[par][:0]
	for _, ch := range t.sndChild[par] {
		if ch != c {
			kids = append(kids, ch)
		}
	}
	t.sndChild[par] = kids
	t.num--
}

func (s *ParentChildMerge) update(*SuperNodeTree, [2]int, bool) {}

func (s *ParentChildMerge) done() bool { return s.stop }

func (s *ParentChildMerge) finish(t *SuperNodeTree) {
	t.recomputePostOrder()
}

// NoMerge leaves the tree untouched.
type NoMerge struct{}

// NewNoMerge returns the no-op strategy.
func NewNoMerge() *NoMerge { return &NoMerge{} }

func (*NoMerge) initialise(*SuperNodeTree)                             {}
func (*NoMerge) traverse(*SuperNodeTree) ([2]int, float64, bool)       { return [2]int{}, 0, false }
func (*NoMerge) evaluate(*SuperNodeTree, [2]int, float64) bool         { return false }
func (*NoMerge) merge(*SuperNodeTree, [2]int)                          {}
func (*NoMerge) update(*SuperNodeTree, [2]int, bool)                   {}
func (*NoMerge) done() bool                                            { return true }
func (*NoMerge) finish(*SuperNodeTree)                                 {}
