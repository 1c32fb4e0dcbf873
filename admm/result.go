// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import "time"

// Status is the terminal state of a solve. Algorithmic outcomes are never
// errors: the loop always completes cleanly and reports here.
type Status int

const (
	// Unsolved the solve did not produce a usable point (cost blow-up or
	// a failed KKT factorization).
	Unsolved Status = iota
	// Solved both residuals satisfied the tolerances.
	Solved
	// Primal_infeasible a primal infeasibility certificate was found.
	Primal_infeasible
	// Dual_infeasible a dual infeasibility certificate was found.
	Dual_infeasible
	// Max_iter_reached the iteration limit was hit first.
	Max_iter_reached
	// Time_limit_reached the time limit was hit at an iteration boundary.
	Time_limit_reached
)

var statusNames = [...]string{
	"Unsolved",
	"Solved",
	"Primal_infeasible",
	"Dual_infeasible",
	"Max_iter_reached",
	"Time_limit_reached",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unsolved"
	}
	return statusNames[s]
}

// Result contains the final point and solve statistics.
//
// Mu is the cone dual satisfying Px + q + Aᵀμ ≈ 0 with μ in the dual
// cone; Nu is the equality multiplier from the KKT system, which agrees
// with Mu at convergence. On an infeasibility status the corresponding
// certificate replaces the diverging iterate and the meaningless vectors
// are NaN-filled.
type Result struct {
	X, S   []float64
	Nu, Mu []float64

	Cost   float64
	Iter   int
	Status Status

	RunTime   time.Duration
	SetupTime time.Duration
	IterTime  time.Duration

	RPrim, RDual float64

	Summary
}

// Summary mirrors the per-solve counters for quick inspection.
type Summary struct {
	NumIter    int
	NumRefacts int // KKT refactorizations triggered by penalty updates
}
