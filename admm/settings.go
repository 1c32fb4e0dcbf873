// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import "math"

const (
	zero = 0.0
	one  = 1.0
)

// MergeKind selects the clique-merge strategy used when a PSD constraint
// is chordally decomposed.
type MergeKind int

const (
	// MergeGraph merges on the reduced clique graph (default).
	MergeGraph MergeKind = iota
	// MergeParentChild merges along the clique tree only.
	MergeParentChild
	// MergeNone keeps the unmerged clique tree.
	MergeNone
)

// Settings collects every tunable of the solver. Zero numeric fields other
// than Scaling and TimeLimit select the documented defaults through
// DefaultSettings; Scaling and TimeLimit keep 0 as "disabled", and the
// boolean fields and Merge are taken as given, so a zero Settings runs
// without scaling, adaptive ρ or decomposition. Problem.New validates the
// final values and rejects the problem before any solve is attempted.
type Settings struct {
	// MaxIter bounds the ADMM iteration count.
	MaxIter int
	// EpsAbs and EpsRel are the absolute and relative residual tolerances.
	EpsAbs, EpsRel float64
	// Alpha is the over-relaxation parameter, required inside (0, 2).
	Alpha float64
	// Sigma is the primal regularization added to P in the KKT system.
	Sigma float64
	// Rho is the initial penalty.
	Rho float64
	// RhoEq multiplies Rho on equality (zero-cone) rows.
	RhoEq float64
	// AdaptiveRho enables residual-balancing penalty updates.
	AdaptiveRho bool
	// AdaptiveRhoInterval is the iteration spacing of penalty updates.
	AdaptiveRhoInterval int
	// CheckTermination is the iteration spacing of convergence checks.
	CheckTermination int
	// CheckInfeasibility is the iteration spacing of certificate checks.
	CheckInfeasibility int
	// EpsPrimInf and EpsDualInf are the certificate tolerances.
	EpsPrimInf, EpsDualInf float64
	// Scaling is the number of Ruiz equilibration passes; 0 disables.
	Scaling int
	// MinScaling and MaxScaling clamp the equilibration factors.
	MinScaling, MaxScaling float64
	// TimeLimit bounds the solve in seconds; 0 disables.
	TimeLimit float64
	// Verbose prints per-check progress through the logger.
	Verbose bool
	// Decompose enables chordal decomposition of sparse PSD constraints.
	Decompose bool
	// Merge selects the clique-merge strategy.
	Merge MergeKind
	// MergeFill and MergeSize are the ParentChild thresholds.
	MergeFill, MergeSize int
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxIter:             2500,
		EpsAbs:              1e-4,
		EpsRel:              1e-4,
		Alpha:               1.6,
		Sigma:               1e-6,
		Rho:                 0.1,
		RhoEq:               1e3,
		AdaptiveRho:         true,
		AdaptiveRhoInterval: 40,
		CheckTermination:    40,
		CheckInfeasibility:  40,
		EpsPrimInf:          1e-4,
		EpsDualInf:          1e-4,
		Scaling:             10,
		MinScaling:          1e-4,
		MaxScaling:          1e4,
		Decompose:           true,
		MergeFill:           8,
		MergeSize:           8,
	}
}

// withDefaults fills unset fields so a partially specified Settings keeps
// the documented behavior.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxIter == 0 {
		s.MaxIter = def.MaxIter
	}
	if s.EpsAbs == 0 {
		s.EpsAbs = def.EpsAbs
	}
	if s.EpsRel == 0 {
		s.EpsRel = def.EpsRel
	}
	if s.Alpha == 0 {
		s.Alpha = def.Alpha
	}
	if s.Sigma == 0 {
		s.Sigma = def.Sigma
	}
	if s.Rho == 0 {
		s.Rho = def.Rho
	}
	if s.RhoEq == 0 {
		s.RhoEq = def.RhoEq
	}
	if s.AdaptiveRhoInterval == 0 {
		s.AdaptiveRhoInterval = def.AdaptiveRhoInterval
	}
	if s.CheckTermination == 0 {
		s.CheckTermination = def.CheckTermination
	}
	if s.CheckInfeasibility == 0 {
		s.CheckInfeasibility = def.CheckInfeasibility
	}
	if s.EpsPrimInf == 0 {
		s.EpsPrimInf = def.EpsPrimInf
	}
	if s.EpsDualInf == 0 {
		s.EpsDualInf = def.EpsDualInf
	}
	if s.MinScaling == 0 {
		s.MinScaling = def.MinScaling
	}
	if s.MaxScaling == 0 {
		s.MaxScaling = def.MaxScaling
	}
	if s.MergeFill == 0 {
		s.MergeFill = def.MergeFill
	}
	if s.MergeSize == 0 {
		s.MergeSize = def.MergeSize
	}
	return s
}

// validate reports the first configuration error, or an empty string.
func (s *Settings) validate() string {
	switch {
	case s.MaxIter <= 0:
		return "max iteration must greater than 0"
	case s.EpsAbs < zero || s.EpsRel < zero:
		return "residual tolerances must not less than 0"
	case s.Alpha <= zero || s.Alpha >= 2:
		return "over-relaxation alpha must lie in (0,2)"
	case s.Sigma <= zero:
		return "sigma must greater than 0"
	case s.Rho <= zero || math.IsInf(s.Rho, 0):
		return "rho must greater than 0"
	case s.RhoEq < one:
		return "equality rho multiplier must not less than 1"
	case s.Scaling < 0:
		return "scaling iterations must not less than 0"
	case s.MinScaling <= zero || s.MaxScaling < s.MinScaling:
		return "scaling clamp range is empty"
	case s.TimeLimit < zero:
		return "time limit must not less than 0"
	}
	return ""
}
