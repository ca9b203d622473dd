// Package fct implements the FCT corrector: the outer geometric-loop
// reconciliation of simulated present-day thickness with the input
// stratigraphy, by scaling per-segment solid thickness. The convergence
// flag is reduced with MIN over a float64 0/1 buffer, not a bool, so every
// rank agrees even under mixed floating-point rounding.
package fct

import "github.com/cpmech/gosl/mpi"

// ThicknessInputs is the per-needle, per-layer selection the corrector's
// contract requires — this selection rule must
// not be altered by the implementer.
type ThicknessInputs struct {
	ErodedPresentDay     float64 // present-day eroded thickness, if > 0
	PresentDayThickness  float64 // present-day thickness, if > 0
	DepositionThickness  float64 // deposition thickness (always available)
	ComputedCurrentBottomTop float64 // computed, paired with ErodedPresentDay
	ComputedDeposited    float64 // computed, paired with PresentDayThickness or DepositionThickness
}

// SelectPair chooses the (input, computed) pair per the corrector's
// contract: eroded > present-day > deposition-only.
func (t ThicknessInputs) SelectPair() (input, computed float64) {
	if t.ErodedPresentDay > 0 {
		return t.ErodedPresentDay, t.ComputedCurrentBottomTop
	}
	if t.PresentDayThickness > 0 {
		return t.PresentDayThickness, t.ComputedDeposited
	}
	return t.DepositionThickness, t.ComputedDeposited
}

// Result is the per-needle, per-layer outcome of one correction pass.
type Result struct {
	Scale          float64
	ThicknessErrorPct float64
	Converged      bool
}

// Corrector implements the GL outer-loop reconciliation.
type Corrector struct {
	EpsR   float64 // relative tolerance
	EpsA   float64 // absolute tolerance, metres
	Weight float64 // FctCorrectionScalingWeight, w in (0,1]
}

// Correct applies one outer-iteration correction to a single needle/layer,
// returning the scale factor to apply to every segment's solid thickness
// and whether this needle/layer has converged.
func (c Corrector) Correct(t ThicknessInputs) Result {
	input, computed := t.SelectPair()

	scale := 1.0
	if absf(input) > 1e-10 && absf(computed) > 1e-10 {
		scale = 1 - c.Weight + c.Weight*input/computed
	}

	errPct := 0.0
	if input != 0 {
		errPct = 100 * absf(input-computed) / input
	}

	var converged bool
	if input < 100 {
		converged = input <= 10 || absf(input-computed) <= c.EpsA
	} else {
		converged = errPct/100 <= c.EpsR
	}

	return Result{Scale: scale, ThicknessErrorPct: errPct, Converged: converged}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Converger is satisfied by both the GL corrector's reduction and the NGL
// always-converged stub, so the driver (C11) can treat them uniformly.
type Converger interface {
	GlobalConverged(localConverged bool) bool
}

// MPIReducer AND-reduces per-needle convergence via MIN over a float64
// mapping true->1, so every rank agrees even if floating-point rounding
// makes one rank's local flag disagree with another's.
type MPIReducer struct{}

func (MPIReducer) GlobalConverged(localConverged bool) bool {
	local := 0.0
	if localConverged {
		local = 1
	}
	if !mpi.IsOn() || mpi.Size() <= 1 {
		return localConverged
	}
	out := make([]float64, 1)
	mpi.AllReduceMin([]float64{local}, out)
	return out[0] == 1
}

// AlwaysConverged is the NGL corrector's convergence reporter: the NGL
// integrator drives directly by real thicknesses, so it always reports
// converged.
type AlwaysConverged struct{}

func (AlwaysConverged) GlobalConverged(bool) bool { return true }
