// Package solver implements the Newton-with-reused-Jacobian nonlinear
// solver wrapper and the linear-solver fallback policy, generalised from
// displacement/pressure DOFs to the basin model's pressure/temperature
// DOFs, with the Jacobian-reuse heuristic lifted into an explicit policy
// object.
package solver

import (
	"math"

	"github.com/cpmech/gosl/la"
)

// Problem is the assembler/solution-norm contract the Newton driver needs;
// concrete pressure/temperature/coupled problems implement this without
// the driver knowing their shape, mirroring a generic element-assembly
// interface.
type Problem interface {
	// Assemble zeros and fills the residual fb (negative of residual,
	// per convention); if reassembleJac, it also zeros and
	// fills the Jacobian kb.
	Assemble(fb []float64, reassembleJac bool, kb *la.Triplet) error
	// Update applies the solution increment wb (scaled by theta already)
	// to the problem's primary variables.
	Update(wb []float64) error
	// Solution returns the current solution vector (aliased, not copied).
	Solution() []float64
}

// ReuseJacobianPolicy decides whether the Jacobian must be reassembled at
// a given Newton iteration.
type ReuseJacobianPolicy struct {
	ReuseCount int // reassemble every reuseCount-th iteration past the first 3
}

// ShouldRecompute implements the default rule: recompute on the first
// three iterations and every reuseCount-th thereafter.
func (p ReuseJacobianPolicy) ShouldRecompute(iteration int) bool {
	if iteration <= 3 {
		return true
	}
	if p.ReuseCount <= 0 {
		return true
	}
	return iteration%p.ReuseCount == 0
}

// Params configures one Newton solve.
type Params struct {
	MaxIters  int
	Tolerance float64 // tau, the convergence tolerance on |delta|
	MinIters  int     // minimum iterations before convergence is accepted (3, per spec)
	Reuse     ReuseJacobianPolicy
	Fallback  FallbackPolicy
	LinSol    la.LinSol
	Symmetric bool
}

// Outcome reports the result of one Newton solve.
type Outcome struct {
	Iterations int
	Diverged   bool
	Reason     string
	Attempts   int // linear-solve attempts across the whole solve, including fallback retries
}

// Run drives the Newton state machine: assemble, linear-solve-with-
// fallback, damped update, convergence test, NaN detection.
func Run(p Problem, params Params, kb *la.Triplet, fb, wb []float64) Outcome {
	var theta float64 = -0.5
	var prevResidual float64
	attempts := 0

	for it := 0; it < params.MaxIters; it++ {
		reassemble := params.Reuse.ShouldRecompute(it + 1) // policy counts iterations from 1

		zero(fb)
		if err := p.Assemble(fb, reassemble, kb); err != nil {
			return Outcome{Iterations: it, Diverged: true, Reason: "assembly failed: " + err.Error()}
		}

		if reassemble {
			if err := params.LinSol.InitR(kb, params.Symmetric, false, false); err != nil {
				return Outcome{Iterations: it, Diverged: true, Reason: "linear solver init failed: " + err.Error()}
			}
			if err := params.LinSol.Fact(); err != nil {
				return Outcome{Iterations: it, Diverged: true, Reason: "factorisation failed: " + err.Error()}
			}
		}

		attempts++
		err := params.LinSol.SolveR(wb, fb, false)
		if err != nil {
			ok, fbAttempts, fbErr := params.Fallback.Retry(&params.LinSol, kb, wb, fb)
			attempts += fbAttempts
			if !ok {
				reason := "linear solver diverged"
				if fbErr != nil {
					reason = fbErr.Error()
				}
				return Outcome{Iterations: it, Diverged: true, Reason: reason, Attempts: attempts}
			}
		}

		if hasNaN(wb) {
			return Outcome{Iterations: it, Diverged: true, Reason: "NaN in linear solution", Attempts: attempts}
		}

		// damped update: u <- u - theta_abs * delta, sign kept negative
		scaled := make([]float64, len(wb))
		for i, v := range wb {
			scaled[i] = -theta * v
		}
		if err := p.Update(scaled); err != nil {
			return Outcome{Iterations: it, Diverged: true, Reason: "update failed: " + err.Error()}
		}

		if hasNaN(p.Solution()) {
			return Outcome{Iterations: it, Diverged: true, Reason: "NaN in solution", Attempts: attempts}
		}

		residual := vecLargest(fb)
		deltaNorm := vecNorm(wb)
		solNorm := vecNorm(p.Solution())

		converged := false
		if solNorm > 1 {
			converged = deltaNorm/solNorm < params.Tolerance
		} else {
			converged = deltaNorm < params.Tolerance
		}

		theta = nextTheta(theta, residual, prevResidual, it)
		prevResidual = residual

		if converged && it+1 >= params.MinIters {
			return Outcome{Iterations: it + 1, Diverged: false, Attempts: attempts}
		}
	}

	return Outcome{Iterations: params.MaxIters, Diverged: true, Reason: "iteration cap reached without convergence", Attempts: attempts}
}

// nextTheta implements the damping schedule: -0.5 on the first iteration,
// -1 on iterations 2-3, and thereafter adapts: halve |theta| (floor 0.1)
// if the residual grew, else step |theta| by 0.05 toward -1.
func nextTheta(theta, residual, prevResidual float64, it int) float64 {
	// it is the 0-based iteration just completed; nextTheta decides theta
	// for iteration it+2 (1-based). Iterations 2-3 stay undamped (-1);
	// adaptation starts deciding iteration 4's theta, i.e. at it == 2.
	if it <= 1 {
		return -1
	}
	abs := -theta
	if residual > prevResidual {
		abs = abs / 2
		if abs < 0.1 {
			abs = 0.1
		}
	} else {
		abs += 0.05
		if abs > 1 {
			abs = 1
		}
	}
	return -abs
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func vecLargest(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		a := x
		if a < 0 {
			a = -a
		}
		if a > m {
			m = a
		}
	}
	return m
}

func vecNorm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
