// Package driver implements the snapshot/simulation driver: three entry
// points (pressure-only, temperature-only, coupled) sharing one march
// skeleton, the geometric-loop outer wrap, and the basement preheat. The
// shared state is one Stepper per run mode, driven by the same
// stage/time loop regardless of discipline.
package driver

import (
	"github.com/cauldronfem/basincore/fct"
	"github.com/cauldronfem/basincore/massbalance"
	"github.com/cauldronfem/basincore/project"
	"github.com/cauldronfem/basincore/solver"
	"github.com/cauldronfem/basincore/telemetry"
	"github.com/cauldronfem/basincore/timestep"
)

// Stepper is the per-mode physics the march skeleton drives; a concrete
// pressure, temperature, or coupled stepper wires mesh.Build, assembly.
// Preallocate, and a solver.Problem together, keeping the time-loop
// skeleton itself mode-agnostic.
type Stepper interface {
	// RebuildActiveLayers recomputes which formations are active at age.
	RebuildActiveLayers(age float64) error
	// BuildStep constructs this step's mesh, Jacobian pattern, and initial
	// field estimate, returning the Newton problem to solve.
	BuildStep(age, dt float64) (solver.Problem, error)
	// Solve runs the Newton loop for the built step.
	Solve(p solver.Problem) solver.Outcome
	// Commit performs the post-convergence bookkeeping: deposition
	// thickness, chemical compaction, genex, basement lithostatic
	// pressure, and current-to-previous rotation.
	Commit(age, dt float64) error
	// MaybeSaveProperties saves derived property grids if this age is a
	// major snapshot, or satisfies the minor-snapshot predicate.
	MaybeSaveProperties(age float64, major bool) error
	// NextDt computes the controller's next Δt for this stepper's mode.
	NextDt(st timestep.State) float64
	// ThicknessResult reports the FCT inputs accumulated this march, for
	// the geometric-loop outer wrap; empty for temperature-only runs.
	ThicknessResult() (fct.ThicknessInputs, bool)
	// ApplyThicknessScale applies a geometric-loop correction scale to
	// this stepper's per-segment solid thicknesses before the next march.
	ApplyThicknessScale(scale float64)
}

// Params bundles the fixed inputs to any of the three entry points.
type Params struct {
	Handle               project.Handle
	SolverParams         solver.Params
	TimeStepParams       timestep.Params
	Metrics              *telemetry.Metrics
	Ledger               *massbalance.Ledger
	MaxGeometricLoopIter int
	FCT                  fct.Corrector
	Converger            fct.Converger
}

// RunPressureOnly marches the pressure-only equation across all
// snapshots, wrapped in the geometric-loop outer iteration.
func RunPressureOnly(step Stepper, p Params) error {
	return runGeometricLoop(step, p)
}

// RunTemperatureOnly marches the temperature-only equation, including the
// basement preheat before the first transient step; no geometric-loop
// wrap (pressure/thickness are not iterated here).
func RunTemperatureOnly(step Stepper, p Params) error {
	if err := preheat(step, p); err != nil {
		return err
	}
	return march(step, p)
}

// RunCoupled runs the basement preheat, then the march wrapped in the
// geometric-loop outer iteration, solving the given Stepper once per time
// step. The driver itself does not split a step into a pressure solve
// followed by a temperature solve and runs no inter-equation outer loop.
func RunCoupled(step Stepper, p Params) error {
	if err := preheat(step, p); err != nil {
		return err
	}
	return runGeometricLoop(step, p)
}

// preheat solves the steady-state basement temperature equation at the
// basin's deposition age with one Stepper.Solve call, using the same
// solver infrastructure and Newton iteration cap as a transient step; no
// separate iteration cap is applied to the preheat.
func preheat(step Stepper, p Params) error {
	snapshots := p.Handle.Snapshots()
	if len(snapshots) == 0 {
		return &SimError{Kind: InputInconsistency, Fatal: true, Message: "no snapshots in project"}
	}
	depositionAge := snapshots[0].Age

	if err := step.RebuildActiveLayers(depositionAge); err != nil {
		return &SimError{Kind: InputInconsistency, Fatal: true, Message: err.Error()}
	}
	problem, err := step.BuildStep(depositionAge, 0)
	if err != nil {
		return &SimError{Kind: InputInconsistency, Fatal: true, Message: err.Error()}
	}

	outcome := step.Solve(problem)
	if outcome.Diverged {
		telemetry.Message(telemetry.KindWarning, "basement preheat did not converge: %s", outcome.Reason)
	}
	return nil
}

// runGeometricLoop wraps march in the outer geometric-loop iteration
// bounded by MaxGeometricLoopIter; on non-convergence it reports a
// warning (not an error) carrying the last pass's thickness error
// percentage. No per-needle ThicknessError map is produced.
func runGeometricLoop(step Stepper, p Params) error {
	maxIter := p.MaxGeometricLoopIter
	if maxIter <= 0 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := march(step, p); err != nil {
			return err
		}

		inputs, has := step.ThicknessResult()
		if !has {
			return nil // non-pressure stepper: geometric loop is a no-op
		}

		result := p.FCT.Correct(inputs)
		globalConverged := p.Converger.GlobalConverged(result.Converged)

		if globalConverged {
			return nil
		}
		if iter == maxIter-1 {
			telemetry.Message(telemetry.KindWarning,
				"geometric loop did not converge after %d iterations: thickness error %.2f%%",
				maxIter, result.ThicknessErrorPct)
			if p.Metrics != nil {
				p.Metrics.GeometricNonConvergence.Inc()
			}
			return nil
		}
		step.ApplyThicknessScale(result.Scale)
	}
	return nil
}

// march runs the shared time-step skeleton driving a Stepper from the
// oldest snapshot to present day, used by all three entry points.
func march(step Stepper, p Params) error {
	snapshots := p.Handle.Snapshots()
	if len(snapshots) == 0 {
		return &SimError{Kind: InputInconsistency, Fatal: true, Message: "no snapshots in project"}
	}

	age := snapshots[0].Age
	dt := initialDt(p.TimeStepParams, snapshots)

	for age > 0 {
		if err := step.RebuildActiveLayers(age); err != nil {
			return &SimError{Kind: InputInconsistency, Fatal: true, Message: err.Error()}
		}

		problem, err := step.BuildStep(age, dt)
		if err != nil {
			return &SimError{Kind: InputInconsistency, Fatal: true, Message: err.Error()}
		}

		outcome := step.Solve(problem)
		if outcome.Diverged {
			if p.Metrics != nil {
				p.Metrics.NewtonIterations.Observe(float64(outcome.Iterations))
			}
			return &SimError{
				Kind: NonlinearDivergence, Fatal: true, Message: outcome.Reason,
				Attempts: outcome.Attempts, Iterations: outcome.Iterations,
			}
		}
		if p.Metrics != nil {
			p.Metrics.NewtonIterations.Observe(float64(outcome.Iterations))
		}

		nextAge := age - dt
		if err := step.Commit(nextAge, dt); err != nil {
			return &SimError{Kind: BackendIOFailure, Fatal: true, Message: err.Error()}
		}

		major, minor := snapshotAt(nextAge, snapshots)
		if major || minor {
			if err := step.MaybeSaveProperties(nextAge, major); err != nil {
				return &SimError{Kind: BackendIOFailure, Fatal: true, Message: err.Error()}
			}
		}

		st := timestep.State{CurrentDt: dt, InitialDt: initialDt(p.TimeStepParams, snapshots), CurrentAge: nextAge}
		dt = step.NextDt(st)
		if p.Metrics != nil {
			p.Metrics.DtGauge.Set(dt)
		}

		age = nextAge
	}
	return nil
}

func initialDt(p timestep.Params, snapshots []project.Snapshot) float64 {
	if p.MaxDt > 0 {
		return p.MaxDt
	}
	return project.MinPressureTimeStep
}

// snapshotAt reports whether nextAge lands on a major or minor snapshot,
// using the project's relative-tolerance age comparison.
func snapshotAt(nextAge float64, snapshots []project.Snapshot) (major, minor bool) {
	for _, s := range snapshots {
		if project.TimesClose(nextAge, s.Age) {
			if s.Major {
				return true, false
			}
			return false, true
		}
	}
	return false, false
}
