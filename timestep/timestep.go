// Package timestep implements the adaptive time-step controller: per-mode
// Δt prediction from property deltas, CFL bounds, permafrost overrides,
// and snapshot alignment.
package timestep

import (
	"math"

	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/mpi"
)

// Mode selects which prediction rule Next applies.
type Mode int

const (
	ModePressure Mode = iota
	ModeTemperature
	ModeCoupled
	ModePermafrost
)

// Params carries the project-configured tuning for the controller, one
// set per run.
type Params struct {
	IncreaseFactor float64 // f_up
	DecreaseFactor float64 // f_down
	OptimalDeltaP  float64 // p*
	OptimalDeltaT  float64 // T*
	OptimalDeltaTSourceRock float64 // T*_sr
	MinDt          float64
	MaxDt          float64
	CFLEnabled     bool
	HighOptimisation bool

	FixedPermafrostDt fun.Func // nil disables; evaluated at the current age
	PermafrostActive  bool
}

// State carries the per-step measurements the prediction rules consume.
type State struct {
	CurrentDt        float64
	InitialDt        float64
	NewtonIterations int
	NewtonCap        int
	DeltaPMax        float64 // local-rank max; reduced across ranks by Next
	DeltaTMax        float64
	DeltaTSourceRockMax float64
	LocalCFL         float64 // local-rank CFL-predicted step; reduced by Next
	CurrentAge       float64 // Ma, for evaluating a time-varying permafrost override

	AtSnapshotBoundary bool
}

// Next computes the next Δt for the given mode, performing the MPI
// collectives the multi-rank basin model needs to agree on a single
// global step.
func Next(mode Mode, st State, p Params) float64 {
	deltaPMax := reduceMax(st.DeltaPMax)
	deltaTMax := reduceMax(st.DeltaTMax)
	deltaTSRMax := reduceMax(st.DeltaTSourceRockMax)
	cfl := reduceMin(st.LocalCFL)

	var dt float64
	switch mode {
	case ModePressure:
		dt = predictPressure(st, p, deltaPMax)
	case ModeTemperature:
		dt = predictTemperature(st, p, deltaTMax, deltaTSRMax)
	case ModeCoupled:
		dtP := predictPressure(st, p, deltaPMax)
		dtT := predictTemperature(st, p, deltaTMax, deltaTSRMax)
		dt = math.Min(dtP, dtT)
	case ModePermafrost:
		dt = predictPermafrost(st, p)
		return dt // permafrost overrides bypass CFL/clamp, already bounded
	}

	if p.CFLEnabled {
		dt = math.Max(cfl, dt)
	}
	dt = clamp(dt, p.MinDt, p.MaxDt)
	return dt
}

func predictPressure(st State, p Params, deltaPMax float64) float64 {
	if st.AtSnapshotBoundary {
		return st.InitialDt
	}
	if p.HighOptimisation && st.NewtonIterations >= st.NewtonCap && deltaPMax > 0.25*p.OptimalDeltaP {
		return st.CurrentDt * math.Max(0.5, p.DecreaseFactor)
	}
	if deltaPMax <= 0 {
		return st.CurrentDt * p.IncreaseFactor
	}
	if deltaPMax < p.OptimalDeltaP {
		return st.CurrentDt * math.Min(p.OptimalDeltaP/deltaPMax, p.IncreaseFactor)
	}
	return st.CurrentDt * math.Max(p.OptimalDeltaP/deltaPMax, p.DecreaseFactor)
}

func predictTemperature(st State, p Params, deltaTMax, deltaTSRMax float64) float64 {
	dtGlobal := predictFromDelta(st, p.IncreaseFactor, p.DecreaseFactor, p.OptimalDeltaT, deltaTMax)
	dtSR := predictFromDelta(st, p.IncreaseFactor, p.DecreaseFactor, p.OptimalDeltaTSourceRock, deltaTSRMax)
	dt := math.Min(dtGlobal, dtSR)
	dt = math.Min(dt, p.MaxDt)
	return dt
}

// predictFromDelta implements the same shape as predictPressure's rule,
// parameterised on an arbitrary optimal-delta target.
func predictFromDelta(st State, up, down, optimal, delta float64) float64 {
	if delta <= 0 {
		return st.CurrentDt * up
	}
	if delta < optimal {
		return st.CurrentDt * math.Min(optimal/delta, up)
	}
	return st.CurrentDt * math.Max(optimal/delta, down)
}

func predictPermafrost(st State, p Params) float64 {
	if fixed := permafrostDt(p.FixedPermafrostDt, st.CurrentAge); fixed > 0 {
		return fixed
	}
	if p.PermafrostActive {
		return clamp(st.CurrentDt, p.MinDt, permafrostDt(p.FixedPermafrostDt, st.CurrentAge))
	}
	return st.CurrentDt
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func reduceMax(local float64) float64 {
	if !mpi.IsOn() || mpi.Size() <= 1 {
		return local
	}
	out := make([]float64, 1)
	mpi.AllReduceMax([]float64{local}, out)
	return out[0]
}

func reduceMin(local float64) float64 {
	if !mpi.IsOn() || mpi.Size() <= 1 {
		return local
	}
	out := make([]float64, 1)
	mpi.AllReduceMin([]float64{local}, out)
	return out[0]
}

// permafrostDt evaluates a time-varying permafrost Δt override, expressed
// as a fun.Func so a constant override and a time-dependent one slot into
// the same Params field.
func permafrostDt(f fun.Func, age float64) float64 {
	if f == nil {
		return 0
	}
	return f.F(age, nil)
}

// Align snaps dt to the next snapshot: if current-dt lands within
// tolerance of a snapshot, snap to it; if
// a minor snapshot lies strictly before the next major one, prefer it;
// never step past the next major snapshot.
func Align(current, dt float64, nextMinor, nextMajor float64, haveMinor bool) float64 {
	candidate := current - dt
	if project.TimesClose(candidate, nextMajor) {
		return current - nextMajor
	}
	if haveMinor && project.TimesClose(candidate, nextMinor) {
		return current - nextMinor
	}
	if candidate < nextMajor {
		return current - nextMajor
	}
	if haveMinor && nextMinor > nextMajor && candidate < nextMinor {
		return current - nextMinor
	}
	return dt
}
