package timestep

import (
	"testing"

	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/chk"
)

func TestPressureResetsAtSnapshotBoundary(tst *testing.T) {
	chk.PrintTitle("pressure mode resets to initial dt at a snapshot boundary")
	p := Params{IncreaseFactor: 2, DecreaseFactor: 0.5, OptimalDeltaP: 1e5, MinDt: 1e-3, MaxDt: 1}
	st := State{CurrentDt: 0.3, InitialDt: 0.05, AtSnapshotBoundary: true}
	dt := Next(ModePressure, st, p)
	chk.Scalar(tst, "dt", 1e-15, dt, 0.05)
}

func TestPressureIncreasesWhenDeltaIsZero(tst *testing.T) {
	chk.PrintTitle("pressure mode increases dt when delta-p is non-positive")
	p := Params{IncreaseFactor: 2, DecreaseFactor: 0.5, OptimalDeltaP: 1e5, MinDt: 1e-3, MaxDt: 1}
	st := State{CurrentDt: 0.1, DeltaPMax: 0}
	dt := Next(ModePressure, st, p)
	chk.Scalar(tst, "dt", 1e-15, dt, 0.2)
}

func TestPressureDecreasesWhenDeltaExceedsOptimal(tst *testing.T) {
	chk.PrintTitle("pressure mode decreases dt when delta-p exceeds optimal")
	p := Params{IncreaseFactor: 2, DecreaseFactor: 0.5, OptimalDeltaP: 1e5, MinDt: 1e-3, MaxDt: 1}
	st := State{CurrentDt: 0.1, DeltaPMax: 4e5} // optimal/delta = 0.25 < decrease factor 0.5 -> max(0.25,0.5)=0.5
	dt := Next(ModePressure, st, p)
	chk.Scalar(tst, "dt", 1e-15, dt, 0.05)
}

func TestPressureClampsToMaxDt(tst *testing.T) {
	chk.PrintTitle("pressure mode clamps to max dt")
	p := Params{IncreaseFactor: 10, DecreaseFactor: 0.5, OptimalDeltaP: 1e5, MinDt: 1e-3, MaxDt: 0.5}
	st := State{CurrentDt: 0.2, DeltaPMax: 0}
	dt := Next(ModePressure, st, p)
	chk.Scalar(tst, "dt", 1e-15, dt, 0.5)
}

func TestCoupledTakesMinimumOfPressureAndTemperature(tst *testing.T) {
	chk.PrintTitle("coupled mode takes the minimum of the pressure/temperature predictions")
	p := Params{
		IncreaseFactor: 2, DecreaseFactor: 0.5,
		OptimalDeltaP: 1e5, OptimalDeltaT: 10, OptimalDeltaTSourceRock: 10,
		MinDt: 1e-3, MaxDt: 1,
	}
	st := State{CurrentDt: 0.1, DeltaPMax: 0, DeltaTMax: 40, DeltaTSourceRockMax: 40}
	dt := Next(ModeCoupled, st, p)
	// pressure predicts 0.2 (increase), temperature predicts max(10/40,0.5)*0.1=0.05
	chk.Scalar(tst, "dt", 1e-15, dt, 0.05)
}

func TestPermafrostFixedOverridesAll(tst *testing.T) {
	chk.PrintTitle("permafrost fixed dt overrides every other prediction")
	p := Params{MinDt: 1e-3, MaxDt: 1, FixedPermafrostDt: fixedFunc(0.02)}
	st := State{CurrentDt: 0.5, CurrentAge: 10}
	dt := Next(ModePermafrost, st, p)
	chk.Scalar(tst, "dt", 1e-15, dt, 0.02)
}

func TestAlignSnapsToNearerMinorSnapshot(tst *testing.T) {
	chk.PrintTitle("align snaps to a minor snapshot that lies ahead of the raw step")
	// current=100, dt=5 -> candidate age 95; nextMinor=97 lies between current
	// and nextMajor=94, and is nearer than the raw candidate, so align snaps
	// the step to land exactly on it.
	dt := Align(100, 5, 97, 94, true)
	chk.Scalar(tst, "dt", 1e-12, dt, 3)
}

func TestAlignNeverStepsPastMajorSnapshot(tst *testing.T) {
	chk.PrintTitle("align clamps a step that would overshoot the next major snapshot")
	// current=100, dt=8 -> candidate age 92, past nextMajor=94.
	dt := Align(100, 8, 0, 94, false)
	chk.Scalar(tst, "dt", 1e-12, dt, 6)
}

func TestTimesCloseSnapshotTolerance(tst *testing.T) {
	chk.PrintTitle("snapshot ages compare within the relative tolerance")
	if !project.TimesClose(100.0, 100.0+1e-9) {
		tst.Fatalf("expected ages within 2^-23 relative tolerance to compare close")
	}
	if project.TimesClose(100.0, 100.5) {
		tst.Fatalf("expected ages 0.5 Ma apart to compare distinct")
	}
}

type fixedFunc float64

func (f fixedFunc) F(t float64, x []float64) float64 { return float64(f) }
