package basin

import (
	"testing"

	"github.com/cauldronfem/basincore/config"
	"github.com/cauldronfem/basincore/massbalance"
	"github.com/cauldronfem/basincore/solver"
	"github.com/cauldronfem/basincore/timestep"
	"github.com/cpmech/gosl/chk"
)

func twoFormationSpec() config.BasinSpec {
	return config.BasinSpec{
		FluidDensityKgm3:     1000,
		OverpressureCoupling: 0.05,
		Formation: []config.FormationSpec{
			{
				Name: "shale-top", DepositionAgeMa: 5, SolidThicknessM: 50,
				SurfacePorosity: 0.5, CompactionConstant: 1e-7, SolidDensity: 2600,
			},
			{
				Name: "sand-bottom", DepositionAgeMa: 10, SolidThicknessM: 100,
				SurfacePorosity: 0.3, CompactionConstant: 1e-7, SolidDensity: 2700,
			},
		},
	}
}

func newTestStepper(tst *testing.T) *PressureStepper {
	ledger := &massbalance.Ledger{}
	step, err := NewPressureStepper(twoFormationSpec(), solver.Params{MaxIters: 10}, timestep.Params{MaxDt: 1, MinDt: 1e-3}, ledger)
	if err != nil {
		tst.Fatalf("unexpected error building stepper: %v", err)
	}
	return step
}

func TestNewPressureStepperStoresFormationsOldestFirst(tst *testing.T) {
	chk.PrintTitle("NewPressureStepper stores formations oldest (largest deposition age) first")
	step := newTestStepper(tst)
	chk.String(tst, step.formations[0].Name, "sand-bottom")
	chk.String(tst, step.formations[1].Name, "shale-top")
	chk.Scalar(tst, "oldest age", 1e-12, step.OldestAge(), 10)
}

func TestRebuildActiveLayersOrdersActiveListShallowestFirst(tst *testing.T) {
	chk.PrintTitle("RebuildActiveLayers builds activeList shallowest-first, as compact.Needle requires")
	step := newTestStepper(tst)

	if err := step.RebuildActiveLayers(10); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if len(step.activeList) != 1 || step.activeList[0].Name != "sand-bottom" {
		tst.Fatalf("expected only sand-bottom active at age 10, got %+v", step.activeList)
	}

	if err := step.RebuildActiveLayers(5); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if len(step.activeList) != 2 {
		tst.Fatalf("expected both formations active at age 5, got %d", len(step.activeList))
	}
	chk.String(tst, step.activeList[0].Name, "shale-top")
	chk.String(tst, step.activeList[1].Name, "sand-bottom")
}

func TestNeedleModelPicksShallowestActiveFormation(tst *testing.T) {
	chk.PrintTitle("needleModel picks the shallowest active formation's lithology")
	step := newTestStepper(tst)
	if err := step.RebuildActiveLayers(5); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	got := step.needleModel()
	want := step.lith[step.indexOf(step.activeList[0])]
	chk.Scalar(tst, "surface porosity of representative model", 1e-12, got.SurfacePorosity, want.SurfacePorosity)
	chk.String(tst, step.activeList[0].Name, "shale-top")
}

func TestRebuildActiveLayersRejectsAgeWithNoActiveFormation(tst *testing.T) {
	chk.PrintTitle("RebuildActiveLayers errors when no formation has been deposited yet")
	step := newTestStepper(tst)
	if err := step.RebuildActiveLayers(20); err == nil {
		tst.Fatalf("expected an error at an age predating every formation")
	}
}

// TestBuildStepPersistsSolutionByFormationIdentity is the key regression test
// for the Segments-ordering fix: a newly-activating (shallower) formation is
// inserted at the front of activeList, shifting every other node's array
// index by one. The Newton solution must survive that reshuffle by
// formation identity, not array position.
func TestBuildStepPersistsSolutionByFormationIdentity(tst *testing.T) {
	chk.PrintTitle("BuildStep reconstructs x by formation identity across an activeList reshuffle")
	step := newTestStepper(tst)

	if err := step.RebuildActiveLayers(10); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if _, err := step.BuildStep(10, 1); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if len(step.x) != 2 {
		tst.Fatalf("expected 2 nodes with one active formation, got %d", len(step.x))
	}
	step.x[0] = 100 // top boundary of sand-bottom
	step.x[1] = 50  // base of sand-bottom
	if err := step.Commit(9, 1); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}

	if err := step.RebuildActiveLayers(5); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if _, err := step.BuildStep(5, 1); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if len(step.x) != 3 {
		tst.Fatalf("expected 3 nodes with both formations active, got %d", len(step.x))
	}
	chk.Scalar(tst, "new shallow node starts at zero", 1e-12, step.x[0], 0)
	chk.Scalar(tst, "sand-bottom top node preserved by identity, not position", 1e-12, step.x[1], 100)
	chk.Scalar(tst, "sand-bottom base node preserved by identity", 1e-12, step.x[2], 50)
}

func TestCommitRecordsDepositedMassInLedger(tst *testing.T) {
	chk.PrintTitle("Commit adds each active formation's deposited solid mass to the ledger")
	step := newTestStepper(tst)
	if err := step.RebuildActiveLayers(10); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if _, err := step.BuildStep(10, 1); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	if err := step.Commit(9, 1); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	want := 100.0 * 2700 * (1 - 0.3) // sand-bottom: thickness * density * (1 - surface porosity)
	chk.Scalar(tst, "ledger balance after first deposit", 1e-6, step.ledger.Balance(), want)
}

func TestApplyThicknessScaleRescalesEveryFormation(tst *testing.T) {
	chk.PrintTitle("ApplyThicknessScale rescales every configured formation's thickness uniformly")
	step := newTestStepper(tst)
	step.ApplyThicknessScale(0.5)
	chk.Scalar(tst, "sand-bottom thickness halved", 1e-9, step.thickness[step.indexOf(step.formations[0])], 50)
	chk.Scalar(tst, "shale-top thickness halved", 1e-9, step.thickness[step.indexOf(step.formations[1])], 25)
}
