package fct

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestSelectPairPrefersEroded(tst *testing.T) {
	chk.PrintTitle("select pair prefers eroded over present-day/deposition")
	in := ThicknessInputs{
		ErodedPresentDay:         120,
		PresentDayThickness:      200,
		DepositionThickness:      300,
		ComputedCurrentBottomTop: 110,
		ComputedDeposited:        310,
	}
	input, computed := in.SelectPair()
	chk.Scalar(tst, "input", 1e-15, input, 120)
	chk.Scalar(tst, "computed", 1e-15, computed, 110)
}

func TestSelectPairFallsBackToDeposition(tst *testing.T) {
	chk.PrintTitle("select pair falls back to deposition-only")
	in := ThicknessInputs{DepositionThickness: 50, ComputedDeposited: 48}
	input, computed := in.SelectPair()
	chk.Scalar(tst, "input", 1e-15, input, 50)
	chk.Scalar(tst, "computed", 1e-15, computed, 48)
}

func TestCorrectConvergesWithinTolerance(tst *testing.T) {
	chk.PrintTitle("corrector converges within relative tolerance")
	c := Corrector{EpsR: 0.01, EpsA: 1, Weight: 1}
	r := c.Correct(ThicknessInputs{DepositionThickness: 1000, ComputedDeposited: 1005})
	if !r.Converged {
		tst.Fatalf("expected convergence at 0.5%% error, got errPct=%v", r.ThicknessErrorPct)
	}
}

func TestCorrectSmallInputUsesAbsoluteRule(tst *testing.T) {
	chk.PrintTitle("corrector uses the <=10 shortcut for tiny inputs")
	c := Corrector{EpsR: 0.01, EpsA: 5, Weight: 1}
	r := c.Correct(ThicknessInputs{DepositionThickness: 8, ComputedDeposited: 200})
	if !r.Converged {
		tst.Fatalf("expected convergence for tiny input regardless of error")
	}
}

func TestCorrectScaleIdentityWhenComputedZero(tst *testing.T) {
	chk.PrintTitle("corrector leaves scale at 1 when computed is ~0")
	c := Corrector{EpsR: 0.01, EpsA: 1, Weight: 0.5}
	r := c.Correct(ThicknessInputs{DepositionThickness: 100, ComputedDeposited: 0})
	chk.Scalar(tst, "scale", 1e-15, r.Scale, 1)
}

func TestAlwaysConvergedIsAlwaysTrue(tst *testing.T) {
	chk.PrintTitle("NGL's always-converged reporter")
	if !(AlwaysConverged{}).GlobalConverged(false) {
		tst.Fatalf("AlwaysConverged must report converged regardless of input")
	}
}

func TestMPIReducerSingleRankPassesThrough(tst *testing.T) {
	chk.PrintTitle("single-rank MIN reduction passes through local result")
	r := MPIReducer{}
	if r.GlobalConverged(true) != true {
		tst.Fatalf("single-rank reducer should pass through local result")
	}
	if r.GlobalConverged(false) != false {
		tst.Fatalf("single-rank reducer should pass through local result")
	}
}
