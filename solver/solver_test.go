package solver

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestReuseJacobianPolicyAlwaysRecomputesFirstThree(tst *testing.T) {
	chk.PrintTitle("Jacobian is always recomputed for the first three iterations")
	p := ReuseJacobianPolicy{ReuseCount: 5}
	for it := 0; it <= 3; it++ {
		if !p.ShouldRecompute(it) {
			tst.Fatalf("iteration %d should recompute", it)
		}
	}
}

func TestReuseJacobianPolicyReusesBetweenMultiples(tst *testing.T) {
	chk.PrintTitle("Jacobian is reused between reuseCount multiples past iteration 3")
	p := ReuseJacobianPolicy{ReuseCount: 5}
	if p.ShouldRecompute(4) {
		tst.Fatalf("iteration 4 should reuse, not recompute")
	}
	if !p.ShouldRecompute(5) {
		tst.Fatalf("iteration 5 (multiple of reuseCount) should recompute")
	}
}

func TestReuseJacobianPolicyZeroReuseAlwaysRecomputes(tst *testing.T) {
	chk.PrintTitle("a zero reuseCount always recomputes (no reuse configured)")
	p := ReuseJacobianPolicy{ReuseCount: 0}
	if !p.ShouldRecompute(100) {
		tst.Fatalf("expected recompute when reuse is disabled")
	}
}

func TestHasNaNDetectsNaN(tst *testing.T) {
	chk.PrintTitle("hasNaN flags a NaN entry anywhere in the vector")
	if hasNaN([]float64{1, 2, 3}) {
		tst.Fatalf("expected no NaN in a clean vector")
	}
	nan := 0.0
	nan = nan / nan
	if !hasNaN([]float64{1, nan, 3}) {
		tst.Fatalf("expected NaN to be detected")
	}
}

func TestVecNormAndLargest(tst *testing.T) {
	chk.PrintTitle("vector norm and largest-magnitude helpers")
	v := []float64{3, -4}
	chk.Scalar(tst, "norm", 1e-12, vecNorm(v), 5)
	chk.Scalar(tst, "largest", 1e-12, vecLargest(v), 4)
}

func TestNextThetaHoldsFullStepThroughIterationThree(tst *testing.T) {
	chk.PrintTitle("damping stays at -1 while deciding theta for iterations 2 and 3")
	chk.Scalar(tst, "theta for iteration 2 (it=0)", 1e-12, nextTheta(-0.5, 0, 0, 0), -1)
	chk.Scalar(tst, "theta for iteration 3 (it=1)", 1e-12, nextTheta(-1, 2, 3, 1), -1)
}

func TestNextThetaAdaptsStartingAtIterationFour(tst *testing.T) {
	chk.PrintTitle("iteration 3's residual growth halves theta for iteration 4 (it=2)")
	// iteration 3's residual (1) exceeds iteration 2's (0.5): theta must
	// halve in magnitude, not stay undamped at -1.
	chk.Scalar(tst, "theta for iteration 4 on residual growth", 1e-12, nextTheta(-1, 1, 0.5, 2), -0.5)
	// iteration 3's residual (0.5) is below iteration 2's (1): theta steps
	// toward -1 by 0.05.
	chk.Scalar(tst, "theta for iteration 4 on residual shrink", 1e-12, nextTheta(-0.6, 0.5, 1, 2), -0.65)
}

func TestNextThetaHalvesOnResidualGrowth(tst *testing.T) {
	chk.PrintTitle("damping halves (floored at 0.1) when the residual grows")
	chk.Scalar(tst, "theta", 1e-12, nextTheta(-1, 2, 1, 4), -0.5)
}
