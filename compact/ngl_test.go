package compact

import (
	"testing"

	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/chk"
)

func TestNGLRunConvergesToConstantPorositySolidThickness(tst *testing.T) {
	chk.PrintTitle("NGL.Run back-solves solid thickness, converging when porosity is constant")
	lith := constLithology{porosity: 0.3, permNormal: 1e-16, permPlanar: 2e-16, solidDensity: 2650}
	fluid := constGLFluid{density: 1000}
	n := simpleNeedle(lith, fluid, []Segment{
		{RealThickness: 100, Overpressure: [2]float64{0, 0}, Temperature: [2]float64{20, 20}},
	})
	ngl := NGL{EpsR: 1e-9, MaxIter: 30}
	out := make([]NodeState, 2)
	ngl.Run(n, nil, out)

	// topPorosity is 0 (out[0]'s zero value), bottomPorosity converges to
	// the constant 0.3, so solidThickness settles at dzReal*(1-0.5*0.3).
	chk.Scalar(tst, "solid thickness", 1e-6, n.Segments[0].SolidThickness, 100*0.85)
	chk.Scalar(tst, "bottom porosity", 1e-9, out[1].Porosity, 0.3)
	chk.Scalar(tst, "depth advances by RealThickness", 1e-9, out[1].Depth, 100)
	chk.Scalar(tst, "permeability normal", 1e-30, out[1].PermeabilityNormal, 1e-16)
}

func TestNGLRunRespectsPreviousMaxVESFloor(tst *testing.T) {
	chk.PrintTitle("NGL.Run never lets MaxVES drop below the previous step's recorded maximum")
	lith := constLithology{porosity: 0.3, permNormal: 1e-16, permPlanar: 2e-16, solidDensity: 2650}
	fluid := constGLFluid{density: 1000}
	n := simpleNeedle(lith, fluid, []Segment{
		{RealThickness: 10, Overpressure: [2]float64{0, 0}, Temperature: [2]float64{20, 20}},
	})
	ngl := NGL{EpsR: 1e-9, MaxIter: 30}
	out := make([]NodeState, 2)
	hugePrevMaxVES := 1e12
	ngl.Run(n, []float64{hugePrevMaxVES}, out)
	if out[1].MaxVES != hugePrevMaxVES {
		tst.Fatalf("expected MaxVES to be floored at the previous maximum %g, got %g", hugePrevMaxVES, out[1].MaxVES)
	}
}

func TestNGLRunInvalidNeedleFillsUndefined(tst *testing.T) {
	chk.PrintTitle("NGL.Run fills undefined sentinels for an invalid needle")
	n := &Needle{Valid: false}
	out := make([]NodeState, 2)
	NGL{}.Run(n, nil, out)
	for _, s := range out {
		chk.Scalar(tst, "undefined depth", 1e-9, s.Depth, project.UndefinedValue)
	}
}
