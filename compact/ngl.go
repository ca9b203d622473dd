package compact

import (
	"github.com/cauldronfem/basincore/project"
	"gonum.org/v1/gonum/floats"
)

// NGL is the non-geometric-loop compaction integrator: given real thickness, it back-solves solid thickness via an
// inner Picard iteration.
type NGL struct {
	EpsR    float64 // relative/absolute convergence tolerance on solidThickness
	MaxIter int
	LateralStressFactor func(segIdx int) float64 // alpha_lateral, time-dependent
}

// Run integrates one needle top to bottom, writing each segment's solid
// thickness back into n.Segments and all pressures/VES/porosity at the
// bottom of each segment into out.
func (ngl NGL) Run(n *Needle, maxVESPrev []float64, out []NodeState) {
	if !n.Valid {
		fillUndefined(out)
		return
	}

	depth := n.TopDepth
	hydro := n.TopHydrostatic
	litho := n.TopLitho
	pore := n.TopPore

	out[0] = NodeState{Depth: depth, Hydrostatic: hydro, Litho: litho, Pore: pore, VES: litho - pore, MaxVES: n.TopMaxVESPrev}

	maxIter := ngl.MaxIter
	if maxIter <= 0 {
		maxIter = 30
	}

	for segIdx := range n.Segments {
		seg := &n.Segments[segIdx]
		lith := n.Lithology(segIdx)
		dzReal := seg.RealThickness

		topPorosity := out[segIdx].Porosity
		topPore := pore

		alpha := 0.0
		if ngl.LateralStressFactor != nil {
			alpha = ngl.LateralStressFactor(segIdx)
		}

		solidThickness := dzReal * (1 - topPorosity) // initial guess
		bottomPorosity := topPorosity
		var bottomHydro, bottomLitho, bottomPore, ves, maxVES float64

		for iter := 0; iter < maxIter; iter++ {
			// 1. predict fluid density at top pore pressure; predict pore
			// pressure with predicted density.
			tempBot := seg.Temperature[1]
			rhoFPred := n.FluidModel().Density(tempBot, topPore)
			predPore := topPore + dzReal*rhoFPred*project.Gravity

			// 2. correct fluid density at predicted pore pressure;
			// recompute hydrostatic/pore with trapezoid rule.
			rhoFCorr := n.FluidModel().Density(tempBot, predPore)
			rhoFAvg := 0.5 * (n.FluidModel().Density(seg.Temperature[0], topPore) + rhoFCorr)
			bottomHydro = out[segIdx].Hydrostatic + dzReal*rhoFAvg*project.Gravity
			bottomPore = bottomHydro + seg.Overpressure[1]

			// 3. bulk density from current bottom-porosity estimate.
			rhoSolid := lith.SolidDensity
			rhoBulk := bottomPorosity*rhoFCorr + (1-bottomPorosity)*rhoSolid

			// 4. lithostatic by trapezoid rule on bulk density.
			topRhoBulk := topPorosity*rhoFAvg + (1-topPorosity)*rhoSolid
			bottomLitho = out[segIdx].Litho + dzReal*0.5*(topRhoBulk+rhoBulk)*project.Gravity

			if bottomPore > bottomLitho {
				bottomPore = bottomLitho
			}

			// 5. VES / MaxVES
			ves = bottomLitho - bottomPore
			if ves < 0 {
				ves = 0
			}
			maxVES = ves * (1 + alpha)
			if segIdx < len(maxVESPrev) && maxVESPrev[segIdx] > maxVES {
				maxVES = maxVESPrev[segIdx]
			}

			// 6. recompute bottom porosity.
			newBottomPorosity := n.Lith.Porosity(ves, maxVES, true, seg.ChemicalCompaction)

			// 7. new solid-thickness estimate.
			newSolid := dzReal * (1 - 0.5*(topPorosity+newBottomPorosity))

			// 8. convergence test.
			converged := false
			if newSolid > ngl.EpsR {
				converged = floats.EqualWithinRel(newSolid, solidThickness, ngl.EpsR)
			} else {
				converged = floats.EqualWithinAbs(newSolid, solidThickness, ngl.EpsR)
			}

			solidThickness = newSolid
			bottomPorosity = newBottomPorosity

			if converged {
				break
			}
		}

		seg.SolidThickness = solidThickness
		depth += dzReal
		hydro, litho, pore = bottomHydro, bottomLitho, bottomPore

		kN, kP := n.Lith.Permeability(ves, maxVES, bottomPorosity)
		out[segIdx+1] = NodeState{
			Depth: depth, Hydrostatic: hydro, Litho: litho, Pore: pore,
			VES: ves, MaxVES: maxVES, Porosity: bottomPorosity,
			PermeabilityNormal: kN, PermeabilityPlanar: kP,
		}
	}
}

// FluidModel exposes the needle's fluid model (small accessor kept local
// to this file so ngl.go reads top to bottom without forward references).
func (n *Needle) FluidModel() project.FluidModel { return n.Fluid }
