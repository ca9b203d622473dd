package compact

import "github.com/cauldronfem/basincore/project"

// OptimisationLevel selects the inner substep count M for GL integration.
type OptimisationLevel int

const (
	OptFast OptimisationLevel = iota
	OptNormal
	OptHigh
)

// Substeps maps an optimisation level to the inner substep count M used
// to subdivide each segment during GL integration.
func Substeps(level OptimisationLevel) int {
	switch level {
	case OptFast:
		return 1
	case OptHigh:
		return 8
	default:
		return 4
	}
}

// GL is the geometric-loop compaction integrator:
// given solid thickness (held fixed; the FCT corrector adjusts it across
// outer iterations), it computes real thickness and all pressures.
type GL struct {
	Level OptimisationLevel
}

// Run integrates one needle from top to bottom, filling out (length
// len(needle.Segments)+1, one per node). erodedNonMobile, if true, applies
// the erosion MaxVES-interpolation special case for this needle's
// formation.
func (g GL) Run(n *Needle, erodedNonMobile bool, prevTopMaxVES, prevBottomMaxVES, prevTopThickness, currTopThickness float64, out []NodeState) {
	if !n.Valid {
		fillUndefined(out)
		return
	}

	depth := n.TopDepth
	hydro := n.TopHydrostatic
	litho := n.TopLitho
	maxVES := n.TopMaxVESPrev

	if erodedNonMobile && prevTopThickness > 0 {
		ratio := currTopThickness / prevTopThickness
		maxVES = prevBottomMaxVES + (prevTopMaxVES-prevBottomMaxVES)*ratio
	}

	out[0] = NodeState{Depth: depth, Hydrostatic: hydro, Litho: litho, Pore: n.TopPore, VES: litho - n.TopPore, MaxVES: maxVES}
	if len(n.Segments) > 0 {
		out[0].Porosity = n.Lith.Porosity(0, maxVES, true, n.Segments[0].ChemicalCompaction)
	}

	M := Substeps(g.Level)

	for segIdx, seg := range n.Segments {
		lith := n.Lithology(segIdx)

		if seg.SolidThickness < 1e-3 {
			// zero-segment-thickness: fill from the topmost inactive node
			// down to just above the first active segment with top-of-
			// layer values, never undefined.
			out[segIdx+1] = out[segIdx]
			continue
		}

		pore := out[segIdx].Pore
		chem := seg.ChemicalCompaction
		porosity := out[segIdx].Porosity

		hSub := seg.SolidThickness / float64(M)
		for sub := 1; sub <= M; sub++ {
			frac := float64(sub) / float64(M)
			overp := seg.Overpressure[0] + frac*(seg.Overpressure[1]-seg.Overpressure[0])
			temp := seg.Temperature[0] + frac*(seg.Temperature[1]-seg.Temperature[0])

			rhoFluid := n.Fluid.Density(temp, pore)
			denom := 1 - porosity
			if denom < 1e-6 {
				denom = 1e-6
			}
			dz := hSub / denom

			rhoSolid := lith.SolidDensity
			rhoBulk := porosity*rhoFluid + (1-porosity)*rhoSolid

			permafrostIce := n.Fluid.Permafrost() && rhoFluid > rhoSolid
			if !permafrostIce {
				hydro += dz * rhoFluid * project.Gravity
			}
			litho += dz * rhoBulk * project.Gravity

			if permafrostIce {
				pore = litho
			} else {
				cand := hydro + overp
				if cand < litho {
					pore = cand
				} else {
					pore = litho
				}
			}

			ves := litho - pore
			if ves < 0 {
				ves = 0
			}
			if ves > maxVES {
				maxVES = ves
			}

			porosity = n.Lith.Porosity(ves, maxVES, true, chem)
			depth += dz
		}

		kN, kP := n.Lith.Permeability(litho-pore, maxVES, porosity)
		out[segIdx+1] = NodeState{
			Depth: depth, Hydrostatic: hydro, Litho: litho, Pore: pore,
			VES: litho - pore, MaxVES: maxVES, Porosity: porosity,
			PermeabilityNormal: kN, PermeabilityPlanar: kP,
		}
	}
}
