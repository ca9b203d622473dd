// Package compact implements the per-segment compaction integrators:
// the geometric-loop (GL) and non-geometric-loop (NGL) variants that walk
// vertical needles of finite elements and solve the coupled ODEs for
// depth, porosity, VES and hydrostatic/pore/lithostatic pressure.
package compact

import "github.com/cauldronfem/basincore/project"

// NodeState is the per-node output of a needle integration.
type NodeState struct {
	Depth               float64
	Hydrostatic         float64
	Litho               float64
	Pore                float64
	VES                 float64
	MaxVES              float64
	Porosity            float64
	PermeabilityNormal  float64
	PermeabilityPlanar  float64
}

// Segment is one finite element of a needle, indexed top (0) to bottom.
type Segment struct {
	SolidThickness float64 // held fixed by GL; the unknown NGL solves for
	RealThickness  float64 // held fixed by NGL; not written by GL (GL reports depths in its NodeState output)
	Overpressure   [2]float64 // at top/bottom, current Newton iterate
	Temperature    [2]float64 // at top/bottom
	ChemicalCompaction float64
}

// Needle bundles one vertical column's segments and the boundary state at
// its top, feeding one formation's portion of a compaction integration.
type Needle struct {
	Segments []Segment

	TopDepth        float64
	TopHydrostatic  float64
	TopPore         float64
	TopLitho        float64
	TopMaxVESPrev   float64 // MaxVES from previous step, at the column top

	Lithology func(segIdx int) project.CompoundLithology
	Lith      project.LithologyModel
	Fluid     project.FluidModel

	Valid bool // validNeedle; if false the integrator fills undefined sentinels
}

// fillUndefined fills n nodes with the project's undefined sentinel.
func fillUndefined(out []NodeState) {
	u := project.UndefinedValue
	for idx := range out {
		out[idx] = NodeState{Depth: u, Hydrostatic: u, Litho: u, Pore: u, VES: u, MaxVES: u, Porosity: u}
	}
}
