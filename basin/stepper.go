package basin

import (
	"sort"

	"github.com/cauldronfem/basincore/assembly"
	"github.com/cauldronfem/basincore/compact"
	"github.com/cauldronfem/basincore/config"
	"github.com/cauldronfem/basincore/fct"
	"github.com/cauldronfem/basincore/grid"
	"github.com/cauldronfem/basincore/layer"
	"github.com/cauldronfem/basincore/massbalance"
	"github.com/cauldronfem/basincore/mesh"
	"github.com/cauldronfem/basincore/project"
	"github.com/cauldronfem/basincore/props"
	"github.com/cauldronfem/basincore/solver"
	"github.com/cauldronfem/basincore/timestep"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// PressureStepper implements driver.Stepper and solver.Problem together
// over a single-needle (Nx=Ny=1) column: a backward-Euler relaxation of
// each node's overpressure toward the hydrostatic-excess pressure the
// geometric-loop compaction integrator (compact.GL) computes from it,
// weakly coupled to the segment below so the Newton step is well-posed.
// This is the concrete wiring the driver package's Stepper abstraction was
// designed to receive; a multi-needle basin would supply one of these per
// column.
type PressureStepper struct {
	formations []*layer.Formation
	thickness  []float64 // configured solid thickness per formation, mutated by ApplyThicknessScale
	lith       []Lithology
	fluidModel Fluid

	mapGrid *grid.Map2D
	valid   *grid.ValidityMask

	solverParams solver.Params
	tsParams     timestep.Params
	coupling     float64

	ledger        *massbalance.Ledger
	committedMass map[string]float64
	oldestAge     float64

	activeList []*layer.Formation

	g  *mesh.Grid
	kb *la.Triplet
	fb []float64
	wb []float64
	x  []float64

	// committedX is keyed by the formation whose top boundary a node
	// represents (nil for the node below the deepest/oldest formation), so
	// the per-node solution survives activeList reshuffling when a new
	// formation is inserted at the shallow end.
	committedX     map[*layer.Formation]float64
	lastDeltaPMax  float64
	lastIterations int
	lastOut        []compact.NodeState
}

// nodeKeys returns, for each node of the current active stack (index 0 =
// shallowest boundary .. index len(activeList) = the deepest formation's
// base), the formation key committedX uses to remember its value across
// activeList reshuffles.
func (p *PressureStepper) nodeKeys() []*layer.Formation {
	keys := make([]*layer.Formation, len(p.activeList)+1)
	copy(keys, p.activeList)
	keys[len(p.activeList)] = nil
	return keys
}

// NewPressureStepper builds a PressureStepper from a basin's configured
// formation stack, oldest formation first.
func NewPressureStepper(spec config.BasinSpec, solverParams solver.Params, tsParams timestep.Params, ledger *massbalance.Ledger) (*PressureStepper, error) {
	if len(spec.Formation) == 0 {
		return nil, chk.Err("basin: at least one formation must be configured")
	}
	specs := append([]config.FormationSpec(nil), spec.Formation...)
	sort.Slice(specs, func(i, j int) bool { return specs[i].DepositionAgeMa > specs[j].DepositionAgeMa })

	m, err := grid.NewMap2D(1, 1, 0, 0, 1, 1)
	if err != nil {
		return nil, err
	}
	valid := grid.NewValidityMask(m)

	formations := make([]*layer.Formation, len(specs))
	lith := make([]Lithology, len(specs))
	thickness := make([]float64, len(specs))
	fluidModel := Fluid{DensityValue: spec.FluidDensityKgm3}

	for idx, s := range specs {
		lg, err := grid.NewLayered3D(m, 2)
		if err != nil {
			return nil, err
		}
		f := layer.NewFormation(s.Name, s.DepositionAgeMa, project.Sediment, lg)
		l := NewLithology(s)
		lith[idx] = l
		thickness[idx] = s.SolidThicknessM

		fspec := s // capture for the closure below, distinct from the outer spec param
		f.Lithology = func(i, j int) project.CompoundLithology {
			return project.CompoundLithology{Name: fspec.Name, SurfacePorosity: fspec.SurfacePorosity, SolidDensity: fspec.SolidDensity}
		}
		f.Fluid = project.FluidDescriptor{Name: "formation water"}
		f.Lith = l
		f.FluidModel = fluidModel
		f.SegmentCount = func(i, j int) int {
			if !f.Active() {
				return 0
			}
			return 1
		}
		formations[idx] = f
	}

	coupling := spec.OverpressureCoupling
	if coupling == 0 {
		coupling = 0.05
	}

	return &PressureStepper{
		formations:    formations,
		thickness:     thickness,
		lith:          lith,
		fluidModel:    fluidModel,
		mapGrid:       m,
		valid:         valid,
		solverParams:  solverParams,
		tsParams:      tsParams,
		coupling:      coupling,
		ledger:        ledger,
		committedMass: make(map[string]float64),
		committedX:    make(map[*layer.Formation]float64),
		oldestAge:     specs[0].DepositionAgeMa,
	}, nil
}

// OldestAge reports the deposition age of the bottom formation, the age
// the simulation must start marching from.
func (p *PressureStepper) OldestAge() float64 { return p.oldestAge }

func (p *PressureStepper) indexOf(f *layer.Formation) int {
	for idx, ff := range p.formations {
		if ff == f {
			return idx
		}
	}
	return -1
}

func (p *PressureStepper) thicknessOf(f *layer.Formation) float64 {
	if idx := p.indexOf(f); idx >= 0 {
		return p.thickness[idx]
	}
	return 0
}

// needleModel picks the shallowest active formation's lithology as the
// representative model for the whole needle: compact.Needle carries one
// LithologyModel/FluidModel pair per needle, not per segment, so a column
// spanning several lithologies must pick one (§DESIGN.md, Open Question).
func (p *PressureStepper) needleModel() Lithology {
	if len(p.activeList) == 0 {
		return Lithology{}
	}
	top := p.activeList[0] // activeList is ordered shallowest-first
	return p.lith[p.indexOf(top)]
}

func (p *PressureStepper) depthOf(f *layer.Formation, i, j, localK int) float64 {
	coord := 0.0
	for _, ff := range p.activeList {
		if ff == f {
			if localK >= 1 {
				coord += p.thicknessOf(ff)
			}
			return coord
		}
		coord += p.thicknessOf(ff)
	}
	return coord
}

func (p *PressureStepper) thicknessAt(f *layer.Formation, i, j, localK int) float64 {
	return p.thicknessOf(f)
}

func (p *PressureStepper) lithologyAt(f *layer.Formation, i, j int) project.CompoundLithology {
	return f.Lithology(i, j)
}

// RebuildActiveLayers marks every formation deposited by age as active and
// rebuilds the ordered active list mesh.Build consumes. Crossing back to
// the oldest age (the start of a march, including every geometric-loop
// re-run) clears the mass-balance ledger so each re-run reports only its
// own balance.
func (p *PressureStepper) RebuildActiveLayers(age float64) error {
	if project.TimesClose(age, p.oldestAge) || age > p.oldestAge {
		p.ledger.Clear()
		p.committedMass = make(map[string]float64)
		p.committedX = make(map[*layer.Formation]float64)
	}

	p.activeList = p.activeList[:0]
	for i := len(p.formations) - 1; i >= 0; i-- {
		f := p.formations[i]
		f.SetActive(age <= f.DepositionAge)
		if f.Active() {
			// p.formations is oldest-first; walking it backwards builds
			// activeList shallowest-first, the order compact.Needle.Segments
			// requires (GL.Run seeds out[0] from the needle's top boundary
			// and integrates downward from there).
			p.activeList = append(p.activeList, f)
		}
	}
	if len(p.activeList) == 0 {
		return chk.Err("basin: no active formations at age %.4f Ma", age)
	}
	return nil
}

// BuildStep rebuilds the collapsed FEM grid and Jacobian pattern for the
// currently active formations and returns this stepper as the Newton
// problem to solve (it implements solver.Problem directly).
func (p *PressureStepper) BuildStep(age, dt float64) (solver.Problem, error) {
	g := mesh.Build(p.mapGrid, p.activeList, p.valid, p.depthOf)
	mesh.MarkIncludedElements(g, p.valid, p.activeList, p.thicknessAt, p.lithologyAt)

	kb, _ := assembly.Preallocate(g, p.mapGrid, p.valid, assembly.Stencil{SXY: 0, SZ: 1}, g.NzGlobal, 1)

	// Rebuild x by formation identity, not array position: activeList grows
	// at the front as shallower formations activate, so a node's index shifts
	// between steps even though the formation it represents does not.
	keys := p.nodeKeys()
	nx := make([]float64, len(keys))
	for idx, k := range keys {
		nx[idx] = p.committedX[k]
	}
	p.x = nx

	p.g = g
	p.kb = kb
	p.fb = make([]float64, g.NzGlobal)
	p.wb = make([]float64, g.NzGlobal)
	return p, nil
}

// Assemble fills the residual (and, if reassembleJac, the Jacobian) of the
// per-node overpressure relaxation equation: each node's unknown
// overpressure is driven toward the pore-minus-hydrostatic excess pressure
// compact.GL.Run computes for it given the current iterate, weakly coupled
// to the node below so the system stays well-conditioned for any linear
// backend.
func (p *PressureStepper) Assemble(fb []float64, reassembleJac bool, kb *la.Triplet) error {
	n := p.g.NzGlobal
	segments := make([]compact.Segment, len(p.activeList))
	for idx, f := range p.activeList {
		segments[idx] = compact.Segment{
			SolidThickness: p.thicknessOf(f),
			Overpressure:   [2]float64{p.x[idx], p.x[idx+1]},
		}
	}

	needle := &compact.Needle{
		Segments: segments,
		Valid:    true,
		Lithology: func(segIdx int) project.CompoundLithology {
			return p.activeList[segIdx].Lithology(0, 0)
		},
		Lith:  p.needleModel(),
		Fluid: p.fluidModel,
	}

	out := make([]compact.NodeState, n)
	compact.GL{Level: compact.OptNormal}.Run(needle, false, 0, 0, 0, 0, out)
	p.lastOut = out

	for row := 0; row < n; row++ {
		residual := p.x[row] - (out[row].Pore - out[row].Hydrostatic)
		fb[row] = -residual
	}

	if reassembleJac {
		kb.Start()
		for row := 0; row < n; row++ {
			kb.Put(row, row, 1.0)
			if row+1 < n {
				kb.Put(row, row+1, -p.coupling)
			}
		}
	}
	return nil
}

// Update applies the damped Newton increment: u <- u - wb, wb already
// carrying the damping factor theta_abs.
func (p *PressureStepper) Update(wb []float64) error {
	for i, d := range wb {
		p.x[i] -= d
	}
	return nil
}

// Solution returns the current overpressure iterate, aliased.
func (p *PressureStepper) Solution() []float64 { return p.x }

// Solve drives the Newton loop against this stepper's own preallocated
// Jacobian and work vectors.
func (p *PressureStepper) Solve(prob solver.Problem) solver.Outcome {
	outcome := solver.Run(prob, p.solverParams, p.kb, p.fb, p.wb)
	p.lastIterations = outcome.Iterations
	return outcome
}

// Commit records the per-formation deposited mass increment in the ledger
// and remembers this step's solution for the next NextDt's delta-P
// measurement.
func (p *PressureStepper) Commit(age, dt float64) error {
	keys := p.nodeKeys()
	maxDelta := 0.0
	for idx, k := range keys {
		d := p.x[idx] - p.committedX[k]
		if d < 0 {
			d = -d
		}
		if d > maxDelta {
			maxDelta = d
		}
	}
	p.lastDeltaPMax = maxDelta

	committed := make(map[*layer.Formation]float64, len(keys))
	for idx, k := range keys {
		committed[k] = p.x[idx]
	}
	p.committedX = committed

	for idx, f := range p.formations {
		if !f.Active() {
			continue
		}
		l := p.lith[idx]
		mass := p.thickness[idx] * l.Density() * (1 - l.SurfacePorosity)
		delta := mass - p.committedMass[f.Name]
		switch {
		case delta > 0:
			p.ledger.AddToBalance("deposition: "+f.Name, delta)
		case delta < 0:
			p.ledger.SubtractFromBalance("erosion: "+f.Name, -delta)
		}
		p.committedMass[f.Name] = mass
	}
	return nil
}

// MaybeSaveProperties derives and stores the per-node petrophysical
// outputs (C13) from this step's compaction result.
func (p *PressureStepper) MaybeSaveProperties(age float64, major bool) error {
	if len(p.lastOut) == 0 {
		return nil
	}
	const placeholderTemperature = 20.0 // no temperature solve wired into the pressure-only stepper

	var prevBulk, prevVelocity float64
	havePrev := false
	for idx, f := range p.activeList {
		top, bottom := p.lastOut[idx], p.lastOut[idx+1]
		l := p.lith[p.indexOf(f)]

		bulk := props.BulkDensity(bottom.Porosity, l.Density(), p.fluidModel, placeholderTemperature, bottom.Pore)
		velocity := props.Velocity(props.VelocityGardner, bottom.Porosity, bulk, bottom.Pore, placeholderTemperature, 0, 0)
		sonic := props.Sonic(velocity)
		reflectivity := props.Reflectivity(prevBulk, prevVelocity, bulk, velocity, havePrev)
		kN, kP := props.ThermalConductivity(l, bottom.Porosity, placeholderTemperature, false, bottom.Pore, bottom.Litho)
		diffusivity := props.Diffusivity(kN, bulk, l.HeatCapacity(placeholderTemperature, bottom.Pore))
		thickness := props.Thickness(top.Depth, bottom.Depth)
		permN, permP := props.Permeability(l, bottom.VES, bottom.MaxVES, bottom.Porosity)
		erosion := props.ErosionFactor(thickness, 0)
		fault := props.FaultElements(false)
		allochthonous := props.AllochthonousLithology(false, 0, 0, bottom.Depth)

		f.Current.WriteDerived(layer.KeyBulkDensity, 1, 0, 0, bulk)
		f.Current.WriteDerived(layer.KeyFluidVelocity, 1, 0, 0, velocity)
		f.Current.WriteDerived(layer.KeySonic, 1, 0, 0, sonic)
		f.Current.WriteDerived(layer.KeyReflectivity, 1, 0, 0, reflectivity)
		f.Current.WriteDerived(layer.KeyThermalConductivityN, 1, 0, 0, kN)
		f.Current.WriteDerived(layer.KeyThermalConductivityP, 1, 0, 0, kP)
		f.Current.WriteDerived(layer.KeyDiffusivity, 1, 0, 0, diffusivity)
		f.Current.WriteDerived(layer.KeyPorosity, 1, 0, 0, bottom.Porosity)
		f.Current.WriteDerived(layer.KeyPermeabilityNormal, 1, 0, 0, permN)
		f.Current.WriteDerived(layer.KeyPermeabilityPlanar, 1, 0, 0, permP)
		f.Current.WriteDerived(layer.KeyErosionFactor, 1, 0, 0, erosion)
		if fault {
			f.Current.WriteDerived(layer.KeyFaultElements, 1, 0, 0, 1)
		}
		if allochthonous {
			f.Current.WriteDerived(layer.KeyAllochthonousLithology, 1, 0, 0, 1)
		}

		prevBulk, prevVelocity, havePrev = bulk, velocity, true
	}
	return nil
}

// NextDt reports the controller's next Δt, folding in the delta-pressure
// measurement Commit recorded.
func (p *PressureStepper) NextDt(st timestep.State) float64 {
	st.DeltaPMax = p.lastDeltaPMax
	st.NewtonIterations = p.lastIterations
	st.NewtonCap = p.solverParams.MaxIters
	return timestep.Next(timestep.ModePressure, st, p.tsParams)
}

// ThicknessResult reports the geometric-loop's reconciliation inputs: the
// configured deposition thickness against the compaction integrator's
// computed present-day thickness for the active stack.
func (p *PressureStepper) ThicknessResult() (fct.ThicknessInputs, bool) {
	if len(p.lastOut) == 0 || len(p.activeList) == 0 {
		return fct.ThicknessInputs{}, false
	}
	deposition := 0.0
	for _, f := range p.activeList {
		deposition += p.thicknessOf(f)
	}
	computed := p.lastOut[len(p.lastOut)-1].Depth - p.lastOut[0].Depth
	return fct.ThicknessInputs{DepositionThickness: deposition, ComputedDeposited: computed}, true
}

// ApplyThicknessScale rescales every formation's configured solid
// thickness ahead of the geometric loop's next march.
func (p *PressureStepper) ApplyThicknessScale(scale float64) {
	for idx := range p.thickness {
		p.thickness[idx] *= scale
	}
}
