package layer

import (
	"github.com/cauldronfem/basincore/grid"
	"github.com/cauldronfem/basincore/project"
)

// Formation is a named stratum with deposition age, kind, a compound
// lithology (possibly varying by (i,j)), a fluid descriptor and a
// per-needle segment count. It holds current and previous property
// containers.
type Formation struct {
	Name          string
	DepositionAge float64
	Kind          project.LayerKind
	Lithology     func(i, j int) project.CompoundLithology
	Fluid         project.FluidDescriptor
	Lith          project.LithologyModel
	FluidModel    project.FluidModel

	// SegmentCount returns the active vertical element count N for needle
	// (i,j); it changes over the simulation as deposition proceeds.
	SegmentCount func(i, j int) int

	Current  *PropertyStore
	Previous *PropertyStore

	active bool // whether this formation has begun deposition and is not fully eroded
}

// NewFormation allocates a formation's property stores over g.
func NewFormation(name string, age float64, kind project.LayerKind, g *grid.Layered3D) *Formation {
	return &Formation{
		Name:          name,
		DepositionAge: age,
		Kind:          kind,
		Current:       NewPropertyStore(g),
		Previous:      NewPropertyStore(g),
	}
}

// Active reports whether this formation is part of the active mesh at the
// current time (already deposited, not entirely eroded).
func (f *Formation) Active() bool { return f.active }

// SetActive marks the formation active/inactive for the current time step.
func (f *Formation) SetActive(v bool) { f.active = v }

// Eroded reports whether this non-mobile layer has shrunk since the
// previous step at needle (i,j): previous solid thickness at the column
// top exceeds the current one. Detected here and consumed by the
// compaction integrator's MaxVES interpolation.
func (f *Formation) Eroded(i, j, kTop int) bool {
	prevTop := f.Previous.Read(SolidThickness, kTop, j, i)
	currTop := f.Current.Read(SolidThickness, kTop, j, i)
	return prevTop > currTop
}

// CopyProperties copies every active fundamental property from current to
// previous at every valid (i,j) and every k in the local range, skipping
// inactive layers. Idempotent absent intervening writes (Testable
// Property 10).
func CopyProperties(formations []*Formation, valid *grid.ValidityMask, localK func(f *Formation) (start, end int)) {
	for _, f := range formations {
		if !f.Active() {
			continue
		}
		kStart, kEnd := localK(f)
		for p := FundamentalProperty(0); p < numFundamentalProperties; p++ {
			src := f.Current.fundamental[p]
			if src == nil {
				continue
			}
			dst := f.Previous.fundamental[p]
			if dst == nil {
				dst = f.Previous.grid.AllocVector()
				f.Previous.fundamental[p] = dst
			}
			valid.Walk(func(i, j int) {
				for k := kStart; k < kEnd; k++ {
					dst.Set(k, j, i, src.At(k, j, i))
				}
			})
		}
	}
}
