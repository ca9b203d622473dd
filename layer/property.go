// Package layer implements the per-formation fundamental and derived
// property store: activate/restore lifecycle and
// current/previous snapshot rotation.
package layer

import (
	"github.com/cauldronfem/basincore/grid"
	"github.com/cpmech/gosl/chk"
)

// FundamentalProperty enumerates exactly the fundamental properties every
// formation carries.
type FundamentalProperty int

const (
	Depth FundamentalProperty = iota
	Thickness
	SolidThickness
	HydrostaticPressure
	LithostaticPressure
	Overpressure
	PorePressure
	ChemicalCompaction
	VES
	MaxVES
	Temperature
	numFundamentalProperties
)

// Derived property keys (allocated on demand).
const (
	KeyPorosity               = "Porosity"
	KeyPermeabilityNormal     = "PermeabilityV"
	KeyPermeabilityPlanar     = "PermeabilityH"
	KeyFluidVelocity          = "FluidVelocity"
	KeyBulkDensity            = "BulkDensity"
	KeyThermalConductivityN   = "ThCondV"
	KeyThermalConductivityP   = "ThCondH"
	KeyDiffusivity            = "Diffusivity"
	KeySonic                  = "Sonic"
	KeyReflectivity           = "Reflectivity"
	KeyVRe                    = "VR"
	KeyFaultElements          = "FaultElements"
	KeyErosionFactor          = "ErosionFactor"
	KeyAllochthonousLithology = "AllochthonousLithology"
)

// InsertMode selects how a ghost-reduce combines values on restore.
type InsertMode int

const (
	Insert InsertMode = iota
	Add
)

// ActivatedProperty is a scoped handle returned by Activate; its
// destruction (Restore) performs the ghost exchange. The InsertMode given
// on acquire is recorded but not used: every Restore runs the same
// exchange whatever the mode. Exactly one activation may be outstanding
// per property.
type ActivatedProperty struct {
	store         *PropertyStore
	prop          FundamentalProperty
	mode          InsertMode
	includeGhosts bool
	vec           *grid.Vector3D
	restored      bool
}

// Vector exposes the activated vector for reads/writes.
func (a *ActivatedProperty) Vector() *grid.Vector3D { return a.vec }

// Restore performs the single all-to-all exchange that makes values
// visible globally, then clears the outstanding-activation flag.
// Restoring an already-restored handle is a no-op.
func (a *ActivatedProperty) Restore() error {
	if a.restored {
		return nil
	}
	dir := grid.GhostX
	if err := a.vec.ExchangeGhosts(dir, a.includeGhosts); err != nil {
		return err
	}
	a.restored = true
	a.store.outstanding[a.prop] = false
	return nil
}

// PropertyStore holds one snapshot (current or previous) of every
// fundamental property for a formation, plus lazily-allocated derived
// grids.
type PropertyStore struct {
	grid        *grid.Layered3D
	fundamental [numFundamentalProperties]*grid.Vector3D
	outstanding [numFundamentalProperties]bool
	derived     map[string]*grid.Vector3D
}

// NewPropertyStore allocates an (initially inactive) store over g.
func NewPropertyStore(g *grid.Layered3D) *PropertyStore {
	return &PropertyStore{grid: g, derived: make(map[string]*grid.Vector3D)}
}

// Activate brings a fundamental property into scope for read/write,
// recording an InsertMode (Insert or Add; Restore does not use it) and
// whether restore includes ghosts. Activating a property that already has an outstanding
// activation panics (exactly one activation outstanding per property).
func (s *PropertyStore) Activate(prop FundamentalProperty, mode InsertMode, includeGhosts bool) *ActivatedProperty {
	if s.outstanding[prop] {
		chk.Panic("layer: property %d already activated (restore before re-activating)", prop)
	}
	if s.fundamental[prop] == nil {
		s.fundamental[prop] = s.grid.AllocVector()
	}
	s.outstanding[prop] = true
	return &ActivatedProperty{store: s, prop: prop, mode: mode, includeGhosts: includeGhosts, vec: s.fundamental[prop]}
}

// ActivateAll activates every fundamental property with the given mode.
func (s *PropertyStore) ActivateAll(mode InsertMode, includeGhosts bool) []*ActivatedProperty {
	out := make([]*ActivatedProperty, 0, numFundamentalProperties)
	for p := FundamentalProperty(0); p < numFundamentalProperties; p++ {
		out = append(out, s.Activate(p, mode, includeGhosts))
	}
	return out
}

// RestoreAll restores every handle in handles, returning the first error
// encountered (if any), after attempting all restores.
func RestoreAll(handles []*ActivatedProperty) error {
	var first error
	for _, h := range handles {
		if err := h.Restore(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Read returns the value of prop at (k,j,i) without an explicit
// activation scope — a convenience for read-only consumers (e.g. C13
// evaluators) where lifetime management is not required. It is the
// caller's responsibility not to call this concurrently with an
// outstanding write-activation of the same property.
func (s *PropertyStore) Read(prop FundamentalProperty, k, j, i int) float64 {
	v := s.fundamental[prop]
	if v == nil {
		return 0
	}
	return v.At(k, j, i)
}

// derivedVector lazily allocates and returns the named derived grid.
func (s *PropertyStore) derivedVector(key string) *grid.Vector3D {
	v, ok := s.derived[key]
	if !ok {
		v = s.grid.AllocVector()
		s.derived[key] = v
	}
	return v
}

// ReadDerived and WriteDerived access a derived property grid by key,
// allocating it on first use.
func (s *PropertyStore) ReadDerived(key string, k, j, i int) float64 {
	return s.derivedVector(key).At(k, j, i)
}

func (s *PropertyStore) WriteDerived(key string, k, j, i int, val float64) {
	s.derivedVector(key).Set(k, j, i, val)
}

// ReleaseDerived drops a derived grid, freeing it for reallocation; it is
// a no-op if the key was never allocated (the "delete" step of C13's
// allocate/compute/delete trio).
func (s *PropertyStore) ReleaseDerived(key string) {
	delete(s.derived, key)
}
