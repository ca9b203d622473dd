// Package project defines the external-collaborator interfaces the core
// consumes but never implements: the project handle, the lithology model
// and the fluid model. Project-file I/O, the stratigraphy/lithology
// database and HDF5 output are out of scope for this module — only these
// interfaces matter here.
package project

// Undefined sentinels, preserved bit-exactly for downstream file
// compatibility (original fastcauldron globaldefs.h: IBSNULLVALUE,
// CAULDRONIBSNULLVALUE). The sentinel itself is used internally as well:
// the compaction integrators and the property evaluators write or return
// UndefinedValue directly, and no (float64, bool) pair is used.
const (
	UndefinedValue      = 99999.0 // CAULDRONIBSNULLVALUE: the project's sentinel for undefined grid values
	DataAccessNullValue = -9999.0 // IBSNULLVALUE: the DataAccess layer's distinct sentinel
)

// Numeric constants callers can observe bit-exactly.
const (
	Gravity                 = 9.81   // m/s^2
	MinPressureTimeStep     = 1e-3   // Ma
	MinPorositySoilMech     = 0.03   // minimum porosity for Soil Mechanics lithologies incl. chemical compaction
	ZeroThicknessTolerance  = 1e-3   // m, epsilon_Delta
	MassBalanceToleranceKg  = 100.0  // kg
	SnapshotRelTolerance    = 1.0 / (1 << 23) // 2^-23
)

// RunMode is the externally-selected simulation mode; the run-mode string
// is persisted to the project's run-status field using these exact
// spellings.
type RunMode string

const (
	RunHydrostaticDecompaction     RunMode = "HydrostaticDecompaction"
	RunHighResHydrostaticDecomp    RunMode = "HighResHydrostaticDecompaction"
	RunHydrostaticTemperature      RunMode = "HydrostaticTemperature"
	RunOverpressure                RunMode = "Overpressure"
	RunOverpressuredTemperature    RunMode = "OverpressuredTemperature"
	RunCoupledHighResDecompaction  RunMode = "CoupledHighResDecompaction"
	RunPressureAndTemperature      RunMode = "PressureAndTemperature"
	RunHydrostaticDarcy            RunMode = "HydrostaticDarcy"
	RunCoupledDarcy                RunMode = "CoupledDarcy"
	RunNoCalculation                RunMode = "NoCalculation"
)

// LayerKind classifies a formation.
type LayerKind int

const (
	Sediment LayerKind = iota
	Crust
	Mantle
)

func (k LayerKind) String() string {
	switch k {
	case Sediment:
		return "Sediment"
	case Crust:
		return "Crust"
	case Mantle:
		return "Mantle"
	default:
		return "Unknown"
	}
}

// Snapshot is an age in Ma, either major (required output) or minor
// (optional intermediate).
type Snapshot struct {
	Age   float64
	Major bool
}

// TimesClose compares two ages with the relative tolerance 2^-23, as
// required for snapshot alignment.
func TimesClose(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	scale := a
	if scale < 0 {
		scale = -scale
	}
	if b < 0 && -b > scale {
		scale = -b
	}
	if scale == 0 {
		return d == 0
	}
	return d <= SnapshotRelTolerance*scale
}

// CompoundLithology describes a compound (possibly (i,j)-varying) rock
// composition as seen by the core. The lithology database itself is an
// external collaborator; this is only the view the core reads.
type CompoundLithology struct {
	Name             string
	SurfacePorosity  float64
	SolidDensity     float64
}

// FluidDescriptor names the fluid occupying a formation's pore space.
type FluidDescriptor struct {
	Name       string
	Permafrost bool // whether the fluid model's density/solid semantics flip to ice below freezing
}

// LithologyModel is the per-lithology constitutive model the core calls
// into; the database behind it is out of scope.
type LithologyModel interface {
	// Porosity returns compound porosity at the given VES (Pa), MaxVES (Pa)
	// and, if includeChemComp, folding in chemical compaction.
	Porosity(ves, maxVES float64, includeChemComp bool, chemComp float64) float64
	// Permeability returns normal and planar permeability (m^2) at the
	// given VES, MaxVES and porosity.
	Permeability(ves, maxVES, porosity float64) (kNormal, kPlanar float64)
	// ThermalConductivity returns normal and planar conductivity (W/m/K)
	// given porosity, temperature (degC) and the governing pressure
	// (pore pressure for sediments, lithostatic for basement).
	ThermalConductivity(porosity, temperature, pressure float64) (kNormal, kPlanar float64)
	// Density returns the lithology's solid (grain) density (kg/m^3).
	Density() float64
	// HeatCapacity returns the lithology's specific heat capacity (J/kg/K).
	HeatCapacity(temperature, pressure float64) float64
	// BulkHeatProduction returns radiogenic heat production (W/m^3) at a
	// given porosity.
	BulkHeatProduction(porosity float64) float64
}

// FluidModel is the per-formation fluid constitutive model.
type FluidModel interface {
	// Density returns fluid density (kg/m^3) at temperature (degC) and
	// pore pressure (Pa).
	Density(temperature, porePressure float64) float64
	// Permafrost reports whether this fluid's ice-solid semantics are
	// active (density(T,P) may exceed the lithology's solid density).
	Permafrost() bool
}

// ALCParams carries the Advanced Lithosphere Calculation basement
// sub-model parameters affecting lithostatic pressure in crust and mantle.
type ALCParams struct {
	Enabled              bool
	CrustDensity         float64 // kg/m^3 reference crust density
	MantleDensity        float64 // kg/m^3 reference mantle density
	ThermalExpansion     float64 // 1/K
	ReferenceTemperature float64 // degC
}

// Handle is the project-wide context the driver borrows: snapshots,
// boundary series, ALC parameters and output filter. It carries no
// formation list and no other project parameters. Project-file I/O is out
// of scope; only this view is consumed.
type Handle interface {
	Snapshots() []Snapshot
	SeaBottomDepth(i, j int, age float64) float64
	SeaBottomTemperature(i, j int, age float64) float64
	LateralStressFactor(i, j int, age float64) float64
	ALC() ALCParams
	OutputSelected(propertyKey string) bool
}
