package basin

import (
	"math"

	"github.com/cauldronfem/basincore/config"
	"github.com/cauldronfem/basincore/project"
)

// Lithology implements project.LithologyModel with Athy's exponential
// porosity-compaction law and a Kozeny-Carman cube-law permeability falloff,
// parameterised per formation from its configuration entry. Thermal
// conductivity and heat capacity are carried as configured constants: the
// single-needle column this package builds has no use for their
// temperature/pressure dependence beyond what MaybeSaveProperties reports.
type Lithology struct {
	SurfacePorosity    float64
	CompactionConstant float64
	SolidDensityValue  float64
	PermNormal0        float64
	PermPlanar0        float64
	ThermalCondNormal  float64
	ThermalCondPlanar  float64
	HeatCapacityValue  float64
	RadiogenicHeat     float64
}

// NewLithology builds a Lithology from one formation's configuration.
func NewLithology(f config.FormationSpec) Lithology {
	return Lithology{
		SurfacePorosity:    f.SurfacePorosity,
		CompactionConstant: f.CompactionConstant,
		SolidDensityValue:  f.SolidDensity,
		PermNormal0:        f.PermeabilityNormal,
		PermPlanar0:        f.PermeabilityPlanar,
		ThermalCondNormal:  f.ThermalConductivityNormal,
		ThermalCondPlanar:  f.ThermalConductivityPlanar,
		HeatCapacityValue:  f.HeatCapacity,
		RadiogenicHeat:     f.RadiogenicHeat,
	}
}

// Porosity applies Athy's law, floored at the soil-mechanics minimum and
// irreversible on unloading: porosity follows whichever of the current and
// maximum VES is larger, never rebounding as effective stress drops.
func (l Lithology) Porosity(ves, maxVES float64, includeChemComp bool, chemComp float64) float64 {
	effective := ves
	if maxVES > effective {
		effective = maxVES
	}
	p := l.SurfacePorosity * math.Exp(-l.CompactionConstant*effective)
	if p < project.MinPorositySoilMech {
		return project.MinPorositySoilMech
	}
	return p
}

// Permeability applies a Kozeny-Carman cube law against the
// surface-porosity permeability.
func (l Lithology) Permeability(ves, maxVES, porosity float64) (kNormal, kPlanar float64) {
	ratio := porosity / l.SurfacePorosity
	if ratio < 0 {
		ratio = 0
	}
	factor := ratio * ratio * ratio
	return l.PermNormal0 * factor, l.PermPlanar0 * factor
}

func (l Lithology) ThermalConductivity(porosity, temperature, pressure float64) (kNormal, kPlanar float64) {
	return l.ThermalCondNormal, l.ThermalCondPlanar
}

func (l Lithology) Density() float64 { return l.SolidDensityValue }

func (l Lithology) HeatCapacity(temperature, pressure float64) float64 { return l.HeatCapacityValue }

func (l Lithology) BulkHeatProduction(porosity float64) float64 {
	return l.RadiogenicHeat * (1 - porosity)
}

// Fluid implements project.FluidModel with a constant density, ignoring
// temperature/pressure dependence (not needed by the single-needle column's
// isothermal pressure-only physics).
type Fluid struct {
	DensityValue float64
	IsPermafrost bool
}

func (f Fluid) Density(temperature, porePressure float64) float64 { return f.DensityValue }

func (f Fluid) Permafrost() bool { return f.IsPermafrost }
