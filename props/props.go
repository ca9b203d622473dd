// Package props implements the auxiliary/derived petrophysical property
// evaluators: pure per-column functions over a compound lithology and its
// fundamental properties. The bulk-density mixture average uses
// gonum/floats.Dot; the other closed forms are plain arithmetic.
package props

import (
	"math"

	"github.com/cauldronfem/basincore/project"
	"gonum.org/v1/gonum/floats"
)

// VelocityMethod selects the sonic-velocity correlation.
type VelocityMethod int

const (
	VelocityGardner VelocityMethod = iota
	VelocityWyllie
)

// BulkDensity mixes solid and fluid density by porosity, evaluating the
// fluid model at (temperature, porePressure).
func BulkDensity(porosity float64, solidDensity float64, fluid project.FluidModel, temperature, porePressure float64) float64 {
	rhoFluid := fluid.Density(temperature, porePressure)
	return floats.Dot([]float64{porosity, 1 - porosity}, []float64{rhoFluid, solidDensity})
}

// Velocity evaluates the selected correlation for one column's segment.
func Velocity(method VelocityMethod, porosity, bulkDensity, porePressure, temperature float64, matrixVelocity, fluidVelocity float64) float64 {
	switch method {
	case VelocityWyllie:
		if matrixVelocity <= 0 || fluidVelocity <= 0 {
			return project.UndefinedValue
		}
		slowness := porosity/fluidVelocity + (1-porosity)/matrixVelocity
		if slowness <= 0 {
			return project.UndefinedValue
		}
		return 1 / slowness
	default: // Gardner: v = (rho / a)^(1/b), inverted from Gardner's rho = a*v^b
		const a, b = 0.31, 0.25
		if bulkDensity <= 0 {
			return project.UndefinedValue
		}
		return math.Pow(bulkDensity/a, 1/b)
	}
}

// Sonic converts velocity to sonic slowness: 10^6 / velocity.
func Sonic(velocity float64) float64 {
	if velocity <= 0 {
		return project.UndefinedValue
	}
	return 1e6 / velocity
}

// Reflectivity computes the acoustic-impedance jump at the boundary
// between the bottom of the layer above and the top of this layer; the
// basin's upper surface (no layer above) is 0 by definition.
func Reflectivity(aboveBulkDensity, aboveVelocity, thisBulkDensity, thisVelocity float64, hasAbove bool) float64 {
	if !hasAbove {
		return 0
	}
	zAbove := aboveBulkDensity * aboveVelocity
	zThis := thisBulkDensity * thisVelocity
	if zAbove+zThis == 0 {
		return 0
	}
	return (zThis - zAbove) / (zThis + zAbove)
}

// ThermalConductivity returns the normal and planar conductivity
// components; sediments are evaluated at pore pressure, basement at
// lithostatic pressure.
func ThermalConductivity(lith project.LithologyModel, porosity, temperature float64, isBasement bool, porePressure, lithoPressure float64) (normal, planar float64) {
	pressure := porePressure
	if isBasement {
		pressure = lithoPressure
	}
	return lith.ThermalConductivity(porosity, temperature, pressure)
}

// Diffusivity is thermal-conductivity-normal divided by (bulk density x
// heat capacity).
func Diffusivity(thermalConductivityNormal, bulkDensity, heatCapacity float64) float64 {
	denom := bulkDensity * heatCapacity
	if denom <= 0 {
		return project.UndefinedValue
	}
	return thermalConductivityNormal / denom
}

// Thickness is bottom-minus-top depth, defined only at the column top.
func Thickness(topDepth, bottomDepth float64) float64 {
	return bottomDepth - topDepth
}

// Permeability returns the normal/planar permeability from the
// lithology's permeability model at (VES, MaxVES, porosity).
func Permeability(lith project.LithologyModel, ves, maxVES, porosity float64) (normal, planar float64) {
	return lith.Permeability(ves, maxVES, porosity)
}

// ErosionFactor reports the fraction of a column's deposited thickness
// that survived erosion at the given age (1 = none eroded, 0 = fully
// eroded).
func ErosionFactor(depositedThickness, erodedThickness float64) float64 {
	if depositedThickness <= 0 {
		return project.UndefinedValue
	}
	remaining := depositedThickness - erodedThickness
	if remaining < 0 {
		remaining = 0
	}
	return remaining / depositedThickness
}

// FaultElements reports whether the column at (age) lies within a mapped
// fault polygon for the active formation.
func FaultElements(inFaultPolygon bool) bool {
	return inFaultPolygon
}

// AllochthonousLithology reports whether the column's lithology at this
// node has been substituted by salt/shale allochthonous emplacement,
// given the emplacement's present-day depth range at this (i,j).
func AllochthonousLithology(enabled bool, topDepth, bottomDepth, depth float64) bool {
	return enabled && depth >= topDepth && depth <= bottomDepth
}
