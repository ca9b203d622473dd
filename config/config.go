// Package config loads the flat, TOML-encoded solver/run parameters, in
// the same flat-struct-plus-toml.DecodeFile pattern spatialmodel-inmap
// uses for its own run configuration.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/cpmech/gosl/chk"
)

// SolverParams configures the nonlinear solver and its fallback policy.
type SolverParams struct {
	EpsR          float64 `toml:"eps_r"`
	Tolerance     float64 `toml:"tolerance"`
	MaxIterations int     `toml:"max_iterations"`
	MinIterations int     `toml:"min_iterations"`
	ReuseCount    int     `toml:"reuse_count"`
	GMRESMaxRetries int   `toml:"gmres_max_retries"`
	Symmetric     bool    `toml:"symmetric"`
}

// TimeStepParams configures the adaptive time-step controller.
type TimeStepParams struct {
	IncreaseFactor          float64 `toml:"increase_factor"`
	DecreaseFactor          float64 `toml:"decrease_factor"`
	OptimalDeltaP           float64 `toml:"optimal_delta_p"`
	OptimalDeltaT           float64 `toml:"optimal_delta_t"`
	OptimalDeltaTSourceRock float64 `toml:"optimal_delta_t_source_rock"`
	MinDt                   float64 `toml:"min_dt"`
	MaxDt                   float64 `toml:"max_dt"`
	CFLEnabled              bool    `toml:"cfl_enabled"`
	HighOptimisation        bool    `toml:"high_optimisation"`
}

// RunParams configures the top-level driver.
type RunParams struct {
	Mode                       string  `toml:"mode"`
	MaxGeometricLoopIterations int     `toml:"max_geometric_loop_iterations"`
	MassBalanceTolerance       float64 `toml:"mass_balance_tolerance_kg"`
	DebugMassBalance           bool    `toml:"debug_mass_balance"`
	FctEpsR                    float64 `toml:"fct_eps_r"`
	FctEpsA                    float64 `toml:"fct_eps_a"`
	FctWeight                  float64 `toml:"fct_weight"`
}

// FormationSpec configures one stratigraphic unit of the single-needle
// basin column this command builds directly from the configuration file,
// standing in for the external project-file/lithology database loader
// (out of scope for this module).
type FormationSpec struct {
	Name                      string  `toml:"name"`
	DepositionAgeMa           float64 `toml:"deposition_age_ma"`
	SolidThicknessM           float64 `toml:"solid_thickness_m"`
	SurfacePorosity           float64 `toml:"surface_porosity"`
	CompactionConstant        float64 `toml:"compaction_constant"` // Athy's law c, 1/Pa
	SolidDensity              float64 `toml:"solid_density_kgm3"`
	PermeabilityNormal        float64 `toml:"permeability_normal_m2"`
	PermeabilityPlanar        float64 `toml:"permeability_planar_m2"`
	ThermalConductivityNormal float64 `toml:"thermal_conductivity_normal"`
	ThermalConductivityPlanar float64 `toml:"thermal_conductivity_planar"`
	HeatCapacity              float64 `toml:"heat_capacity"`
	RadiogenicHeat            float64 `toml:"radiogenic_heat"`
}

// BasinSpec configures the single-needle basin column and its boundary
// series: one formation per deposition event, oldest first.
type BasinSpec struct {
	Formation             []FormationSpec `toml:"formation"`
	FluidDensityKgm3      float64         `toml:"fluid_density_kgm3"`
	SeaBottomDepthM       float64         `toml:"sea_bottom_depth_m"`
	SeaBottomTemperatureC float64         `toml:"sea_bottom_temperature_c"`
	LateralStressFactor   float64         `toml:"lateral_stress_factor"`
	OverpressureCoupling  float64         `toml:"overpressure_coupling"`
	MajorSnapshotAgesMa   []float64       `toml:"major_snapshot_ages_ma"`
}

// Config is the top-level project configuration file.
type Config struct {
	Solver   SolverParams   `toml:"solver"`
	TimeStep TimeStepParams `toml:"timestep"`
	Run      RunParams      `toml:"run"`
	Basin    BasinSpec      `toml:"basin"`
}

// Load reads and decodes a project's configuration file. Malformed input
// is an InputInconsistency condition; callers surface the wrapped error
// as such.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, chk.Err("cannot load configuration from %q: %v", path, err)
	}
	return &cfg, nil
}
