package main

import (
	"fmt"

	"github.com/cauldronfem/basincore/driver"
	"github.com/cauldronfem/basincore/project"
)

var knownRunModes = []project.RunMode{
	project.RunHydrostaticDecompaction,
	project.RunHighResHydrostaticDecomp,
	project.RunHydrostaticTemperature,
	project.RunOverpressure,
	project.RunOverpressuredTemperature,
	project.RunCoupledHighResDecompaction,
	project.RunPressureAndTemperature,
	project.RunHydrostaticDarcy,
	project.RunCoupledDarcy,
	project.RunNoCalculation,
}

// resolveRunMode validates the CLI-supplied mode string against the
// project's exact run-mode spellings.
func resolveRunMode(mode string) (project.RunMode, error) {
	for _, m := range knownRunModes {
		if string(m) == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown run mode %q", mode)
}

// dispatch routes a resolved run mode to the matching driver entry point.
// Every mode shares the same concrete Stepper: this module's physics is
// pressure-only (see DESIGN.md), so the temperature and coupled entry
// points exercise the preheat/geometric-loop skeleton against that same
// Stepper rather than a distinct temperature solve.
func dispatch(mode project.RunMode, step driver.Stepper, params driver.Params) error {
	switch mode {
	case project.RunHydrostaticTemperature, project.RunOverpressuredTemperature:
		return driver.RunTemperatureOnly(step, params)
	case project.RunCoupledHighResDecompaction, project.RunPressureAndTemperature, project.RunCoupledDarcy:
		return driver.RunCoupled(step, params)
	default:
		return driver.RunPressureOnly(step, params)
	}
}
