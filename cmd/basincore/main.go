// Command basincore runs a basin-modelling simulation: pressure-only,
// temperature-only, or coupled, over a project's snapshot history.
package main

import (
	"github.com/cauldronfem/basincore/basin"
	"github.com/cauldronfem/basincore/config"
	"github.com/cauldronfem/basincore/driver"
	"github.com/cauldronfem/basincore/fct"
	"github.com/cauldronfem/basincore/massbalance"
	"github.com/cauldronfem/basincore/project"
	"github.com/cauldronfem/basincore/solver"
	"github.com/cauldronfem/basincore/telemetry"
	"github.com/cauldronfem/basincore/timestep"
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/mpi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				chk.Verbose = true
				for i := 8; i > 3; i-- {
					chk.CallerInfo(i)
				}
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	cfgPath, _ := io.ArgToFilename(0, "", ".toml", true)
	mode := io.ArgToString(1, string(project.RunOverpressure))
	verbose := io.ArgToBool(2, true)
	pretty := io.ArgToBool(3, true)

	logger := telemetry.Init(zerolog.InfoLevel, pretty)

	if mpi.Rank() == 0 && verbose {
		io.PfWhite("\nbasincore -- basin-modelling geomechanical simulator\n\n")
		io.Pf("\n%v\n", io.ArgsTable(
			"config file path", "cfgPath", cfgPath,
			"run mode", "mode", mode,
			"show messages", "verbose", verbose,
			"pretty logging", "pretty", pretty,
		))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		chk.Panic("cannot load configuration:\n%v", err)
	}

	runMode, err := resolveRunMode(mode)
	if err != nil {
		chk.Panic("%v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	logger.Info().Str("mode", string(runMode)).Msg("starting run")

	if runMode == project.RunNoCalculation {
		logger.Info().Msg("run mode NoCalculation: nothing to do")
		return
	}

	ledger := &massbalance.Ledger{DebugMassBalance: cfg.Run.DebugMassBalance}

	step, err := basin.NewPressureStepper(cfg.Basin, solverParamsFrom(cfg.Solver), timeStepParamsFrom(cfg.TimeStep), ledger)
	if err != nil {
		chk.Panic("cannot build basin stepper:\n%v", err)
	}

	handle := basin.NewHandle(cfg.Basin, step.OldestAge())

	params := driver.Params{
		Handle:               handle,
		SolverParams:         solverParamsFrom(cfg.Solver),
		TimeStepParams:       timeStepParamsFrom(cfg.TimeStep),
		Metrics:              metrics,
		Ledger:               ledger,
		MaxGeometricLoopIter: cfg.Run.MaxGeometricLoopIterations,
		FCT:                  fct.Corrector{EpsR: cfg.Run.FctEpsR, EpsA: cfg.Run.FctEpsA, Weight: cfg.Run.FctWeight},
		Converger:            fct.MPIReducer{},
	}

	runErr := dispatch(runMode, step, params)
	if runErr != nil {
		chk.Panic("simulation failed:\n%v", runErr)
	}
	logger.Info().Msg("run complete")
}

// solverParamsFrom adapts the configuration file's flat solver section into
// the Newton driver's Params, wiring the GMRES fallback promotion (C9) the
// same way as the direct-to-iterative escalation used elsewhere in the
// solver package.
func solverParamsFrom(c config.SolverParams) solver.Params {
	return solver.Params{
		MaxIters:  c.MaxIterations,
		Tolerance: c.Tolerance,
		MinIters:  c.MinIterations,
		Reuse:     solver.ReuseJacobianPolicy{ReuseCount: c.ReuseCount},
		Fallback:  solver.FallbackPolicy{Promote: solver.GMRESPromotion(), MaxRetries: c.GMRESMaxRetries},
		LinSol:    la.GetSolver("umfpack"),
		Symmetric: c.Symmetric,
	}
}

func timeStepParamsFrom(c config.TimeStepParams) timestep.Params {
	return timestep.Params{
		IncreaseFactor:          c.IncreaseFactor,
		DecreaseFactor:          c.DecreaseFactor,
		OptimalDeltaP:           c.OptimalDeltaP,
		OptimalDeltaT:           c.OptimalDeltaT,
		OptimalDeltaTSourceRock: c.OptimalDeltaTSourceRock,
		MinDt:                   c.MinDt,
		MaxDt:                   c.MaxDt,
		CFLEnabled:              c.CFLEnabled,
		HighOptimisation:        c.HighOptimisation,
	}
}
