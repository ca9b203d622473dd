// Package telemetry is the ambient logging and metrics layer: fixed
// console "MeSsAgE ERROR/WARNING" sentinel lines printed via gosl/io,
// layered with structured zerolog events and a small set of prometheus
// collectors.
package telemetry

import (
	"os"

	"github.com/cpmech/gosl/io"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Kind is the severity tag of a user-visible message line.
type Kind int

const (
	KindError Kind = iota
	KindWarning
)

var logger zerolog.Logger

// Init configures the process-wide logger once, at the composition root —
// never a package-level singleton mutated piecemeal.
func Init(level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return logger
}

// Message prints the fixed console sentinel line (the external contract)
// and emits a matching structured zerolog event at the same severity.
func Message(kind Kind, text string, args ...any) {
	switch kind {
	case KindError:
		io.PfRed("MeSsAgE ERROR: "+text+"\n", args...)
		logger.Error().Msgf(text, args...)
	default:
		io.Pfyel("MeSsAgE WARNING: "+text+"\n", args...)
		logger.Warn().Msgf(text, args...)
	}
}

// Metrics bundles the solver's operational counters, registered once by
// NewMetrics at the composition root.
type Metrics struct {
	DtGauge                prometheus.Gauge
	NewtonIterations       prometheus.Histogram
	GeometricNonConvergence prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DtGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "basincore_timestep_dt_ma",
			Help: "current adaptive time step size in Ma",
		}),
		NewtonIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "basincore_newton_iterations",
			Help:    "Newton iterations used per time step",
			Buckets: prometheus.LinearBuckets(1, 2, 15),
		}),
		GeometricNonConvergence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "basincore_geometric_loop_nonconvergence_total",
			Help: "count of geometric-loop outer iterations that hit the cap unconverged",
		}),
	}
	reg.MustRegister(m.DtGauge, m.NewtonIterations, m.GeometricNonConvergence)
	return m
}
