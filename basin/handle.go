// Package basin wires the core's mesh, assembly, compaction, solver and
// time-step packages into a concrete, runnable single-needle basin:
// a one-column (Nx=Ny=1) stratigraphic stack built directly from a
// configuration file's formation list, standing in for the external
// project-file/lithology-database loader that remains out of scope.
package basin

import (
	"sort"

	"github.com/cauldronfem/basincore/config"
	"github.com/cauldronfem/basincore/project"
)

// Handle implements project.Handle over a config.BasinSpec: constant
// boundary series and a snapshot list derived from the configured major
// ages plus present day (age 0).
type Handle struct {
	snapshots            []project.Snapshot
	seaBottomDepth       float64
	seaBottomTemperature float64
	lateralStressFactor  float64
}

// NewHandle builds a Handle from spec and the oldest formation's
// deposition age, which anchors the simulation's starting snapshot.
func NewHandle(spec config.BasinSpec, oldestAge float64) *Handle {
	ages := map[float64]bool{0: true, oldestAge: true}
	for _, a := range spec.MajorSnapshotAgesMa {
		ages[a] = true
	}
	snaps := make([]project.Snapshot, 0, len(ages))
	for a := range ages {
		snaps = append(snaps, project.Snapshot{Age: a, Major: true})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Age > snaps[j].Age })

	return &Handle{
		snapshots:            snaps,
		seaBottomDepth:       spec.SeaBottomDepthM,
		seaBottomTemperature: spec.SeaBottomTemperatureC,
		lateralStressFactor:  spec.LateralStressFactor,
	}
}

func (h *Handle) Snapshots() []project.Snapshot { return h.snapshots }

func (h *Handle) SeaBottomDepth(i, j int, age float64) float64 { return h.seaBottomDepth }

func (h *Handle) SeaBottomTemperature(i, j int, age float64) float64 {
	return h.seaBottomTemperature
}

func (h *Handle) LateralStressFactor(i, j int, age float64) float64 { return h.lateralStressFactor }

func (h *Handle) ALC() project.ALCParams { return project.ALCParams{} }

// OutputSelected always saves every derived property; a real project file
// would carry an explicit per-key output filter.
func (h *Handle) OutputSelected(key string) bool { return true }
