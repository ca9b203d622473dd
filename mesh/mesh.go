// Package mesh builds the collapsed global FEM grid spanning the active
// formations of a needle and assigns DOF numbers that fold zero-thickness
// stacks into a single shared DOF.
package mesh

import (
	"github.com/cauldronfem/basincore/grid"
	"github.com/cauldronfem/basincore/layer"
	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/mpi"
)

// DOFArray is a 3D array over the global grid holding, at each node
// (k,j,i), an integer DOF index. Invariant: if the node is the top of a
// zero-thickness stack, its DOF equals that of the top non-zero-thickness
// node above it; otherwise it equals k.
type DOFArray struct {
	Nz, Ny int
	rng    grid.Range
	data   []int
}

func newDOFArray(nz, ny int, rng grid.Range) *DOFArray {
	return &DOFArray{Nz: nz, Ny: ny, rng: rng, data: make([]int, nz*ny*rng.Len())}
}

func (d *DOFArray) idx(k, j, i int) int {
	return (k*d.Ny+j)*d.rng.Len() + (i - d.rng.Start)
}

// At returns the DOF index at global node (k,j,i).
func (d *DOFArray) At(k, j, i int) int { return d.data[d.idx(k, j, i)] }

func (d *DOFArray) set(k, j, i, v int) { d.data[d.idx(k, j, i)] = v }

// IsDOFOwner reports whether node (k,j,i) owns its own DOF (i.e. it is not
// a phantom node folded into a zero-thickness stack above it).
func (d *DOFArray) IsDOFOwner(k, j, i int) bool { return d.At(k, j, i) == k }

// NearestOwnerAbove returns the nearest k' <= k such that (k',j,i) is a
// DOF owner — used by the preallocator's z-stencil start.
func (d *DOFArray) NearestOwnerAbove(k, j, i int) int {
	for kk := k; kk >= 0; kk-- {
		if d.IsDOFOwner(kk, j, i) {
			return kk
		}
	}
	return 0
}

// Included reports, for the pressure grid, whether node (k,j,i) belongs to
// a "normal" element per the inclusion rule (§4.3); zero-thickness nodes
// inherit the flag of their shared DOF owner above.
type IncludedFlags struct {
	Nz, Ny int
	rng    grid.Range
	data   []bool
}

func (f *IncludedFlags) idx(k, j, i int) int {
	return (k*f.Ny+j)*f.rng.Len() + (i - f.rng.Start)
}
func (f *IncludedFlags) At(k, j, i int) bool { return f.data[f.idx(k, j, i)] }
func (f *IncludedFlags) set(k, j, i int, v bool) { f.data[f.idx(k, j, i)] = v }

// Grid is the collapsed FEM grid built fresh each time step for one
// physics (pressure grid: sediments only; temperature grid: sediments +
// basement).
type Grid struct {
	NzGlobal     int
	DOF          *DOFArray
	StencilWidth int // longest run of consecutive zero-thickness segments anywhere on the mesh (reduced across ranks)
	Included     *IncludedFlags // allocated all-false by Build; set by MarkIncludedElements for the pressure grid
}

// ActiveFormations lists formations ascending from bottom with their
// per-needle segment counts, as consumed by Build.
type ActiveFormations = []*layer.Formation

// Build constructs the global FEM grid for the given active formations
// (ascending from bottom) over the validity mask, inserting one shared
// boundary node between adjacent formations.
//
// Procedure (per needle):
//  1. Assign initial DOFs top-down: the topmost node gets its own index;
//     a node below inherits the DOF of the node above when
//     Δdepth < epsilon_Delta, else gets a fresh index.
//  2. Track the longest inherited run per needle; reduce maxima across
//     processes via MAX.
func Build(m *grid.Map2D, active ActiveFormations, valid *grid.ValidityMask, depthOf func(f *layer.Formation, i, j, localK int) float64) *Grid {
	nz := 1
	for _, f := range active {
		// each formation contributes its segment count; formations share
		// one boundary node with the next, so only +N per formation once
		// the shared initial node is already counted.
		maxN := 0
		valid.Walk(func(i, j int) {
			if n := f.SegmentCount(i, j); n > maxN {
				maxN = n
			}
		})
		nz += maxN
	}

	rng := m.GhostRangeX()
	dof := newDOFArray(nz, m.Ny, rng)
	included := &IncludedFlags{Nz: nz, Ny: m.Ny, rng: rng, data: make([]bool, nz*m.Ny*rng.Len())}

	localMaxRun := 0
	valid.Walk(func(i, j int) {
		run := assignNeedleDOFs(dof, active, i, j, depthOf)
		if run > localMaxRun {
			localMaxRun = run
		}
	})

	stencil := localMaxRun
	if mpi.IsOn() && m.Nproc() > 1 {
		buf := []float64{float64(localMaxRun)}
		out := make([]float64, 1)
		mpi.AllReduceMax(buf, out)
		stencil = int(out[0])
	}

	return &Grid{NzGlobal: nz, DOF: dof, StencilWidth: stencil, Included: included}
}

// assignNeedleDOFs performs step 1 of the §4.3 procedure for one needle
// and returns the longest inherited (zero-thickness) run found on it.
func assignNeedleDOFs(dof *DOFArray, active ActiveFormations, i, j int, depthOf func(f *layer.Formation, i, j, localK int) float64) int {
	maxRun := 0
	run := 0
	k := 0
	dof.set(0, j, i, 0)
	var prevDepth float64
	for _, f := range active {
		if !f.Active() {
			continue
		}
		n := f.SegmentCount(i, j)
		for localK := 0; localK <= n; localK++ {
			d := depthOf(f, i, j, localK)
			if localK == 0 {
				// a formation's top node is the same physical node as the
				// previous formation's bottom node; only the very first
				// node of the very first formation gets its own slot.
				prevDepth = d
				continue
			}
			k++
			dz := d - prevDepth
			if dz < 0 {
				dz = -dz
			}
			if dz < project.ZeroThicknessTolerance {
				dof.set(k, j, i, dof.At(k-1, j, i))
				run++
				if run > maxRun {
					maxRun = run
				}
			} else {
				dof.set(k, j, i, k)
				run = 0
			}
			prevDepth = d
		}
	}
	return maxRun
}

// MarkIncludedElements performs the pressure-grid "included" pass: an
// element is normal if at least one vertex has positive thickness and the
// lithology has positive surface porosity; mark all DOFs of normal
// elements' corners as included. A zero-thickness node inherits the flag
// of its shared DOF above.
func MarkIncludedElements(g *Grid, valid *grid.ValidityMask, active ActiveFormations,
	thicknessAt func(f *layer.Formation, i, j, localK int) float64,
	lithologyAt func(f *layer.Formation, i, j int) project.CompoundLithology) {

	valid.Walk(func(i, j int) {
		k := 0
		for _, f := range active {
			if !f.Active() {
				continue
			}
			n := f.SegmentCount(i, j)
			lith := lithologyAt(f, i, j)
			for localK := 0; localK < n; localK++ {
				t := thicknessAt(f, i, j, localK)
				normal := t > 0 && lith.SurfacePorosity > 0
				if normal {
					g.Included.set(k, j, i, true)
					g.Included.set(k+1, j, i, true)
				}
				k++
			}
		}
		// zero-thickness nodes inherit the flag of their DOF owner above
		for kk := 1; kk < g.NzGlobal; kk++ {
			if !g.DOF.IsDOFOwner(kk, j, i) {
				owner := g.DOF.At(kk, j, i)
				g.Included.set(kk, j, i, g.Included.At(owner, j, i))
			}
		}
	})
}
