// Package assembly computes exact per-row nonzero counts from the DOF map
// and stencil, and allocates the sparse Jacobian. The
// preallocator is mode-agnostic: the same procedure serves the pressure
// and temperature grids, differing only in the 2D validity mask and in the
// stencil width s. The count pass and the insert pass share neighboursOf
// so they cannot drift apart.
package assembly

import (
	"github.com/cauldronfem/basincore/grid"
	"github.com/cauldronfem/basincore/mesh"
	"github.com/cpmech/gosl/la"
)

// Stencil describes the coupling radius: s in x/y, widened in z by the
// mesh's zero-thickness collapse run.
type Stencil struct {
	SXY int
	SZ  int
}

// Pattern is the result of the count pass: per owned row, how many
// diagonal-block (owned) and off-diagonal-block (non-owned) columns it
// has, plus the total.
type Pattern struct {
	NDiag, NOffDiag []int
	NNZTotal        int
}

// neighboursOf enumerates the set of global (k,j,i) neighbours of node
// (k,j,i) that must be visited by both the count pass and the insert
// pass — kept as one function so the two passes cannot diverge.
func neighboursOf(g *mesh.Grid, m *grid.Map2D, s Stencil, k, j, i int, visit func(kk, jj, ii int)) {
	kStart := g.DOF.NearestOwnerAbove(k, j, i)
	zLo := -(k - kStart)
	zHi := s.SZ
	for jj := j - s.SXY; jj <= j+s.SXY; jj++ {
		if jj < 0 || jj >= m.Ny {
			continue
		}
		for ii := i - s.SXY; ii <= i+s.SXY; ii++ {
			if ii < 0 || ii >= m.Nx {
				continue
			}
			for dz := zLo; dz <= zHi; dz++ {
				kk := k + dz
				if kk < 0 || kk >= g.NzGlobal {
					continue
				}
				visit(kk, jj, ii)
			}
		}
	}
}

// Preallocate computes the exact per-row nonzero counts and allocates the
// sparse Jacobian sized to ndof*ncomp rows/cols, where ndof is the number
// of distinct DOFs and ncomp is the number of solution components per
// node (1 for pressure-only or temperature-only, 2 for coupled P-T).
func Preallocate(g *mesh.Grid, m *grid.Map2D, valid *grid.ValidityMask, s Stencil, ndof, ncomp int) (*la.Triplet, *Pattern) {
	pat := &Pattern{NDiag: make([]int, ndof), NOffDiag: make([]int, ndof)}

	// phase 1: count pass
	seen := make(map[int]struct{}, 64)
	valid.Walk(func(i, j int) {
		for k := 0; k < g.NzGlobal; k++ {
			row := g.DOF.At(k, j, i)
			if !g.DOF.IsDOFOwner(k, j, i) {
				// phantom node in a zero-thickness stack: exactly one
				// nonzero, a Dirichlet-like row reflecting onto the DOF owner
				pat.NDiag[row]++
				continue
			}
			for key := range seen {
				delete(seen, key)
			}
			neighboursOf(g, m, s, k, j, i, func(kk, jj, ii int) {
				col := g.DOF.At(kk, jj, ii)
				if _, dup := seen[col]; dup {
					return // skip duplicate entries produced by collapses below
				}
				seen[col] = struct{}{}
				owned := m.OwnedRangeX()
				if ii >= owned.Start && ii < owned.End {
					pat.NDiag[row]++
				} else {
					pat.NOffDiag[row]++
				}
			})
		}
	})

	total := 0
	for r := 0; r < ndof; r++ {
		total += (pat.NDiag[r] + pat.NOffDiag[r]) * ncomp * ncomp
	}
	pat.NNZTotal = total

	t := new(la.Triplet)
	t.Init(ndof*ncomp, ndof*ncomp, total)

	// phase 2: insert structural zeros, same traversal, so storage is
	// sized exactly before first assembly.
	valid.Walk(func(i, j int) {
		for k := 0; k < g.NzGlobal; k++ {
			row := g.DOF.At(k, j, i)
			if !g.DOF.IsDOFOwner(k, j, i) {
				for c := 0; c < ncomp; c++ {
					t.Put(row*ncomp+c, row*ncomp+c, 0)
				}
				continue
			}
			for key := range seen {
				delete(seen, key)
			}
			neighboursOf(g, m, s, k, j, i, func(kk, jj, ii int) {
				col := g.DOF.At(kk, jj, ii)
				if _, dup := seen[col]; dup {
					return
				}
				seen[col] = struct{}{}
				for cr := 0; cr < ncomp; cr++ {
					for cc := 0; cc < ncomp; cc++ {
						t.Put(row*ncomp+cr, col*ncomp+cc, 0)
					}
				}
			})
		}
	})

	return t, pat
}
