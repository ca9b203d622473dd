package assembly

import (
	"testing"

	"github.com/cauldronfem/basincore/grid"
	"github.com/cauldronfem/basincore/layer"
	"github.com/cauldronfem/basincore/mesh"
	"github.com/cauldronfem/basincore/project"
	"github.com/cpmech/gosl/chk"
)

// twoNodeColumn builds a single-needle, two-node (no zero-thickness
// folding) mesh grid: one formation, one segment, distinct top/bottom
// depths.
func twoNodeColumn(tst *testing.T) (*grid.Map2D, *mesh.Grid, *grid.ValidityMask) {
	m, err := grid.NewMap2D(1, 1, 0, 0, 1, 1)
	if err != nil {
		tst.Fatalf("NewMap2D failed: %v", err)
	}
	g, _ := grid.NewLayered3D(m, 2)
	f := layer.NewFormation("F", 10, project.Sediment, g)
	f.SetActive(true)
	f.SegmentCount = func(i, j int) int { return 1 }
	valid := grid.NewValidityMask(m)
	depthOf := func(f *layer.Formation, i, j, localK int) float64 {
		if localK == 0 {
			return 0
		}
		return 10
	}
	grd := mesh.Build(m, []*layer.Formation{f}, valid, depthOf)
	return m, grd, valid
}

func TestPreallocateCountsTwoNodeColumn(tst *testing.T) {
	chk.PrintTitle("the count pass gives the per-row diagonal counts and NNZTotal of a two-node column")
	m, g, valid := twoNodeColumn(tst)
	s := Stencil{SXY: 0, SZ: 1}
	_, pat := Preallocate(g, m, valid, s, g.NzGlobal, 1)
	chk.IntAssert(pat.NDiag[0], 2) // node 0 couples to itself and node 1
	chk.IntAssert(pat.NDiag[1], 1) // node 1 has no node 2 to couple to
	chk.IntAssert(pat.NOffDiag[0], 0)
	chk.IntAssert(pat.NNZTotal, 3)
}

func TestNeighboursOfRespectsZStencilBounds(tst *testing.T) {
	chk.PrintTitle("neighboursOf never visits a k index outside the mesh's global z range")
	m, g, _ := twoNodeColumn(tst)
	s := Stencil{SXY: 0, SZ: 1}
	var visited []int
	neighboursOf(g, m, s, 1, 0, 0, func(kk, jj, ii int) {
		visited = append(visited, kk)
	})
	for _, kk := range visited {
		if kk < 0 || kk >= g.NzGlobal {
			tst.Fatalf("neighboursOf visited out-of-range k=%d", kk)
		}
	}
	if len(visited) != 1 || visited[0] != 1 {
		tst.Fatalf("expected only k=1 to be visited from the bottom node, got %v", visited)
	}
}
