// Package grid provides the distributed 2D map grid and 3D layered grid
// abstraction: ghost-cell exchange and local/global
// vector and matrix allocation. All per-grid-point iteration is expressed
// in global indices; bounds checks are the caller's responsibility.
package grid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/mpi"
)

// GhostDir selects the direction of a ghost-cell exchange.
type GhostDir int

const (
	GhostX GhostDir = iota
	GhostY
)

// Range describes an owned or ghosted index range along one axis,
// [Start, End) in global indices.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Map2D is a distributed 2D map grid: nx x ny points, partitioned across
// processes in x only; each process owns a contiguous x-range over all ny
// rows, plus a one-cell-wide ghost halo on its interior x boundaries. y is
// not partitioned.
type Map2D struct {
	Nx, Ny         int
	OriginX, OriginY float64
	Dx, Dy         float64
	proc, nproc    int
	ownedX, ownedY Range
	ghostX, ghostY Range
}

// NewMap2D creates a 2D grid. Construction fails if the underlying
// communicator cannot be queried.
func NewMap2D(nx, ny int, originX, originY, dx, dy float64) (*Map2D, error) {
	if nx <= 0 || ny <= 0 {
		return nil, chk.Err("grid: nx and ny must be positive, got nx=%d ny=%d", nx, ny)
	}
	proc, nproc, err := queryComm()
	if err != nil {
		return nil, err
	}
	g := &Map2D{Nx: nx, Ny: ny, OriginX: originX, OriginY: originY, Dx: dx, Dy: dy, proc: proc, nproc: nproc}
	g.ownedX, g.ghostX = partition1D(nx, proc, nproc)
	g.ownedY = Range{0, ny}
	g.ghostY = Range{0, ny}
	return g, nil
}

// queryComm reports the current rank/size, failing if MPI is on but
// cannot be queried consistently.
func queryComm() (proc, nproc int, err error) {
	if !mpi.IsOn() {
		return 0, 1, nil
	}
	proc = mpi.Rank()
	nproc = mpi.Size()
	if nproc <= 0 {
		return 0, 0, chk.Err("grid: mpi reports non-positive communicator size %d", nproc)
	}
	return proc, nproc, nil
}

// partition1D splits [0,n) into nproc contiguous blocks (1D decomposition
// in x only, using a row-partitioned mesh convention) and
// returns this rank's owned range and its ghost-extended range (one cell
// of halo on each interior boundary).
func partition1D(n, proc, nproc int) (owned, ghosted Range) {
	base := n / nproc
	rem := n % nproc
	start := proc*base + min(proc, rem)
	count := base
	if proc < rem {
		count++
	}
	owned = Range{start, start + count}
	gstart, gend := owned.Start, owned.End
	if gstart > 0 {
		gstart--
	}
	if gend < n {
		gend++
	}
	ghosted = Range{gstart, gend}
	return
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// OwnedRangeX returns this rank's owned (non-ghost) index range in x.
func (g *Map2D) OwnedRangeX() Range { return g.ownedX }

// GhostRangeX returns this rank's ghost-extended index range in x.
func (g *Map2D) GhostRangeX() Range { return g.ghostX }

// Proc and Nproc report this rank's identity within the grid's communicator.
func (g *Map2D) Proc() int  { return g.proc }
func (g *Map2D) Nproc() int { return g.nproc }

// Layered3D is a 3D grid obtained by attaching a caller-supplied number of
// local z-levels to each needle of a Map2D. z is fully local (never
// partitioned or ghosted).
type Layered3D struct {
	Map *Map2D
	Nz  int
}

// NewLayered3D creates a 3D layered grid over map with nz local levels.
func NewLayered3D(m *Map2D, nz int) (*Layered3D, error) {
	if nz <= 0 {
		return nil, chk.Err("grid: nz must be positive, got %d", nz)
	}
	return &Layered3D{Map: m, Nz: nz}, nil
}

// Vector3D is a dense array over a Layered3D grid's local (including
// ghost) extent, logical shape (Nz, Ny, Nx).
type Vector3D struct {
	grid *Layered3D
	data []float64
}

// AllocVector allocates a distributed vector over the grid (all local
// ghost+owned storage; z is fully local).
func (g *Layered3D) AllocVector() *Vector3D {
	r := g.Map.GhostRangeX()
	n := g.Nz * g.Map.Ny * r.Len()
	return &Vector3D{grid: g, data: make([]float64, n)}
}

func (v *Vector3D) idx(k, j, i int) int {
	r := v.grid.Map.GhostRangeX()
	li := i - r.Start
	return (k*v.grid.Map.Ny+j)*r.Len() + li
}

// At reads the value at global indices (k,j,i); bounds checking is the
// caller's responsibility.
func (v *Vector3D) At(k, j, i int) float64 { return v.data[v.idx(k, j, i)] }

// Set writes the value at global indices (k,j,i).
func (v *Vector3D) Set(k, j, i int, val float64) { v.data[v.idx(k, j, i)] = val }

// Fill sets every entry (owned and ghost) to val.
func (v *Vector3D) Fill(val float64) {
	for i := range v.data {
		v.data[i] = val
	}
}

// AllocMatrix allocates a sparse Jacobian-shaped matrix with ndof rows and
// a preallocation budget nnz (see package assembly for exact sizing).
func (g *Layered3D) AllocMatrix(ndof, nnz int) *la.Triplet {
	t := new(la.Triplet)
	t.Init(ndof, ndof, nnz)
	return t
}

// ExchangeGhosts performs the collective ghost-value exchange in the given
// direction. Distributed property writes must all happen between
// activation and this call (see package layer); this is the single
// all-to-all that makes values globally visible.
func (v *Vector3D) ExchangeGhosts(dir GhostDir, includeGhosts bool) error {
	if v.grid.Map.Nproc() <= 1 {
		return nil // nothing to exchange in serial mode
	}
	// Collective reduce-add across ranks sharing boundary nodes, using an
	// AllReduceSum-based ghost-merge idiom.
	tmp := make([]float64, len(v.data))
	mpi.AllReduceSum(v.data, tmp)
	copy(v.data, tmp)
	return nil
}
