package grid

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestPartition1DSingleRankOwnsWholeRange(tst *testing.T) {
	chk.PrintTitle("single-rank partition owns and ghosts the full range")
	owned, ghosted := partition1D(10, 0, 1)
	chk.IntAssert(owned.Start, 0)
	chk.IntAssert(owned.End, 10)
	chk.IntAssert(ghosted.Start, 0)
	chk.IntAssert(ghosted.End, 10)
}

func TestPartition1DSplitsEvenly(tst *testing.T) {
	chk.PrintTitle("partition splits a divisible range into equal contiguous blocks")
	owned0, _ := partition1D(10, 0, 2)
	owned1, _ := partition1D(10, 1, 2)
	chk.IntAssert(owned0.Len(), 5)
	chk.IntAssert(owned1.Len(), 5)
	chk.IntAssert(owned0.End, owned1.Start)
}

func TestPartition1DDistributesRemainder(tst *testing.T) {
	chk.PrintTitle("partition gives the remainder to the lowest-numbered ranks")
	owned0, _ := partition1D(10, 0, 3)
	owned1, _ := partition1D(10, 1, 3)
	owned2, _ := partition1D(10, 2, 3)
	total := owned0.Len() + owned1.Len() + owned2.Len()
	chk.IntAssert(total, 10)
	if owned0.Len() < owned2.Len() {
		tst.Fatalf("expected lower ranks to receive the larger share of the remainder")
	}
}

func TestPartition1DGhostsInteriorBoundariesOnly(tst *testing.T) {
	chk.PrintTitle("ghost range extends by one cell only at interior boundaries")
	owned1, ghosted1 := partition1D(10, 1, 2) // rank 1 owns [5,10): interior on the left, domain edge on the right
	chk.IntAssert(owned1.Start, 5)
	chk.IntAssert(ghosted1.Start, 4) // extended left into rank 0's territory
	chk.IntAssert(ghosted1.End, 10)  // not extended past the domain edge
}

func TestNewMap2DRejectsNonPositiveDims(tst *testing.T) {
	chk.PrintTitle("NewMap2D rejects non-positive dimensions")
	if _, err := NewMap2D(0, 5, 0, 0, 1, 1); err == nil {
		tst.Fatalf("expected an error for nx=0")
	}
}

func TestVector3DIndexingRoundTrips(tst *testing.T) {
	chk.PrintTitle("vector3D set/at round-trips through the flattened index")
	m, err := NewMap2D(4, 3, 0, 0, 1, 1)
	if err != nil {
		tst.Fatalf("NewMap2D failed: %v", err)
	}
	l3, err := NewLayered3D(m, 2)
	if err != nil {
		tst.Fatalf("NewLayered3D failed: %v", err)
	}
	v := l3.AllocVector()
	v.Set(1, 2, 3, 42.5)
	chk.Scalar(tst, "v(1,2,3)", 1e-12, v.At(1, 2, 3), 42.5)
}

func TestVector3DFillSetsEveryEntry(tst *testing.T) {
	chk.PrintTitle("fill sets every entry including ghosts")
	m, _ := NewMap2D(3, 2, 0, 0, 1, 1)
	l3, _ := NewLayered3D(m, 1)
	v := l3.AllocVector()
	v.Fill(7)
	for k := 0; k < 1; k++ {
		for j := 0; j < 2; j++ {
			for i := m.GhostRangeX().Start; i < m.GhostRangeX().End; i++ {
				chk.Scalar(tst, "filled entry", 1e-12, v.At(k, j, i), 7)
			}
		}
	}
}

func TestExchangeGhostsNoopInSerialMode(tst *testing.T) {
	chk.PrintTitle("ghost exchange is a no-op with a single rank")
	m, _ := NewMap2D(3, 2, 0, 0, 1, 1)
	l3, _ := NewLayered3D(m, 1)
	v := l3.AllocVector()
	v.Set(0, 0, 0, 5)
	if err := v.ExchangeGhosts(GhostX, true); err != nil {
		tst.Fatalf("unexpected error: %v", err)
	}
	chk.Scalar(tst, "unchanged", 1e-12, v.At(0, 0, 0), 5)
}
