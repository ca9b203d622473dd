package grid

// ValidityMask is a 2D boolean over the map grid marking which needles
// carry stratigraphy. All finite-element assembly skips columns where
// this is false; derived outputs for those columns are the project's
// sentinel undefined value.
type ValidityMask struct {
	Map  *Map2D
	data []bool
}

// NewValidityMask allocates a mask, initially all-valid, over the given
// map's ghost-extended range.
func NewValidityMask(m *Map2D) *ValidityMask {
	r := m.GhostRangeX()
	mask := &ValidityMask{Map: m, data: make([]bool, m.Ny*r.Len())}
	for i := range mask.data {
		mask.data[i] = true
	}
	return mask
}

func (v *ValidityMask) idx(j, i int) int {
	r := v.Map.GhostRangeX()
	return j*r.Len() + (i - r.Start)
}

// Valid reports whether needle (i,j) is valid.
func (v *ValidityMask) Valid(i, j int) bool { return v.data[v.idx(j, i)] }

// SetValid sets needle (i,j)'s validity.
func (v *ValidityMask) SetValid(i, j int, val bool) { v.data[v.idx(j, i)] = val }

// Walk calls fn(i,j) for every valid needle owned by this rank.
func (v *ValidityMask) Walk(fn func(i, j int)) {
	r := v.Map.OwnedRangeX()
	for j := 0; j < v.Map.Ny; j++ {
		for i := r.Start; i < r.End; i++ {
			if v.Valid(i, j) {
				fn(i, j)
			}
		}
	}
}
