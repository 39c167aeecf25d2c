package fabric

// A Region is the address window owned by one target. An address matches
// the region iff addr&Mask == Base&Mask.
type Region struct {
	Base uint32
	Mask uint32
}

// Matches reports whether addr falls inside the region.
func (r Region) Matches(addr uint32) bool {
	return addr&r.Mask == r.Base&r.Mask
}

// RegionTable maps addresses to target indices. Entry i is the region of
// target i.
//
// Regions that overlap for the same initiator are a static configuration
// error. The table does not detect them; Lookup silently returns the
// lowest-indexed match, which is documented undefined behaviour.
type RegionTable []Region

// Lookup returns the lowest-indexed target whose region matches addr and
// whose permission bit is set, or -1 if no permitted target matches.
func (t RegionTable) Lookup(addr uint32, permitted []bool) int {
	for i, r := range t {
		if permitted[i] && r.Matches(addr) {
			return i
		}
	}

	return -1
}

// PermissionMatrix restricts routing independent of address match.
// perms[i][t] allows initiator i to reach target t.
type PermissionMatrix [][]bool

// FullPermissions builds a matrix that allows every initiator to reach
// every target.
func FullPermissions(numInitiators, numTargets int) PermissionMatrix {
	m := make(PermissionMatrix, numInitiators)
	for i := range m {
		m[i] = make([]bool, numTargets)
		for t := range m[i] {
			m[i][t] = true
		}
	}

	return m
}
