package solar

var indianRegions = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya", "Mizoram",
	"Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu",
	"Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
	"Delhi", "Puducherry", "Chandigarh", "Dadra and Nagar Haveli and Daman and Diu",
	"Jammu and Kashmir", "Ladakh", "Lakshadweep", "Andaman and Nicobar Islands",
}

// RegionSet is an immutable set of selectable region names. The zero value
// contains no regions.
type RegionSet struct {
	names []string
	index map[string]struct{}
}

// NewRegionSet copies names into a new set, dropping duplicates while keeping
// the first occurrence's position.
func NewRegionSet(names ...string) RegionSet {
	rs := RegionSet{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := rs.index[n]; ok {
			continue
		}
		rs.index[n] = struct{}{}
		rs.names = append(rs.names, n)
	}
	return rs
}

// IndianRegions returns the states and union territories offered by the
// calculator form.
func IndianRegions() RegionSet {
	return NewRegionSet(indianRegions...)
}

// Contains reports whether name is a member of the set. Matching is exact.
func (rs RegionSet) Contains(name string) bool {
	_, ok := rs.index[name]
	return ok
}

// Names returns the regions in declaration order.
func (rs RegionSet) Names() []string {
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

func (rs RegionSet) Len() int { return len(rs.names) }
