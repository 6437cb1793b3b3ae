package onchain

import "slices"

// Formatter interprets the raw records of one category.
type Formatter interface {
	Category() Category
	// Identity decodes the entity a record refers to. ok is false when the
	// record carries no address.
	Identity(record any) (p Profile, ok bool)
	// Apply folds the category payload of record into p.
	Apply(p *Profile, record any)
}

// Merge folds records into profiles and returns the new list; profiles is
// left untouched.
//
// Each record lands in the first profile, in list order, sharing an address
// with it. The two address sets are unioned on a match, so a later record
// reaching either set finds the same profile. Records matching nothing start
// a new profile at the end of the list.
func Merge(profiles []Profile, records []any, f Formatter) []Profile {
	out := make([]Profile, len(profiles), len(profiles)+len(records))
	for i := range profiles {
		out[i] = profiles[i].Clone()
	}
	for _, r := range records {
		seed, ok := f.Identity(r)
		if !ok {
			continue
		}
		i := slices.IndexFunc(out, func(p Profile) bool { return p.Intersects(seed.Addresses) })
		if i < 0 {
			out = append(out, seed)
			i = len(out) - 1
		} else {
			out[i].absorb(seed)
		}
		f.Apply(&out[i], r)
	}
	return out
}
