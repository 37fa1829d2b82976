package stereo

import (
	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// ComponentResult is the split of one connected component.
type ComponentResult struct {
	Formula string              `json:"formula"`
	Index   int                 `json:"index"`
	Members []reaction.Reaction `json:"members"`
	Groups  []Group             `json:"groups"`
}

// Reactions returns the distinct stereo reactions across all groups of c.
func (c ComponentResult) Reactions() []reaction.Reaction {
	var all []reaction.Reaction
	for _, g := range c.Groups {
		all = append(all, g...)
	}
	return reaction.Dedup(all)
}

// RemoveEnantiomerDuplicates drops every group whose mirror image, taken as a
// set of reaction keys, equals a group kept earlier.  The relative order of
// kept groups is unchanged.
func RemoveEnantiomerDuplicates(tk chem.Toolkit, groups []Group) []Group {
	var kept []Group
	var keptSets []map[string]struct{}
	for _, g := range groups {
		mirror := make(Group, len(g))
		for i, r := range g {
			mirror[i] = chem.Reflection(tk, r)
		}
		mset := mirror.KeySet()
		dup := false
		for _, s := range keptSets {
			if sameKeys(s, mset) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, g)
		keptSets = append(keptSets, g.KeySet())
	}
	return kept
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// ValidEnantiomerically reports whether no two identifiers of ids are
// enantiomers of each other.
func ValidEnantiomerically(tk chem.Toolkit, ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !chem.IsChiral(tk, id) {
			continue
		}
		if _, ok := seen[tk.Reflect(id)]; ok && tk.AreEnantiomers(id, tk.Reflect(id)) {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}
